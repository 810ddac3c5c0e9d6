package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	c := New("notes_test")
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes/"+id, nil))
	}

	got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/notes/{id}", "418"))
	assert.Equal(t, 2.0, got)
}

func TestDomainCounters(t *testing.T) {
	c := New("notes_test")
	c.NoteMutation("create")
	c.NoteMutation("create")
	c.NotesExpired(3)
	c.NotesExpired(0)
	c.Query("search")
	c.Suggestion(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.noteMutations.WithLabelValues("create")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.notesExpired))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searches.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.suggestions.WithLabelValues("fallback")))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.NoteMutation("create")
	c.NotesExpired(1)
	c.Query("list")
	c.Suggestion(false)

	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New("notes_test")
	c.NoteMutation("delete")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `notes_test_note_mutations_total{op="delete"} 1`))
}
