// Package metrics exposes Prometheus counters for the HTTP surface and the
// note lifecycle. All recording methods are safe on a nil *Collector.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	noteMutations *prometheus.CounterVec
	notesExpired  prometheus.Counter
	searches      *prometheus.CounterVec
	suggestions   *prometheus.CounterVec
}

// New creates a collector with metric names under namespace.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		noteMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_mutations_total",
			Help:      "Note lifecycle operations by kind",
		}, []string{"op"}),
		notesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_expired_total",
			Help:      "Notes flagged as expired by sweeps",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_queries_total",
			Help:      "Listing and search requests by kind",
		}, []string{"kind"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_suggestions_total",
			Help:      "Suggestions served, by source",
		}, []string{"source"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.noteMutations,
		c.notesExpired,
		c.searches,
		c.suggestions,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware records request counts and latency per chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// NoteMutation counts one lifecycle operation (create, update, delete, ...).
func (c *Collector) NoteMutation(op string) {
	if c == nil {
		return
	}
	c.noteMutations.WithLabelValues(op).Inc()
}

// NotesExpired adds the number of notes flagged by a sweep.
func (c *Collector) NotesExpired(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.notesExpired.Add(float64(n))
}

// Query counts one listing or search by kind.
func (c *Collector) Query(kind string) {
	if c == nil {
		return
	}
	c.searches.WithLabelValues(kind).Inc()
}

// Suggestion counts a served suggestion; fallback marks locally derived ones.
func (c *Collector) Suggestion(fallback bool) {
	if c == nil {
		return
	}
	source := "ai"
	if fallback {
		source = "fallback"
	}
	c.suggestions.WithLabelValues(source).Inc()
}
