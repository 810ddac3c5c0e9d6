package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/query"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "notes.db"), WithClock(func() time.Time { return base }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func doc(id, owner, content string, created time.Time, expired bool) map[string]any {
	return map[string]any{
		"id":        id,
		"userId":    owner,
		"title":     content,
		"content":   content,
		"keywords":  []any{},
		"createdAt": created.Format(time.RFC3339Nano),
		"expiresAt": created.AddDate(0, 3, 0).Format(time.RFC3339Nano),
		"isExpired": expired,
		"metadata":  map[string]any{"wordCount": float64(len(content)), "language": "tr"},
	}
}

func index(t *testing.T, s *Store, d map[string]any) string {
	t.Helper()
	id, err := s.Index(context.Background(), d)
	require.NoError(t, err)
	return id
}

func ids(t *testing.T, s *Store, req *query.Request) []string {
	t.Helper()
	res, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	var out []string
	for _, h := range res.Hits {
		var n struct {
			ID string `json:"id"`
		}
		require.NoError(t, h.Decode(&n))
		out = append(out, n.ID)
	}
	return out
}

func TestIndexGetUpdateDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id := index(t, s, doc("note_1", "u1", "ilk not", base, false))

	hit, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, hit.ID)

	require.NoError(t, s.Update(ctx, id, map[string]any{
		"title":    "yeni başlık",
		"metadata": map[string]any{"aiMetadata": map[string]any{"userEdited": true}},
	}))

	hit, err = s.Get(ctx, id)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, hit.Decode(&got))
	assert.Equal(t, "yeni başlık", got["title"])
	assert.Equal(t, "ilk not", got["content"])
	meta := got["metadata"].(map[string]any)
	assert.Equal(t, "tr", meta["language"], "nested fields survive a partial update")
	assert.Equal(t, true, meta["aiMetadata"].(map[string]any)["userEdited"])

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id), apperr.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, id, map[string]any{"title": "x"}), apperr.ErrNotFound)
}

func TestSearch_ListIsOwnerScopedAndExpiryFiltered(t *testing.T) {
	s := testStore(t)

	index(t, s, doc("old", "u1", "eski", base.AddDate(0, 0, -2), false))
	index(t, s, doc("new", "u1", "yeni", base.AddDate(0, 0, -1), false))
	index(t, s, doc("flagged", "u1", "bayraklı", base, true))
	index(t, s, doc("overdue", "u1", "gecikmiş", base.AddDate(0, -4, 0), false))
	index(t, s, doc("other", "u2", "başkası", base, false))

	assert.Equal(t, []string{"new", "old"}, ids(t, s, query.List("u1", 1, 10)))
	assert.Equal(t, []string{"other"}, ids(t, s, query.List("u2", 1, 10)))
	assert.Equal(t, []string{"old"}, ids(t, s, query.List("u1", 2, 1)))
}

func TestSearch_FuzzyRelevanceAndHighlight(t *testing.T) {
	s := testStore(t)

	index(t, s, doc("hit", "u1", "Toplantı notları: bütçe planı konuşuldu.", base, false))
	index(t, s, doc("partial", "u1", "Dünkü toplantı kısa sürdü.", base.Add(time.Hour), false))
	index(t, s, doc("miss", "u1", "Alışveriş listesi", base, false))
	index(t, s, doc("foreign", "u2", "Toplantı notları", base, false))

	res, err := s.Search(context.Background(), query.Search("u1", "toplanti notlari", 1, 10))
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	assert.Greater(t, res.Hits[0].Score, res.Hits[1].Score)

	var first map[string]any
	require.NoError(t, res.Hits[0].Decode(&first))
	assert.Equal(t, "hit", first["id"])

	frags := res.Hits[0].Highlight[query.FieldContent]
	require.NotEmpty(t, frags)
	assert.Contains(t, frags[0], "<mark>Toplantı</mark>")
	assert.Contains(t, frags[0], "<mark>notları</mark>")
	assert.Contains(t, res.Hits[0].Highlight, query.FieldTitle)
}

func TestSearch_FilteredListings(t *testing.T) {
	s := testStore(t)

	plain := doc("plain", "u1", "düz", base, false)
	ai := doc("ai", "u1", "yapay", base.Add(time.Minute), false)
	ai["metadata"].(map[string]any)["aiMetadata"] = map[string]any{"userEdited": false}
	edited := doc("edited", "u1", "düzenlenmiş", base.Add(2*time.Minute), false)
	edited["metadata"].(map[string]any)["language"] = "en"
	edited["metadata"].(map[string]any)["aiMetadata"] = map[string]any{
		"userEdited": true,
		"editedAt":   base.Add(time.Hour).Format(time.RFC3339Nano),
	}
	for _, d := range []map[string]any{plain, ai, edited} {
		index(t, s, d)
	}

	assert.Equal(t, []string{"edited", "ai"}, ids(t, s, query.AIFlagged("u1", 1, 10)))
	assert.Equal(t, []string{"edited"}, ids(t, s, query.UserEdited("u1", 1, 10)))
	assert.Equal(t, []string{"edited"}, ids(t, s, query.ByLanguage("u1", "en", 1, 10)))
	assert.Equal(t, []string{"ai"}, ids(t, s, query.ByApplicationID("ai")))
}

func TestUpdateByQuery_SweepIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	overdue := index(t, s, doc("overdue", "u1", "eski", base.AddDate(0, 0, -100), false))
	index(t, s, doc("live", "u1", "taze", base, false))

	n, err := s.UpdateByQuery(ctx, query.SweepExpired())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.UpdateByQuery(ctx, query.SweepExpired())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	hit, err := s.Get(ctx, overdue)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, hit.Decode(&got))
	assert.Equal(t, true, got["isExpired"])
	assert.Equal(t, []string{"live"}, ids(t, s, query.List("u1", 1, 10)))
}

func TestUpdateByQuery_UnsupportedScript(t *testing.T) {
	s := testStore(t)
	_, err := s.UpdateByQuery(context.Background(), &query.UpdateByQuery{
		Script: query.Script{Source: "ctx._source.remove('x')", Lang: "painless"},
	})
	assert.Error(t, err)
}

func TestSearch_StatsAggregations(t *testing.T) {
	s := testStore(t)

	a := doc("a", "u1", "bir iki", base, false)
	a["metadata"].(map[string]any)["wordCount"] = float64(2)
	b := doc("b", "u1", "üç dört beş altı", base.Add(time.Hour), true)
	b["metadata"].(map[string]any)["wordCount"] = float64(4)
	b["metadata"].(map[string]any)["aiMetadata"] = map[string]any{"userEdited": true}
	index(t, s, a)
	index(t, s, b)
	index(t, s, doc("c", "u2", "başka", base, false))

	res, err := s.Search(context.Background(), query.Stats("u1"))
	require.NoError(t, err)
	aggs := res.Aggregations

	assert.Equal(t, 2, aggs[query.AggTotal].Count())
	assert.Equal(t, 1, aggs[query.AggActive].Count())
	assert.Equal(t, 1, aggs[query.AggExpired].Count())
	assert.Equal(t, 1, aggs[query.AggAIGenerated].Count())
	assert.Equal(t, 1, aggs[query.AggUserEdited].Count())
	require.NotNil(t, aggs[query.AggAvgWords].Value)
	assert.InDelta(t, 3.0, *aggs[query.AggAvgWords].Value, 1e-9)

	require.Len(t, res.Hits, 1)
	var latest map[string]any
	require.NoError(t, res.Hits[0].Decode(&latest))
	assert.Equal(t, "b", latest["id"])
}

func TestMinimumShouldMatch(t *testing.T) {
	assert.Equal(t, 1, minimumShouldMatch("50%", 2))
	assert.Equal(t, 1, minimumShouldMatch("50%", 1))
	assert.Equal(t, 2, minimumShouldMatch("50%", 5))
	assert.Equal(t, 3, minimumShouldMatch("3", 5))
	assert.Equal(t, 1, minimumShouldMatch("", 4))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("not", "not"))
	assert.Equal(t, 1, levenshtein("toplanti", "toplantı"))
	assert.Equal(t, 3, levenshtein("kitap", "kitaplar"))
	assert.Equal(t, 3, levenshtein("", "abc"))
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"bir iki", "üç dört", "beş"}, chunk("bir iki üç dört beş", 7))
	assert.Equal(t, []string{"uzunkelime"}, chunk("uzunkelime", 3))
}
