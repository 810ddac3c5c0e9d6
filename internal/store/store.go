// Package store defines the document store the notes service persists to.
//
// Two drivers exist: sqlite, an embedded store that evaluates query payloads
// in process, and remote, a client for the HTTP search proxy.
package store

import (
	"context"
	"encoding/json"

	"github.com/giyikalim/smart-notes/internal/query"
)

// Store is a schemaless JSON document store with search.
type Store interface {
	// Index inserts doc and returns the id assigned by the store.
	Index(ctx context.Context, doc any) (string, error)
	// Get fetches one document. Missing documents yield apperr.ErrNotFound.
	Get(ctx context.Context, id string) (*Hit, error)
	// Update deep-merges partial into the stored document.
	Update(ctx context.Context, id string, partial any) error
	// Delete removes a document. Missing documents yield apperr.ErrNotFound.
	Delete(ctx context.Context, id string) error
	// Search runs a query request.
	Search(ctx context.Context, req *query.Request) (*SearchResult, error)
	// UpdateByQuery runs a script over every matching document and reports
	// how many were updated.
	UpdateByQuery(ctx context.Context, req *query.UpdateByQuery) (int, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Hit is one stored document.
type Hit struct {
	ID        string              `json:"_id"`
	Score     float64             `json:"_score"`
	Source    json.RawMessage     `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// Decode unmarshals the document source into v.
func (h *Hit) Decode(v any) error {
	return json.Unmarshal(h.Source, v)
}

// SearchResult is the outcome of a Search.
type SearchResult struct {
	Total        int                  `json:"total"`
	Hits         []Hit                `json:"hits"`
	Aggregations map[string]AggResult `json:"aggregations,omitempty"`
}

// AggResult holds a metric value or a bucket document count.
type AggResult struct {
	Value    *float64 `json:"value,omitempty"`
	DocCount int      `json:"doc_count,omitempty"`
}

// Count returns the metric value or the bucket count, whichever applies.
func (a AggResult) Count() int {
	if a.Value != nil {
		return int(*a.Value)
	}
	return a.DocCount
}
