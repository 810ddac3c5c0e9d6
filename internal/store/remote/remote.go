// Package remote is a store.Store client for the HTTP search proxy.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/query"
	"github.com/giyikalim/smart-notes/internal/store"
)

// Config addresses one index behind the proxy.
type Config struct {
	BaseURL string
	Index   string
	Timeout time.Duration
	// Headers are sent with every request, e.g. proxy credentials.
	Headers map[string]string
}

// Store implements store.Store over HTTP.
type Store struct {
	client *resty.Client
	index  string
}

var _ store.Store = (*Store)(nil)

// New creates a client. The proxy is not contacted until the first call.
func New(cfg Config) *Store {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.Headers)
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	return &Store{client: c, index: cfg.Index}
}

type indexResponse struct {
	ID string `json:"_id"`
}

type getResponse struct {
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Total json.RawMessage `json:"total"`
		Hits  []store.Hit     `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]store.AggResult `json:"aggregations"`
}

type updateByQueryResponse struct {
	Updated int `json:"updated"`
}

// Index posts doc and returns the proxy-assigned id.
func (s *Store) Index(ctx context.Context, doc any) (string, error) {
	var out indexResponse
	resp, err := s.req(ctx).SetBody(doc).SetResult(&out).Post("/{index}/_doc")
	if err := check(resp, err, "index"); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Get fetches one document.
func (s *Store) Get(ctx context.Context, id string) (*store.Hit, error) {
	var out getResponse
	resp, err := s.req(ctx).SetPathParam("id", id).SetResult(&out).Get("/{index}/_doc/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, apperr.ErrNotFound
	}
	if err := check(resp, err, "get"); err != nil {
		return nil, err
	}
	if !out.Found {
		return nil, apperr.ErrNotFound
	}
	if out.ID == "" {
		out.ID = id
	}
	return &store.Hit{ID: out.ID, Source: out.Source}, nil
}

// Update sends a partial document.
func (s *Store) Update(ctx context.Context, id string, partial any) error {
	resp, err := s.req(ctx).
		SetPathParam("id", id).
		SetBody(map[string]any{"doc": partial}).
		Post("/{index}/_update/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	return check(resp, err, "update")
}

// Delete removes one document.
func (s *Store) Delete(ctx context.Context, id string) error {
	resp, err := s.req(ctx).SetPathParam("id", id).Delete("/{index}/_doc/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	return check(resp, err, "delete")
}

// Search posts a query request.
func (s *Store) Search(ctx context.Context, req *query.Request) (*store.SearchResult, error) {
	var out searchResponse
	resp, err := s.req(ctx).SetBody(req).SetResult(&out).Post("/{index}/_search")
	if err := check(resp, err, "search"); err != nil {
		return nil, err
	}
	return &store.SearchResult{
		Total:        parseTotal(out.Hits.Total),
		Hits:         out.Hits.Hits,
		Aggregations: out.Aggregations,
	}, nil
}

// UpdateByQuery posts a scripted bulk update.
func (s *Store) UpdateByQuery(ctx context.Context, req *query.UpdateByQuery) (int, error) {
	var out updateByQueryResponse
	resp, err := s.req(ctx).SetBody(req).SetResult(&out).Post("/{index}/_update_by_query")
	if err := check(resp, err, "update by query"); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// Ping checks that the index answers a count request.
func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.req(ctx).Get("/{index}/_count")
	return check(resp, err, "ping")
}

// Close is a no-op; the HTTP transport is shared.
func (s *Store) Close() error { return nil }

func (s *Store) req(ctx context.Context) *resty.Request {
	return s.client.R().SetContext(ctx).SetPathParam("index", s.index)
}

// check turns transport failures and non-2xx responses into errors.
func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("remote: %s: %w", op, &apperr.StoreRequestError{Message: err.Error()})
	}
	if resp.IsError() {
		return fmt.Errorf("remote: %s: %w", op, &apperr.StoreRequestError{
			Status:  resp.StatusCode(),
			Message: errorMessage(resp.Body()),
		})
	}
	return nil
}

// errorMessage extracts the proxy's "error" field, which is either a plain
// string or an object with a reason.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Error) == 0 {
		return ""
	}
	var msg string
	if json.Unmarshal(envelope.Error, &msg) == nil {
		return msg
	}
	var detail struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(envelope.Error, &detail) == nil {
		return detail.Reason
	}
	return ""
}

// parseTotal accepts both {"value": n} and a bare number.
func parseTotal(raw json.RawMessage) int {
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return n
	}
	var obj struct {
		Value int `json:"value"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Value
	}
	return 0
}
