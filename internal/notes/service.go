// Package notes is the note lifecycle manager. It reconciles user input,
// locally derived analysis and AI suggestions into the documents persisted
// by the store, and owns expiry.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/giyikalim/smart-notes/internal/ai"
	"github.com/giyikalim/smart-notes/internal/analyzer"
	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/metrics"
	"github.com/giyikalim/smart-notes/internal/models"
	"github.com/giyikalim/smart-notes/internal/query"
	"github.com/giyikalim/smart-notes/internal/store"
)

// DefaultRetentionMonths is how long a note lives before it expires.
const DefaultRetentionMonths = 3

// Event kinds passed to the Publisher.
const (
	EventCreated  = "note.created"
	EventUpdated  = "note.updated"
	EventDeleted  = "note.deleted"
	EventExtended = "note.extended"
	EventExpired  = "notes.expired"
)

// Event describes a completed mutation. OwnerID is empty for sweeps, which
// span every owner.
type Event struct {
	Kind    string
	OwnerID string
	NoteID  string
	Count   int
}

// Publisher receives mutation events, e.g. the SSE broker.
type Publisher interface {
	Publish(Event)
}

// Service coordinates the analyzer, the AI client and the document store.
type Service struct {
	store    store.Store
	analyzer *analyzer.Analyzer
	ai       ai.Suggester
	metrics  *metrics.Collector
	events   Publisher
	logger   *slog.Logger
	now      func() time.Time
	months   int
	ids      *idGenerator
}

// Option configures a Service.
type Option func(*Service)

// WithSuggester enables AI suggestions. Without one, Suggest always falls back.
func WithSuggester(s ai.Suggester) Option {
	return func(svc *Service) { svc.ai = s }
}

// WithMetrics records lifecycle counters.
func WithMetrics(m *metrics.Collector) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithPublisher receives an event after every successful mutation.
func WithPublisher(p Publisher) Option {
	return func(svc *Service) { svc.events = p }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// WithRetention sets the retention window in months.
func WithRetention(months int) Option {
	return func(svc *Service) {
		if months > 0 {
			svc.months = months
		}
	}
}

// NewService creates a lifecycle manager over st.
func NewService(st store.Store, an *analyzer.Analyzer, opts ...Option) (*Service, error) {
	ids, err := newIDGenerator()
	if err != nil {
		return nil, fmt.Errorf("notes: id generator: %w", err)
	}
	svc := &Service{
		store:    st,
		analyzer: an,
		logger:   slog.Default(),
		now:      time.Now,
		months:   DefaultRetentionMonths,
		ids:      ids,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Analyzer returns the text analyzer used for derived fields.
func (s *Service) Analyzer() *analyzer.Analyzer { return s.analyzer }

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.now() }

// Analyze runs the text analyzer without persisting anything.
func (s *Service) Analyze(content string) analyzer.Analysis {
	return s.analyzer.Analyze(content)
}

// Ping checks the document store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Get returns the note addressed by either its store id or application id.
// Notes of other owners are reported as not found.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.Note, error) {
	n, err := s.resolve(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	n.IsExpired = n.Expired(s.now())
	return n, nil
}

// resolve looks id up directly as a store id, then as an application id.
// Only a not-found answer triggers the fallback; other failures propagate.
func (s *Service) resolve(ctx context.Context, ownerID, id string) (*models.Note, error) {
	if id == "" {
		return nil, apperr.ErrNotFound
	}

	hit, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		res, serr := s.store.Search(ctx, query.ByApplicationID(id))
		if serr != nil {
			return nil, serr
		}
		if len(res.Hits) == 0 {
			return nil, apperr.ErrNotFound
		}
		hit = &res.Hits[0]
	default:
		return nil, err
	}

	n, err := decode(hit)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && n.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}
	return n, nil
}

func decode(h *store.Hit) (*models.Note, error) {
	var n models.Note
	if err := h.Decode(&n); err != nil {
		return nil, fmt.Errorf("notes: decode %s: %w", h.ID, err)
	}
	n.StoreID = h.ID
	n.RelevanceScore = h.Score
	n.Highlight = h.Highlight
	if n.Keywords == nil {
		n.Keywords = []string{}
	}
	return &n, nil
}

func (s *Service) publish(e Event) {
	if s.events != nil {
		s.events.Publish(e)
	}
}

func (s *Service) expiry(from time.Time) time.Time {
	return from.AddDate(0, s.months, 0)
}
