package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/models"
	"github.com/giyikalim/smart-notes/internal/query"
)

// List returns the owner's live notes, newest first.
func (s *Service) List(ctx context.Context, ownerID string, page, pageSize int) (*models.NotePage, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	return s.page(ctx, "list", query.List(ownerID, page, pageSize), page)
}

// Search ranks the owner's live notes against text. Blank text lists instead.
func (s *Service) Search(ctx context.Context, ownerID, text string, page, pageSize int) (*models.NotePage, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		if pageSize <= 0 {
			pageSize = query.DefaultSearchSize
		}
		return s.List(ctx, ownerID, page, pageSize)
	}
	return s.page(ctx, "search", query.Search(ownerID, text, page, pageSize), page)
}

// ListByLanguage returns live notes in one language.
func (s *Service) ListByLanguage(ctx context.Context, ownerID, lang string, page, pageSize int) (*models.NotePage, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	if lang == "" {
		return nil, apperr.Invalid("language", "is required")
	}
	return s.page(ctx, "language", query.ByLanguage(ownerID, lang, page, pageSize), page)
}

// ListAIFlagged returns live notes saved from an AI suggestion.
func (s *Service) ListAIFlagged(ctx context.Context, ownerID string, page, pageSize int) (*models.NotePage, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	return s.page(ctx, "ai", query.AIFlagged(ownerID, page, pageSize), page)
}

// ListUserEdited returns live notes whose owner diverged from the AI
// suggestion, most recently edited first.
func (s *Service) ListUserEdited(ctx context.Context, ownerID string, page, pageSize int) (*models.NotePage, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	return s.page(ctx, "edited", query.UserEdited(ownerID, page, pageSize), page)
}

// Stats aggregates every note of the owner, expired ones included.
func (s *Service) Stats(ctx context.Context, ownerID string) (*models.Stats, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	res, err := s.store.Search(ctx, query.Stats(ownerID))
	if err != nil {
		return nil, fmt.Errorf("notes: stats: %w", err)
	}
	s.metrics.Query("stats")

	st := &models.Stats{
		TotalNotes:       res.Aggregations[query.AggTotal].Count(),
		ActiveNotes:      res.Aggregations[query.AggActive].Count(),
		ExpiredNotes:     res.Aggregations[query.AggExpired].Count(),
		AIGeneratedNotes: res.Aggregations[query.AggAIGenerated].Count(),
		UserEditedNotes:  res.Aggregations[query.AggUserEdited].Count(),
		LastUpdated:      s.now().UTC(),
	}
	if avg := res.Aggregations[query.AggAvgWords].Value; avg != nil {
		st.AvgWordsPerNote = *avg
	}
	if len(res.Hits) > 0 {
		if n, err := decode(&res.Hits[0]); err == nil {
			st.LastUpdated = n.CreatedAt
		}
	}
	return st, nil
}

func (s *Service) page(ctx context.Context, kind string, req *query.Request, page int) (*models.NotePage, error) {
	res, err := s.store.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("notes: %s: %w", kind, err)
	}
	s.metrics.Query(kind)

	if page < 1 {
		page = 1
	}
	out := &models.NotePage{
		Notes:    make([]models.Note, 0, len(res.Hits)),
		Total:    res.Total,
		Page:     page,
		PageSize: req.Size,
	}
	now := s.now()
	for i := range res.Hits {
		n, err := decode(&res.Hits[i])
		if err != nil {
			return nil, err
		}
		n.IsExpired = n.Expired(now)
		out.Notes = append(out.Notes, *n)
	}
	return out, nil
}
