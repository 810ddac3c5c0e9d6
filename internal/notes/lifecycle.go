package notes

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/giyikalim/smart-notes/internal/ai"
	"github.com/giyikalim/smart-notes/internal/analyzer"
	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/models"
	"github.com/giyikalim/smart-notes/internal/query"
)

// CreateInput is everything a caller can supply when saving a new note.
// Empty strings and zero counts mean "not supplied".
type CreateInput struct {
	OwnerID   string
	Content   string
	Title     string
	Summary   string
	Language  string
	WordCount int
	// Keywords are kept ahead of the derived ones, e.g. imported tags.
	Keywords []string
	// Suggestion is the AI proposal shown to the user before saving, if any.
	Suggestion *ai.Suggestion
}

// Patch is a partial update. Nil fields are left alone.
type Patch struct {
	Title   *string
	Summary *string
	Content *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Summary == nil && p.Content == nil
}

// Reset targets for ResetToAI.
const (
	ResetTitle   = "title"
	ResetSummary = "summary"
	ResetContent = "content"
)

// Create persists a new note. Title, summary, word count and language each
// resolve to the explicit override, then the AI suggestion, then the
// analyzer's derivation. AI metadata is stored only when a suggestion was
// supplied, already marked as edited if the overrides diverge from it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Note, error) {
	if in.OwnerID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Invalid("content", "must not be empty")
	}

	now := s.now().UTC()
	an := s.analyzer.Analyze(in.Content)
	sug := in.Suggestion
	if sug == nil {
		sug = &ai.Suggestion{}
	}

	id, err := s.ids.next(now)
	if err != nil {
		return nil, err
	}

	n := &models.Note{
		ID:        id,
		OwnerID:   in.OwnerID,
		Title:     firstNonEmpty(in.Title, sug.Title, an.Title),
		Content:   in.Content,
		Summary:   firstNonEmpty(in.Summary, sug.Summary, an.Summary),
		Keywords:  analyzer.MergeKeywords(in.Keywords, an.Keywords),
		CreatedAt: now,
		ExpiresAt: s.expiry(now),
		Metadata: models.Metadata{
			WordCount:        firstPositive(in.WordCount, sug.WordCount, an.WordCount),
			Language:         firstNonEmpty(in.Language, sug.Language, an.Language, models.DefaultLanguage),
			Sentiment:        an.Sentiment,
			ReadabilityScore: an.Readability,
		},
	}

	state, err := models.ProvenanceDraft.Created(in.Suggestion != nil)
	if err != nil {
		return nil, err
	}
	if in.Suggestion != nil {
		meta := &models.AIMetadata{
			SuggestedTitle:   sug.Title,
			SuggestedSummary: sug.Summary,
			SuggestedContent: sug.Content,
			IsAISuggested:    true,
			AILanguage:       firstNonEmpty(sug.Language, models.DefaultLanguage),
			AIWordCount:      firstPositive(sug.WordCount, an.WordCount),
		}
		diverged := (in.Title != "" && differs(in.Title, sug.Title)) ||
			(in.Summary != "" && differs(in.Summary, sug.Summary))
		if state, err = state.Updated(diverged); err != nil {
			return nil, err
		}
		if state == models.ProvenanceAIEdited {
			meta.UserEdited = true
			meta.EditedAt = &now
		}
		n.Metadata.AIMetadata = meta
	}

	storeID, err := s.store.Index(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("notes: create: %w", err)
	}
	n.StoreID = storeID

	s.metrics.NoteMutation("create")
	s.publish(Event{Kind: EventCreated, OwnerID: n.OwnerID, NoteID: n.ID})
	s.logger.Debug("note created",
		slog.String("id", n.ID),
		slog.String("store_id", storeID),
		slog.String("provenance", string(state)))
	return n, nil
}

// Update applies a partial edit and returns the note as stored afterwards.
// New content is re-analyzed and, unless the patch also carries them,
// replaces the title and summary with freshly derived ones. When the note
// has AI metadata, the divergence from the suggestion is recomputed.
func (s *Service) Update(ctx context.Context, ownerID, id string, p Patch) (*models.Note, error) {
	if p.Empty() {
		return nil, apperr.Invalid("patch", "must change title, summary or content")
	}
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return nil, apperr.Invalid("content", "must not be empty")
	}

	existing, err := s.resolve(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := map[string]any{}
	meta := map[string]any{"lastEdited": now}

	title, summary, content := existing.Title, existing.Summary, existing.Content
	if p.Content != nil {
		content = *p.Content
		an := s.analyzer.Analyze(content)
		doc["content"] = content
		doc["keywords"] = an.Keywords
		meta["wordCount"] = an.WordCount
		meta["sentiment"] = an.Sentiment
		meta["readabilityScore"] = an.Readability
		title, summary = an.Title, an.Summary
	}
	if p.Title != nil {
		title = *p.Title
	}
	if p.Summary != nil {
		summary = *p.Summary
	}
	doc["title"] = title
	doc["summary"] = summary

	if sug := existing.Metadata.AIMetadata; sug != nil {
		diverged := differs(title, sug.SuggestedTitle) ||
			differs(summary, sug.SuggestedSummary) ||
			differs(content, sug.SuggestedContent)
		state, err := models.ProvenanceOf(existing).Updated(diverged)
		if err != nil {
			return nil, err
		}
		meta["aiMetadata"] = map[string]any{
			"userEdited": state == models.ProvenanceAIEdited,
			"editedAt":   now,
		}
	}
	doc["metadata"] = meta

	if err := s.store.Update(ctx, existing.StoreID, doc); err != nil {
		return nil, fmt.Errorf("notes: update: %w", err)
	}
	s.metrics.NoteMutation("update")
	s.publish(Event{Kind: EventUpdated, OwnerID: existing.OwnerID, NoteID: existing.ID})
	return s.Get(ctx, ownerID, existing.StoreID)
}

// ExtendExpiry restarts the retention window from now and clears the
// expired flag, whatever the current state.
func (s *Service) ExtendExpiry(ctx context.Context, ownerID, id string) (*models.Note, error) {
	existing, err := s.resolve(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{
		"expiresAt": s.expiry(s.now().UTC()),
		"isExpired": false,
	}
	if err := s.store.Update(ctx, existing.StoreID, doc); err != nil {
		return nil, fmt.Errorf("notes: extend: %w", err)
	}
	s.metrics.NoteMutation("extend")
	s.publish(Event{Kind: EventExtended, OwnerID: existing.OwnerID, NoteID: existing.ID})
	return s.Get(ctx, ownerID, existing.StoreID)
}

// Delete removes the note permanently.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	existing, err := s.resolve(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, existing.StoreID); err != nil {
		return fmt.Errorf("notes: delete: %w", err)
	}
	s.metrics.NoteMutation("delete")
	s.publish(Event{Kind: EventDeleted, OwnerID: existing.OwnerID, NoteID: existing.ID})
	return nil
}

// ResetToAI copies the stored AI suggestion back onto the chosen fields.
// No fields means title and summary. The edited flag is left as is.
func (s *Service) ResetToAI(ctx context.Context, ownerID, id string, fields []string) (*models.Note, error) {
	if len(fields) == 0 {
		fields = []string{ResetTitle, ResetSummary}
	}
	for _, f := range fields {
		if !slices.Contains([]string{ResetTitle, ResetSummary, ResetContent}, f) {
			return nil, apperr.Invalid("fields", fmt.Sprintf("unknown field %q", f))
		}
	}

	existing, err := s.resolve(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	sug := existing.Metadata.AIMetadata
	if sug == nil {
		return nil, apperr.Invalid("fields", "note has no AI suggestion")
	}

	now := s.now().UTC()
	doc := map[string]any{}
	meta := map[string]any{"lastEdited": now}
	for _, f := range fields {
		switch f {
		case ResetTitle:
			doc["title"] = sug.SuggestedTitle
		case ResetSummary:
			doc["summary"] = sug.SuggestedSummary
		case ResetContent:
			if sug.SuggestedContent == "" {
				return nil, apperr.Invalid("fields", "note has no suggested content")
			}
			an := s.analyzer.Analyze(sug.SuggestedContent)
			doc["content"] = sug.SuggestedContent
			doc["keywords"] = an.Keywords
			meta["wordCount"] = an.WordCount
			meta["sentiment"] = an.Sentiment
			meta["readabilityScore"] = an.Readability
		}
	}
	doc["metadata"] = meta

	if err := s.store.Update(ctx, existing.StoreID, doc); err != nil {
		return nil, fmt.Errorf("notes: reset: %w", err)
	}
	s.metrics.NoteMutation("reset")
	s.publish(Event{Kind: EventUpdated, OwnerID: existing.OwnerID, NoteID: existing.ID})
	return s.Get(ctx, ownerID, existing.StoreID)
}

// SweepExpired flags every overdue note as expired and returns how many
// were flagged. Running it again right away flags none.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.store.UpdateByQuery(ctx, query.SweepExpired())
	if err != nil {
		return 0, fmt.Errorf("notes: sweep: %w", err)
	}
	s.metrics.NotesExpired(n)
	if n > 0 {
		s.publish(Event{Kind: EventExpired, Count: n})
	}
	s.logger.Info("expiry sweep finished", slog.Int("expired", n))
	return n, nil
}

// differs reports whether value departs from a suggested field. Fields the
// AI left empty were never suggested and cannot be diverged from.
func differs(value, suggested string) bool {
	return suggested != "" && value != suggested
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
