package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/giyikalim/smart-notes/internal/ai"
	"github.com/giyikalim/smart-notes/internal/models"
	"github.com/giyikalim/smart-notes/internal/notes"
)

// CreateNoteRequest is the request body for creating a note. Every field
// but content is an optional override of the derived value.
type CreateNoteRequest struct {
	Content      string         `json:"content" example:"Toplantı notları. Proje takvimi gözden geçirildi." validate:"required"`
	Title        string         `json:"title,omitempty"`
	Summary      string         `json:"summary,omitempty"`
	Language     string         `json:"language,omitempty" example:"tr"`
	WordCount    int            `json:"word_count,omitempty"`
	AISuggestion *ai.Suggestion `json:"ai_suggestion,omitempty"`
}

// Validate validates the request.
func (r *CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Title, validation.RuneLength(0, 200)),
		validation.Field(&r.Language, validation.RuneLength(2, 8)),
		validation.Field(&r.WordCount, validation.Min(0)),
	)
}

func (r *CreateNoteRequest) input(owner string) notes.CreateInput {
	return notes.CreateInput{
		OwnerID:    owner,
		Content:    r.Content,
		Title:      r.Title,
		Summary:    r.Summary,
		Language:   r.Language,
		WordCount:  r.WordCount,
		Suggestion: r.AISuggestion,
	}
}

// UpdateNoteRequest is the request body for a partial update.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Summary *string `json:"summary,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Validate validates the request.
func (r *UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.RuneLength(0, 200)),
		validation.Field(&r.Summary, validation.NilOrNotEmpty),
		validation.Field(&r.Content, validation.NilOrNotEmpty),
	)
}

func (r *UpdateNoteRequest) patch() notes.Patch {
	return notes.Patch{Title: r.Title, Summary: r.Summary, Content: r.Content}
}

// ResetRequest selects the fields restored from the AI suggestion.
type ResetRequest struct {
	Fields []string `json:"fields,omitempty" example:"title,summary"`
}

// Validate validates the request.
func (r *ResetRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Fields, validation.Each(validation.In(notes.ResetTitle, notes.ResetSummary, notes.ResetContent))),
	)
}

// SuggestRequest is the request body for an AI suggestion.
type SuggestRequest struct {
	Text string `json:"text" validate:"required"`
}

// Validate validates the request.
func (r *SuggestRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Text, validation.Required),
	)
}

// NoteResponse is a note plus its expiry badge.
type NoteResponse struct {
	models.Note
	Expiry models.ExpiryStatus `json:"expiry"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes    []NoteResponse `json:"notes" validate:"required"`
	Total    int            `json:"total" example:"42" validate:"required"`
	Page     int            `json:"page" example:"1"`
	PageSize int            `json:"pageSize" example:"20"`
}
