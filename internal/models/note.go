// Package models defines the domain types for smart-notes.
package models

import (
	"math"
	"time"
)

// DefaultLanguage is used when neither the caller nor the AI supplies one.
const DefaultLanguage = "tr"

// MaxKeywords caps Note.Keywords.
const MaxKeywords = 8

// Note is a user-authored text record with derived metadata and a retention deadline.
// The JSON field names match the documents held by the search store.
type Note struct {
	StoreID        string              `json:"_id,omitempty"`
	ID             string              `json:"id"`
	OwnerID        string              `json:"userId"`
	Title          string              `json:"title"`
	Content        string              `json:"content"`
	Summary        string              `json:"summary"`
	Keywords       []string            `json:"keywords"`
	CreatedAt      time.Time           `json:"createdAt"`
	ExpiresAt      time.Time           `json:"expiresAt"`
	IsExpired      bool                `json:"isExpired"`
	Metadata       Metadata            `json:"metadata"`
	RelevanceScore float64             `json:"relevanceScore,omitempty"`
	Highlight      map[string][]string `json:"_highlight,omitempty"`
}

// Metadata holds analysis results and AI provenance.
type Metadata struct {
	WordCount        int         `json:"wordCount"`
	Language         string      `json:"language"`
	Sentiment        float64     `json:"sentiment"`
	ReadabilityScore int         `json:"readabilityScore"`
	LastEdited       *time.Time  `json:"lastEdited,omitempty"`
	AIMetadata       *AIMetadata `json:"aiMetadata,omitempty"`
}

// AIMetadata records what the AI suggested and whether the user diverged from it.
type AIMetadata struct {
	SuggestedTitle   string     `json:"suggestedTitle"`
	SuggestedSummary string     `json:"suggestedSummary"`
	SuggestedContent string     `json:"suggestedContent,omitempty"`
	IsAISuggested    bool       `json:"isAISuggested"`
	AILanguage       string     `json:"aiLanguage"`
	AIWordCount      int        `json:"aiWordCount"`
	UserEdited       bool       `json:"userEdited"`
	EditedAt         *time.Time `json:"editedAt,omitempty"`
}

// Expired reports whether the note is past retention, either flagged by a
// sweep or because its deadline has already passed.
func (n *Note) Expired(now time.Time) bool {
	return n.IsExpired || n.ExpiresAt.Before(now)
}

// Expiry levels used by clients to badge notes.
const (
	ExpiryExpired = "expired"
	ExpiryToday   = "today"
	ExpirySoon    = "soon"
	ExpiryWeek    = "week"
	ExpiryOK      = "ok"
)

// ExpiryStatus summarises how close a note is to its retention deadline.
type ExpiryStatus struct {
	Level    string `json:"level"`
	DaysLeft int    `json:"daysLeft"`
}

// ExpiryStatus classifies the note relative to now. DaysLeft is rounded up.
func (n *Note) ExpiryStatus(now time.Time) ExpiryStatus {
	days := int(math.Ceil(n.ExpiresAt.Sub(now).Hours() / 24))
	switch {
	case n.IsExpired:
		return ExpiryStatus{Level: ExpiryExpired, DaysLeft: days}
	case days <= 0:
		return ExpiryStatus{Level: ExpiryToday, DaysLeft: days}
	case days <= 3:
		return ExpiryStatus{Level: ExpirySoon, DaysLeft: days}
	case days <= 7:
		return ExpiryStatus{Level: ExpiryWeek, DaysLeft: days}
	default:
		return ExpiryStatus{Level: ExpiryOK, DaysLeft: days}
	}
}

// NotePage is one page of a listing or search.
type NotePage struct {
	Notes    []Note `json:"notes"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// Stats aggregates an owner's notes.
type Stats struct {
	TotalNotes       int       `json:"totalNotes"`
	ActiveNotes      int       `json:"activeNotes"`
	ExpiredNotes     int       `json:"expiredNotes"`
	AvgWordsPerNote  float64   `json:"avgWordsPerNote"`
	LastUpdated      time.Time `json:"lastUpdated"`
	AIGeneratedNotes int       `json:"aiGeneratedNotes"`
	UserEditedNotes  int       `json:"userEditedNotes"`
}
