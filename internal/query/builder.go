package query

import "strings"

// Document field paths.
const (
	FieldID         = "id"
	FieldOwner      = "userId"
	FieldTitle      = "title"
	FieldContent    = "content"
	FieldSummary    = "summary"
	FieldKeywords   = "keywords"
	FieldCreatedAt  = "createdAt"
	FieldExpiresAt  = "expiresAt"
	FieldIsExpired  = "isExpired"
	FieldLanguage   = "metadata.language"
	FieldWordCount  = "metadata.wordCount"
	FieldAIMetadata = "metadata.aiMetadata"
	FieldUserEdited = "metadata.aiMetadata.userEdited"
	FieldEditedAt   = "metadata.aiMetadata.editedAt"
	FieldScore      = "_score"
)

// Now is the date-math literal for the store's current time.
const Now = "now"

// Pagination defaults.
const (
	DefaultListSize   = 20
	DefaultSearchSize = 10
	MaxPageSize       = 100
)

// Highlight markers wrapped around matched terms.
const (
	HighlightPre  = "<mark>"
	HighlightPost = "</mark>"
)

// Stats aggregation names.
const (
	AggTotal       = "total_notes"
	AggActive      = "active_notes"
	AggExpired     = "expired_notes"
	AggAvgWords    = "avg_words"
	AggAIGenerated = "ai_generated"
	AggUserEdited  = "user_edited"
)

// SweepScript flips the expiry flag on matched documents.
const SweepScript = "ctx._source.isExpired = params.expired"

// Paginate turns a 1-based page number into an offset. Pages below 1 are
// treated as 1; sizes are defaulted and capped at MaxPageSize.
func Paginate(page, size, def int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return (page - 1) * size, size
}

// live is the expiry filter shared by every listing and search.
func live() []Query {
	return []Query{
		TermQ(FieldIsExpired, false),
		{Range: &Range{Field: FieldExpiresAt, Gte: Now}},
	}
}

func newest() []SortField {
	return []SortField{{Field: FieldCreatedAt, Order: "desc"}}
}

func listing(ownerID string, page, size int, sort []SortField, extra ...Query) *Request {
	from, limit := Paginate(page, size, DefaultListSize)
	return &Request{
		Query: &Query{Bool: &Bool{
			Must:   []Query{TermQ(FieldOwner, ownerID)},
			Filter: append(live(), extra...),
		}},
		Sort: sort,
		From: from,
		Size: limit,
	}
}

// List returns the owner's live notes, newest first.
func List(ownerID string, page, pageSize int) *Request {
	return listing(ownerID, page, pageSize, newest())
}

// ByLanguage is List restricted to one metadata language.
func ByLanguage(ownerID, lang string, page, pageSize int) *Request {
	return listing(ownerID, page, pageSize, newest(), TermQ(FieldLanguage+".keyword", lang))
}

// AIFlagged is List restricted to notes that carry an AI suggestion.
func AIFlagged(ownerID string, page, pageSize int) *Request {
	return listing(ownerID, page, pageSize, newest(), ExistsQ(FieldAIMetadata))
}

// UserEdited is List restricted to AI notes the user has diverged from,
// most recently edited first.
func UserEdited(ownerID string, page, pageSize int) *Request {
	return listing(ownerID, page, pageSize,
		[]SortField{{Field: FieldEditedAt, Order: "desc"}},
		ExistsQ(FieldAIMetadata),
		TermQ(FieldUserEdited, true),
	)
}

// Search ranks the owner's live notes against text. A multi-field fuzzy
// match and a sloppy phrase match on content are alternatives; at least one
// must hit.
func Search(ownerID, text string, page, pageSize int) *Request {
	from, limit := Paginate(page, pageSize, DefaultSearchSize)
	text = strings.TrimSpace(text)

	relevance := BoolQ(Bool{
		Should: []Query{
			{MultiMatch: &MultiMatch{
				Query:              text,
				Fields:             []string{FieldContent + "^3", FieldTitle + "^2", FieldKeywords + "^1.5", FieldSummary},
				Type:               "best_fields",
				Fuzziness:          "AUTO",
				Operator:           "or",
				MinimumShouldMatch: "50%",
				TieBreaker:         0.3,
			}},
			{MatchPhrase: &MatchPhrase{Field: FieldContent, Query: text, Slop: 50, Boost: 2}},
		},
		MinimumShouldMatch: 1,
	})

	return &Request{
		Query: &Query{Bool: &Bool{
			Must:   []Query{TermQ(FieldOwner, ownerID), relevance},
			Filter: live(),
		}},
		Highlight: &Highlight{
			Fields: map[string]HighlightField{
				FieldContent: {FragmentSize: 150, NumberOfFragments: 3},
				FieldTitle:   {},
			},
			PreTags:  []string{HighlightPre},
			PostTags: []string{HighlightPost},
		},
		Sort: []SortField{
			{Field: FieldScore, Order: "desc"},
			{Field: FieldCreatedAt, Order: "desc"},
		},
		From: from,
		Size: limit,
	}
}

// ByApplicationID finds a note by its application id regardless of owner
// or expiry. Callers check ownership on the result.
func ByApplicationID(id string) *Request {
	return &Request{
		Query: &Query{Bool: &Bool{Filter: []Query{TermQ(FieldID+".keyword", id)}}},
		Size:  1,
	}
}

// Stats aggregates the owner's notes, expired ones included. The single
// hit returned is the most recently created note.
func Stats(ownerID string) *Request {
	return &Request{
		Query: &Query{Bool: &Bool{Filter: []Query{TermQ(FieldOwner, ownerID)}}},
		Sort:  newest(),
		Size:  1,
		Aggs: map[string]Agg{
			AggTotal:       {ValueCount: &FieldRef{Field: FieldID + ".keyword"}},
			AggActive:      {Filter: ptr(TermQ(FieldIsExpired, false))},
			AggExpired:     {Filter: ptr(TermQ(FieldIsExpired, true))},
			AggAvgWords:    {Avg: &FieldRef{Field: FieldWordCount}},
			AggAIGenerated: {Filter: ptr(ExistsQ(FieldAIMetadata))},
			AggUserEdited:  {Filter: ptr(TermQ(FieldUserEdited, true))},
		},
	}
}

// SweepExpired marks every overdue, still-active note as expired. Notes
// already flagged are excluded so a repeated sweep touches nothing.
func SweepExpired() *UpdateByQuery {
	return &UpdateByQuery{
		Query: &Query{Bool: &Bool{Filter: []Query{
			{Range: &Range{Field: FieldExpiresAt, Lte: Now}},
			TermQ(FieldIsExpired, false),
		}}},
		Script: Script{
			Source: SweepScript,
			Lang:   "painless",
			Params: map[string]any{"expired": true},
		},
	}
}

func ptr(q Query) *Query { return &q }
