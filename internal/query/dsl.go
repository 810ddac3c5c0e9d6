// Package query builds the search payloads sent to the document store.
//
// Every type marshals to the store's JSON query language. The same values
// are evaluated in process by the embedded store, so the builders never
// depend on which driver is configured.
package query

import (
	"encoding/json"
)

// Query is a single clause. Exactly one field is set.
type Query struct {
	Bool        *Bool
	Term        *Term
	Range       *Range
	Exists      *Exists
	MultiMatch  *MultiMatch
	MatchPhrase *MatchPhrase
}

// MarshalJSON wraps the clause in its type key.
func (q Query) MarshalJSON() ([]byte, error) {
	switch {
	case q.Bool != nil:
		return json.Marshal(map[string]any{"bool": q.Bool})
	case q.Term != nil:
		return json.Marshal(map[string]any{"term": map[string]any{q.Term.Field: q.Term.Value}})
	case q.Range != nil:
		return json.Marshal(map[string]any{"range": map[string]any{q.Range.Field: q.Range}})
	case q.Exists != nil:
		return json.Marshal(map[string]any{"exists": q.Exists})
	case q.MultiMatch != nil:
		return json.Marshal(map[string]any{"multi_match": q.MultiMatch})
	case q.MatchPhrase != nil:
		return json.Marshal(map[string]any{"match_phrase": map[string]any{q.MatchPhrase.Field: q.MatchPhrase}})
	}
	return []byte(`{"match_all":{}}`), nil
}

// Bool combines clauses. Must and Should contribute to the score, Filter
// and MustNot do not. Should is optional when Must or Filter is present,
// unless MinimumShouldMatch says otherwise.
type Bool struct {
	Must               []Query `json:"must,omitempty"`
	Filter             []Query `json:"filter,omitempty"`
	Should             []Query `json:"should,omitempty"`
	MustNot            []Query `json:"must_not,omitempty"`
	MinimumShouldMatch int     `json:"minimum_should_match,omitempty"`
}

// Term is an exact match. Value is a string, bool or number.
type Term struct {
	Field string
	Value any
}

// Range bounds a date or numeric field. Bounds may be the literal "now".
type Range struct {
	Field string `json:"-"`
	Gte   any    `json:"gte,omitempty"`
	Gt    any    `json:"gt,omitempty"`
	Lte   any    `json:"lte,omitempty"`
	Lt    any    `json:"lt,omitempty"`
}

// Exists matches documents where Field is present and not null.
type Exists struct {
	Field string `json:"field"`
}

// MultiMatch runs one full-text query over several weighted fields.
// Fields use the "name^boost" notation.
type MultiMatch struct {
	Query              string   `json:"query"`
	Fields             []string `json:"fields"`
	Type               string   `json:"type,omitempty"`
	Fuzziness          string   `json:"fuzziness,omitempty"`
	Operator           string   `json:"operator,omitempty"`
	MinimumShouldMatch string   `json:"minimum_should_match,omitempty"`
	TieBreaker         float64  `json:"tie_breaker,omitempty"`
}

// MatchPhrase matches terms of Query in order, within Slop positions.
type MatchPhrase struct {
	Field string  `json:"-"`
	Query string  `json:"query"`
	Slop  int     `json:"slop,omitempty"`
	Boost float64 `json:"boost,omitempty"`
}

// SortField orders hits by Field. "_score" sorts by relevance.
type SortField struct {
	Field string
	Order string
}

// MarshalJSON renders {"field": {"order": "..."}}.
func (s SortField) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{s.Field: map[string]string{"order": s.Order}})
}

// Highlight requests marked-up fragments for matching fields.
type Highlight struct {
	Fields   map[string]HighlightField `json:"fields"`
	PreTags  []string                  `json:"pre_tags,omitempty"`
	PostTags []string                  `json:"post_tags,omitempty"`
}

// HighlightField configures fragments for one field. Zero values mean the
// whole field value as a single fragment.
type HighlightField struct {
	FragmentSize      int `json:"fragment_size,omitempty"`
	NumberOfFragments int `json:"number_of_fragments,omitempty"`
}

// Agg is one aggregation. Exactly one field is set.
type Agg struct {
	ValueCount *FieldRef `json:"value_count,omitempty"`
	Avg        *FieldRef `json:"avg,omitempty"`
	Filter     *Query    `json:"filter,omitempty"`
}

// FieldRef names the field an aggregation reads.
type FieldRef struct {
	Field string `json:"field"`
}

// Request is a search request body.
type Request struct {
	Query     *Query         `json:"query,omitempty"`
	Highlight *Highlight     `json:"highlight,omitempty"`
	Sort      []SortField    `json:"sort,omitempty"`
	From      int            `json:"from"`
	Size      int            `json:"size"`
	Aggs      map[string]Agg `json:"aggs,omitempty"`
}

// UpdateByQuery applies Script to every document matching Query.
type UpdateByQuery struct {
	Query  *Query `json:"query"`
	Script Script `json:"script"`
}

// Script is a stored-field assignment in the store's scripting language.
type Script struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// Helpers for building clauses.

func TermQ(field string, value any) Query { return Query{Term: &Term{Field: field, Value: value}} }

func ExistsQ(field string) Query { return Query{Exists: &Exists{Field: field}} }

func BoolQ(b Bool) Query { return Query{Bool: &b} }
