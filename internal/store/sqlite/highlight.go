package sqlite

import (
	"strings"
	"unicode"

	"github.com/giyikalim/smart-notes/internal/query"
)

const defaultFragments = 5

type hlTerm struct {
	text  string
	fuzzy bool
}

type highlighter struct {
	spec  *query.Highlight
	pre   string
	post  string
	terms []hlTerm
}

func newHighlighter(spec *query.Highlight, q *query.Query) *highlighter {
	h := &highlighter{spec: spec, pre: "<em>", post: "</em>"}
	if len(spec.PreTags) > 0 {
		h.pre = spec.PreTags[0]
	}
	if len(spec.PostTags) > 0 {
		h.post = spec.PostTags[0]
	}
	collectTerms(q, &h.terms)
	return h
}

// collectTerms gathers the full-text terms of every clause in q.
func collectTerms(q *query.Query, out *[]hlTerm) {
	switch {
	case q == nil:
	case q.Bool != nil:
		for _, list := range [][]query.Query{q.Bool.Must, q.Bool.Should, q.Bool.Filter} {
			for i := range list {
				collectTerms(&list[i], out)
			}
		}
	case q.MultiMatch != nil:
		for _, t := range tokenize(q.MultiMatch.Query) {
			*out = append(*out, hlTerm{text: t, fuzzy: q.MultiMatch.Fuzziness != ""})
		}
	case q.MatchPhrase != nil:
		for _, t := range tokenize(q.MatchPhrase.Query) {
			*out = append(*out, hlTerm{text: t})
		}
	}
}

// fragments returns marked-up snippets for each highlighted field that
// contains at least one query term.
func (h *highlighter) fragments(src map[string]any) map[string][]string {
	if len(h.terms) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for field, opts := range h.spec.Fields {
		v, ok := lookup(src, field)
		if !ok {
			continue
		}
		body := text(v)

		var chunks []string
		if opts.FragmentSize > 0 {
			chunks = chunk(body, opts.FragmentSize)
		} else {
			chunks = []string{body}
		}
		limit := opts.NumberOfFragments
		if limit <= 0 {
			limit = defaultFragments
		}

		var frags []string
		for _, c := range chunks {
			if marked, hit := h.mark(c); hit {
				frags = append(frags, marked)
				if len(frags) == limit {
					break
				}
			}
		}
		if len(frags) > 0 {
			out[field] = frags
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mark wraps every word of s that matches a query term.
func (h *highlighter) mark(s string) (string, bool) {
	var b strings.Builder
	hit := false
	start := -1
	flush := func(end int) {
		word := s[start:end]
		if h.matches(strings.ToLower(word)) {
			b.WriteString(h.pre)
			b.WriteString(word)
			b.WriteString(h.post)
			hit = true
		} else {
			b.WriteString(word)
		}
		start = -1
	}
	for i, r := range s {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case isWord && start < 0:
			start = i
		case !isWord && start >= 0:
			flush(i)
		}
		if !isWord {
			b.WriteRune(r)
		}
	}
	if start >= 0 {
		flush(len(s))
	}
	return b.String(), hit
}

func (h *highlighter) matches(word string) bool {
	for _, t := range h.terms {
		if termMatches(word, t.text, t.fuzzy) {
			return true
		}
	}
	return false
}

// chunk splits s into word-aligned pieces of at most size characters. A
// single word longer than size forms its own piece.
func chunk(s string, size int) []string {
	var out []string
	var cur strings.Builder
	n := 0
	for _, w := range strings.Fields(s) {
		wl := len([]rune(w))
		if n > 0 && n+1+wl > size {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(w)
		n += wl
	}
	if n > 0 {
		out = append(out, cur.String())
	}
	return out
}
