package sqlite

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/giyikalim/smart-notes/internal/query"
	"github.com/giyikalim/smart-notes/internal/store"
)

type evaluator struct {
	now time.Time
}

// match reports whether q matches src and the relevance it contributes.
// A nil query matches everything.
func (e *evaluator) match(q *query.Query, src map[string]any) (bool, float64) {
	switch {
	case q == nil:
		return true, 1
	case q.Bool != nil:
		return e.matchBool(q.Bool, src)
	case q.Term != nil:
		return e.matchTerm(q.Term, src), 1
	case q.Range != nil:
		return e.matchRange(q.Range, src), 1
	case q.Exists != nil:
		v, ok := lookup(src, q.Exists.Field)
		return ok && v != nil, 1
	case q.MultiMatch != nil:
		return matchMulti(q.MultiMatch, src)
	case q.MatchPhrase != nil:
		return matchPhrase(q.MatchPhrase, src)
	}
	return true, 1
}

func (e *evaluator) matchBool(b *query.Bool, src map[string]any) (bool, float64) {
	var score float64
	for i := range b.Must {
		ok, s := e.match(&b.Must[i], src)
		if !ok {
			return false, 0
		}
		score += s
	}
	for i := range b.Filter {
		if ok, _ := e.match(&b.Filter[i], src); !ok {
			return false, 0
		}
	}
	for i := range b.MustNot {
		if ok, _ := e.match(&b.MustNot[i], src); ok {
			return false, 0
		}
	}

	need := b.MinimumShouldMatch
	if need == 0 && len(b.Must) == 0 && len(b.Filter) == 0 && len(b.Should) > 0 {
		need = 1
	}
	hits := 0
	for i := range b.Should {
		if ok, s := e.match(&b.Should[i], src); ok {
			hits++
			score += s
		}
	}
	if hits < need {
		return false, 0
	}
	return true, score
}

func (e *evaluator) matchTerm(t *query.Term, src map[string]any) bool {
	v, ok := lookup(src, t.Field)
	if !ok {
		return false
	}
	want := normalize(t.Value)
	if list, isList := v.([]any); isList {
		for _, item := range list {
			if item == want {
				return true
			}
		}
		return false
	}
	return v == want
}

func (e *evaluator) matchRange(r *query.Range, src map[string]any) bool {
	v, ok := lookup(src, r.Field)
	if !ok || v == nil {
		return false
	}
	checks := []struct {
		bound any
		pass  func(c int) bool
	}{
		{r.Gte, func(c int) bool { return c >= 0 }},
		{r.Gt, func(c int) bool { return c > 0 }},
		{r.Lte, func(c int) bool { return c <= 0 }},
		{r.Lt, func(c int) bool { return c < 0 }},
	}
	for _, chk := range checks {
		if chk.bound == nil {
			continue
		}
		c, comparable := e.compare(v, chk.bound)
		if !comparable || !chk.pass(c) {
			return false
		}
	}
	return true
}

// compare orders a document value against a range bound. Bounds that are
// "now" or timestamps compare as times, everything else as numbers.
func (e *evaluator) compare(v, bound any) (int, bool) {
	var bt time.Time
	switch b := bound.(type) {
	case time.Time:
		bt = b
	case string:
		if b == query.Now {
			bt = e.now
		} else if t, err := time.Parse(time.RFC3339Nano, b); err == nil {
			bt = t
		} else {
			return 0, false
		}
	default:
		bf, ok := toFloat(bound)
		vf, vok := toFloat(v)
		if !ok || !vok {
			return 0, false
		}
		return cmpFloat(vf, bf), true
	}

	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	vt, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, false
	}
	return vt.Compare(bt), true
}

// matchMulti scores best_fields style: the best field counts fully, the
// others contribute through the tie breaker. Each field must contain at
// least the minimum number of query terms to count as a hit.
func matchMulti(m *query.MultiMatch, src map[string]any) (bool, float64) {
	terms := tokenize(m.Query)
	if len(terms) == 0 {
		return false, 0
	}
	need := minimumShouldMatch(m.MinimumShouldMatch, len(terms))
	if strings.EqualFold(m.Operator, "and") {
		need = len(terms)
	}
	fuzzy := m.Fuzziness != ""

	var best float64
	var rest float64
	hit := false
	for _, spec := range m.Fields {
		field, boost := parseBoost(spec)
		v, ok := lookup(src, field)
		if !ok {
			continue
		}
		tokens := tokenize(text(v))
		n := 0
		for _, term := range terms {
			if containsTerm(tokens, term, fuzzy) {
				n++
			}
		}
		if n < need {
			continue
		}
		hit = true
		s := boost * float64(n) / float64(len(terms))
		if s > best {
			rest += best
			best = s
		} else {
			rest += s
		}
	}
	if !hit {
		return false, 0
	}
	return true, best + m.TieBreaker*rest
}

func matchPhrase(p *query.MatchPhrase, src map[string]any) (bool, float64) {
	terms := tokenize(p.Query)
	if len(terms) == 0 {
		return false, 0
	}
	v, ok := lookup(src, p.Field)
	if !ok {
		return false, 0
	}
	tokens := tokenize(text(v))
	for _, term := range terms {
		if !containsTerm(tokens, term, false) {
			return false, 0
		}
	}
	boost := p.Boost
	if boost == 0 {
		boost = 1
	}
	return true, boost
}

// sort orders matches by the requested fields; missing values go last.
func (e *evaluator) sort(hits []scored, fields []query.SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(hits, func(i, j int) bool {
		for _, f := range fields {
			c := compareField(hits[i], hits[j], f.Field)
			if c == 0 {
				continue
			}
			if f.Order == "desc" {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareField(a, b scored, field string) int {
	if field == query.FieldScore {
		return cmpFloat(a.score, b.score)
	}
	av, aok := lookup(a.src, field)
	bv, bok := lookup(b.src, field)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	if as, ok := av.(string); ok {
		bs, _ := bv.(string)
		at, aerr := time.Parse(time.RFC3339Nano, as)
		bt, berr := time.Parse(time.RFC3339Nano, bs)
		if aerr == nil && berr == nil {
			return at.Compare(bt)
		}
		return strings.Compare(as, bs)
	}
	af, _ := toFloat(av)
	bf, _ := toFloat(bv)
	return cmpFloat(af, bf)
}

func (e *evaluator) aggregate(aggs map[string]query.Agg, hits []scored) map[string]store.AggResult {
	out := make(map[string]store.AggResult, len(aggs))
	for name, agg := range aggs {
		switch {
		case agg.ValueCount != nil:
			n := 0
			for _, h := range hits {
				if v, ok := lookup(h.src, agg.ValueCount.Field); ok && v != nil {
					n++
				}
			}
			f := float64(n)
			out[name] = store.AggResult{Value: &f}
		case agg.Avg != nil:
			var sum float64
			n := 0
			for _, h := range hits {
				v, _ := lookup(h.src, agg.Avg.Field)
				if f, ok := toFloat(v); ok {
					sum += f
					n++
				}
			}
			r := store.AggResult{}
			if n > 0 {
				avg := sum / float64(n)
				r.Value = &avg
			}
			out[name] = r
		case agg.Filter != nil:
			n := 0
			for _, h := range hits {
				if ok, _ := e.match(agg.Filter, h.src); ok {
					n++
				}
			}
			out[name] = store.AggResult{DocCount: n}
		}
	}
	return out
}

// lookup resolves a dotted path. A trailing ".keyword" addresses the exact
// value of a text field.
func lookup(src map[string]any, path string) (any, bool) {
	var cur any = src
	for _, part := range strings.Split(stripKeyword(path), ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(src map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := src
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func stripKeyword(field string) string {
	return strings.TrimSuffix(field, ".keyword")
}

// parseBoost splits "field^2.5" into its name and weight.
func parseBoost(spec string) (string, float64) {
	name, weight, found := strings.Cut(spec, "^")
	if !found {
		return name, 1
	}
	w, err := strconv.ParseFloat(weight, 64)
	if err != nil {
		return name, 1
	}
	return name, w
}

// minimumShouldMatch resolves "50%" or "2" against n terms, never below one.
func minimumShouldMatch(spec string, n int) int {
	need := 1
	if pct, ok := strings.CutSuffix(spec, "%"); ok {
		if p, err := strconv.ParseFloat(pct, 64); err == nil {
			need = int(math.Floor(float64(n) * p / 100))
		}
	} else if v, err := strconv.Atoi(spec); err == nil {
		need = v
	}
	return max(1, min(need, n))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsTerm(tokens []string, term string, fuzzy bool) bool {
	for _, tok := range tokens {
		if termMatches(tok, term, fuzzy) {
			return true
		}
	}
	return false
}

func termMatches(tok, term string, fuzzy bool) bool {
	if tok == term {
		return true
	}
	if !fuzzy {
		return false
	}
	return levenshtein(tok, term) <= autoFuzziness(term)
}

// autoFuzziness mirrors the AUTO edit distance: exact for short terms, one
// edit up to five characters, two beyond.
func autoFuzziness(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// text flattens a field value for full-text matching.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, text(item))
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// normalize maps Go values onto the types encoding/json decodes into.
func normalize(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
