// Package analyzer derives titles, summaries, keywords, sentiment and
// readability from raw note text using plain heuristics. It does no I/O;
// full-text ranking is left to the document store.
package analyzer

import (
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/giyikalim/smart-notes/internal/lexicon"
	"github.com/giyikalim/smart-notes/internal/models"
)

const (
	titleMaxRunes        = 60
	summaryMinSentence   = 10
	summaryRawRunes      = 100
	summarySingleRunes   = 150
	summaryMaxRunes      = 200
	summarySeparator     = "... "
	ellipsis             = "..."
	minKeywordRunes      = 4
	titleKeywordCount    = 3
	defaultSentimentStep = 0.1
)

// Analysis bundles every derived field for one piece of content.
type Analysis struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	Sentiment   float64  `json:"sentiment"`
	Readability int      `json:"readabilityScore"`
	WordCount   int      `json:"wordCount"`
	Language    string   `json:"language"`
}

// Analyzer is safe for concurrent use. The lexicon can be swapped at runtime.
type Analyzer struct {
	lex       atomic.Pointer[lexicon.Lexicon]
	step      float64
	foldTag   language.Tag
	defaultLg string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithSentimentStep sets the score added or removed per lexicon hit.
func WithSentimentStep(step float64) Option {
	return func(a *Analyzer) {
		if step > 0 {
			a.step = step
		}
	}
}

// WithCaseLanguage sets the locale used for case folding. The default is
// locale-neutral, so an English capital I folds to i rather than ı.
func WithCaseLanguage(tag language.Tag) Option {
	return func(a *Analyzer) { a.foldTag = tag }
}

// WithDefaultLanguage sets the language reported when detection is inconclusive.
func WithDefaultLanguage(lang string) Option {
	return func(a *Analyzer) {
		if lang != "" {
			a.defaultLg = lang
		}
	}
}

// New returns an Analyzer using lex, or the built-in lexicon when lex is nil.
func New(lex *lexicon.Lexicon, opts ...Option) *Analyzer {
	if lex == nil {
		lex = lexicon.Default()
	}
	a := &Analyzer{
		step:      defaultSentimentStep,
		foldTag:   language.Und,
		defaultLg: models.DefaultLanguage,
	}
	a.lex.Store(lex)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetLexicon replaces the active lexicon.
func (a *Analyzer) SetLexicon(lex *lexicon.Lexicon) {
	if lex != nil {
		a.lex.Store(lex)
	}
}

// Lexicon returns the active lexicon.
func (a *Analyzer) Lexicon() *lexicon.Lexicon {
	return a.lex.Load()
}

// Analyze runs every heuristic over content.
func (a *Analyzer) Analyze(content string) Analysis {
	return Analysis{
		Title:       a.Title(content),
		Summary:     a.Summary(content),
		Keywords:    a.Keywords(content),
		Sentiment:   a.Sentiment(content),
		Readability: Readability(content),
		WordCount:   WordCount(content),
		Language:    a.DetectLanguage(content),
	}
}

// Title returns the first sentence, cut to 60 characters. Content without any
// sentence text falls back to the top keywords, then to the lexicon default.
func (a *Analyzer) Title(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	for _, s := range sentences(content) {
		if s = strings.TrimSpace(s); s != "" {
			return truncate(s, titleMaxRunes)
		}
	}
	lex := a.lex.Load()
	if kws := a.Keywords(content); len(kws) > 0 {
		if len(kws) > titleKeywordCount {
			kws = kws[:titleKeywordCount]
		}
		return strings.Join(kws, ", ") + lex.TitleSuffix
	}
	return lex.DefaultTitle
}

// Summary joins the first and last sentences of at least 10 characters.
// The result never exceeds 200 characters plus an ellipsis.
func (a *Analyzer) Summary(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	var qualified []string
	for _, s := range sentences(content) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) >= summaryMinSentence {
			qualified = append(qualified, s)
		}
	}

	switch len(qualified) {
	case 0:
		head, _ := cut(content, summaryRawRunes)
		return head + ellipsis
	case 1:
		head, _ := cut(qualified[0], summarySingleRunes)
		return head + ellipsis
	}
	return truncate(qualified[0]+summarySeparator+qualified[len(qualified)-1], summaryMaxRunes)
}

// Keywords returns up to 8 distinct terms ordered by descending frequency,
// ties kept in first-occurrence order, followed by any existing keywords not
// already present.
func (a *Analyzer) Keywords(content string, existing ...string) []string {
	lex := a.lex.Load()

	var b strings.Builder
	for _, r := range a.fold(content) {
		if isWordRune(r) || unicode.IsSpace(r) || lex.KeepsLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	counts := make(map[string]int)
	var order []string
	for _, tok := range strings.Fields(b.String()) {
		if utf8.RuneCountInString(tok) < minKeywordRunes || lex.IsStopWord(tok) {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > models.MaxKeywords {
		order = order[:models.MaxKeywords]
	}
	return MergeKeywords(order, existing)
}

// MergeKeywords appends extra to base as a set union, capped at 8 entries.
func MergeKeywords(base, extra []string) []string {
	out := make([]string, 0, models.MaxKeywords)
	seen := make(map[string]struct{}, models.MaxKeywords)
	for _, list := range [][]string{base, extra} {
		for _, k := range list {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			if len(out) == models.MaxKeywords {
				return out
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Sentiment scores content in [-1, 1] by counting positive and negative
// lexicon words that occur anywhere in the case-folded text.
func (a *Analyzer) Sentiment(content string) float64 {
	lex := a.lex.Load()
	text := a.fold(content)

	hits := 0
	for _, w := range lex.Positive {
		if w != "" && strings.Contains(text, w) {
			hits++
		}
	}
	for _, w := range lex.Negative {
		if w != "" && strings.Contains(text, w) {
			hits--
		}
	}
	return clamp(float64(hits)*a.step, -1, 1)
}

// Readability starts at 100 and deducts for long sentences and long notes.
func Readability(content string) int {
	words := WordCount(content)
	n := 0
	for _, s := range sentences(content) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}

	var avg float64
	if n > 0 {
		avg = float64(words) / float64(n)
	}

	score := 100
	if avg > 25 {
		score -= 20
	}
	if avg > 35 {
		score -= 20
	}
	if words > 500 {
		score -= 10
	}
	if words > 1000 {
		score -= 10
	}
	return int(clamp(float64(score), 0, 100))
}

// WordCount counts whitespace-separated words.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// DetectLanguage guesses between the default language and English.
func (a *Analyzer) DetectLanguage(text string) string {
	lex := a.lex.Load()
	folded := a.fold(text)
	for _, r := range folded {
		if lex.KeepsLetter(r) {
			return a.defaultLg
		}
	}
	if strings.Contains(folded, "the") || strings.Contains(folded, "and") {
		return "en"
	}
	return a.defaultLg
}

// Truncate cuts s to n characters and appends an ellipsis when it was longer.
func Truncate(s string, n int) string {
	return truncate(s, n)
}

// fold lower-cases s. Neutral folding turns İ into i plus a combining dot
// above; the dot is dropped so Turkish words keep their plain spelling.
func (a *Analyzer) fold(s string) string {
	return strings.ReplaceAll(cases.Lower(a.foldTag).String(s), "i\u0307", "i")
}

func sentences(content string) []string {
	return strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

func truncate(s string, n int) string {
	head, cutOff := cut(s, n)
	if cutOff {
		return head + ellipsis
	}
	return head
}

// cut returns the first n runes of s and whether anything was dropped.
func cut(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

func isWordRune(r rune) bool {
	return r == '_' || (r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
