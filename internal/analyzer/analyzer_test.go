package analyzer

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/giyikalim/smart-notes/internal/lexicon"
)

const sample = "Bugün harika bir gün. Toplantı iyi geçti."

func TestTitle(t *testing.T) {
	a := New(nil)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"first sentence", sample, "Bugün harika bir gün"},
		{"empty", "", ""},
		{"whitespace", "   \n\t", ""},
		{"leading terminators", "...  Merhaba dünya! Devam", "Merhaba dünya"},
		{"long sentence truncated", strings.Repeat("ş", 70) + ".", strings.Repeat("ş", 60) + "..."},
		{"exactly sixty", strings.Repeat("a", 60), strings.Repeat("a", 60)},
		{"no sentence text", "?!.", "Yeni Not"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Title(tt.content))
		})
	}
}

func TestTitle_KeywordFallbackUsesLexiconSuffix(t *testing.T) {
	lex, err := lexicon.Parse([]byte("title_suffix: \" notes\"\ndefault_title: Untitled\n"))
	require.NoError(t, err)
	a := New(lex)
	assert.Equal(t, "Untitled", a.Title("..."))
}

func TestSummary(t *testing.T) {
	a := New(nil)

	assert.Equal(t, "Bugün harika bir gün... Toplantı iyi geçti", a.Summary(sample))
	assert.Equal(t, "", a.Summary(""))
	assert.Equal(t, "kısa. not...", a.Summary("kısa. not"))

	single := "Bu cümle yeterince uzun bir cümle. kısa"
	assert.Equal(t, "Bu cümle yeterince uzun bir cümle...", a.Summary(single))

	long := strings.Repeat("uzun ", 60) + ". " + strings.Repeat("son ", 60) + "."
	got := a.Summary(long)
	assert.Equal(t, 203, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSummary_LengthBound(t *testing.T) {
	a := New(nil)
	r := rand.New(rand.NewSource(7))
	words := []string{"toplantı", "notları", "çalışma", "güzel", "hata", "proje", "ve", "bir"}
	for i := 0; i < 200; i++ {
		var b strings.Builder
		for j := 0; j < r.Intn(120)+12; j++ {
			b.WriteString(words[r.Intn(len(words))])
			b.WriteString([]string{" ", " ", ". ", "! ", "? "}[r.Intn(5)])
		}
		content := b.String()
		assert.LessOrEqual(t, utf8.RuneCountInString(a.Summary(content)), 203, content)
	}
}

func TestKeywords(t *testing.T) {
	a := New(nil)

	got := a.Keywords("Proje toplantısı: proje planı, proje bütçesi ve toplantısı için notlar. The plan.")
	assert.Equal(t, []string{"proje", "toplantısı", "planı", "bütçesi", "notlar", "plan"}, got)
}

func TestKeywords_StableTiesAndCap(t *testing.T) {
	a := New(nil)
	content := "alpha bravo charlie delta echoo foxtrot golf hotel india juliet kilo"
	got := a.Keywords(content)
	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "echoo", "foxtrot", "golf", "hotel"}, got)
}

func TestKeywords_StripsPunctuationKeepsTurkishLetters(t *testing.T) {
	a := New(nil)
	got := a.Keywords("Çalışma-grubu (ÖĞRENCİ) toplantısı; Işık!")
	assert.Equal(t, []string{"çalışma", "grubu", "öğrenci", "toplantısı", "işık"}, got)

	tr := New(nil, WithCaseLanguage(language.Turkish))
	got = tr.Keywords("Çalışma-grubu (ÖĞRENCİ) toplantısı; Işık!")
	assert.Equal(t, []string{"çalışma", "grubu", "öğrenci", "toplantısı", "ışık"}, got)
}

func TestKeywords_UppercaseEnglish(t *testing.T) {
	a := New(nil)
	got := a.Keywords("INFO INFO THIS THIS report")
	assert.Equal(t, []string{"info", "report"}, got)
	for _, k := range got {
		assert.False(t, a.Lexicon().IsStopWord(k), k)
	}
}

func TestKeywords_MergeExisting(t *testing.T) {
	a := New(nil)
	got := a.Keywords("toplantı toplantı notları", "özel", "toplantı", "", "özel")
	assert.Equal(t, []string{"toplantı", "notları", "özel"}, got)

	full := a.Keywords("alpha bravo charlie delta echoo foxtrot golf hotel", "extra")
	assert.Len(t, full, 8)
	assert.NotContains(t, full, "extra")
}

func TestKeywords_Properties(t *testing.T) {
	a := New(nil)
	lex := a.Lexicon()
	r := rand.New(rand.NewSource(42))
	vocab := []string{"ve", "için", "the", "kod", "derleyici", "sunucu", "Sunucu", "veritabanı", "ağ", "istemci", "önbellek", "kuyruk", "this", "dağıtık", "log!", "#etiket"}

	for i := 0; i < 300; i++ {
		var parts []string
		for j := 0; j < r.Intn(60); j++ {
			parts = append(parts, vocab[r.Intn(len(vocab))])
		}
		content := strings.Join(parts, " ")
		got := a.Keywords(content)

		require.LessOrEqual(t, len(got), 8)
		seen := map[string]bool{}
		for _, k := range got {
			assert.False(t, seen[k], "duplicate %q in %v", k, got)
			seen[k] = true
			assert.Greater(t, utf8.RuneCountInString(k), 3)
			assert.False(t, lex.IsStopWord(k))
		}
	}
}

func TestSentiment(t *testing.T) {
	a := New(nil)

	assert.InDelta(t, 0.2, a.Sentiment(sample), 1e-9)
	assert.InDelta(t, -0.1, a.Sentiment("Bugün bir hata oldu"), 1e-9)
	assert.InDelta(t, -0.1, a.Sentiment("Bir problem var"), 1e-9)
	assert.Equal(t, 0.0, a.Sentiment(""))
	assert.InDelta(t, 0.0, a.Sentiment("iyi ama kötü"), 1e-9)
}

func TestSentiment_ClampedAndConfigurableStep(t *testing.T) {
	a := New(nil, WithSentimentStep(0.2))
	assert.InDelta(t, 0.4, a.Sentiment(sample), 1e-9)

	all := strings.Join(lexicon.Default().Positive, " ")
	assert.Equal(t, 1.0, a.Sentiment(all))

	neg := strings.Join(lexicon.Default().Negative, " ")
	assert.Equal(t, -1.0, a.Sentiment(neg))
}

func TestReadability(t *testing.T) {
	assert.Equal(t, 100, Readability(""))
	assert.Equal(t, 100, Readability(sample))

	long26 := strings.Repeat("kelime ", 26) + "."
	assert.Equal(t, 80, Readability(long26))

	long36 := strings.Repeat("kelime ", 36) + "."
	assert.Equal(t, 60, Readability(long36))

	many := strings.Repeat("bir iki üç dört beş. ", 101)
	assert.Equal(t, 90, Readability(many))

	huge := strings.Repeat("kelime ", 1001)
	assert.Equal(t, 40, Readability(huge))
}

func TestDetectLanguage(t *testing.T) {
	a := New(nil)
	assert.Equal(t, "tr", a.DetectLanguage(sample))
	assert.Equal(t, "en", a.DetectLanguage("Notes about the project"))
	assert.Equal(t, "en", a.DetectLanguage("I think the INFO about this budget and the plan is good"))
	assert.Equal(t, "tr", a.DetectLanguage("İYİ BİR GÜN"))
	assert.Equal(t, "tr", a.DetectLanguage("xyz"))

	b := New(nil, WithDefaultLanguage("de"))
	assert.Equal(t, "de", b.DetectLanguage("xyz"))
}

func TestAnalyze(t *testing.T) {
	got := New(nil).Analyze(sample)
	assert.Equal(t, "Bugün harika bir gün", got.Title)
	assert.Equal(t, 7, got.WordCount)
	assert.Equal(t, []string{"bugün", "harika", "toplantı", "geçti"}, got.Keywords)
	assert.Greater(t, got.Sentiment, 0.0)
	assert.Equal(t, "tr", got.Language)
}

func TestSetLexicon(t *testing.T) {
	a := New(nil)
	lex, err := lexicon.Parse([]byte("positive: [splendid]\n"))
	require.NoError(t, err)

	a.SetLexicon(lex)
	assert.InDelta(t, 0.1, a.Sentiment("a splendid day"), 1e-9)
	assert.Equal(t, 0.0, a.Sentiment("harika"))

	a.SetLexicon(nil)
	assert.Same(t, lex, a.Lexicon())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "çğ...", Truncate("çğüş", 2))
}
