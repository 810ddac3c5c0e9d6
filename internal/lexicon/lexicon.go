// Package lexicon holds the word lists that drive the heuristic text analyzer.
package lexicon

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon is the per-deployment language data for the analyzer.
type Lexicon struct {
	// StopWords are function words dropped by keyword extraction.
	StopWords []string `yaml:"stop_words"`
	// Positive and Negative are matched as substrings of the case-folded text.
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
	// Letters lists non-ASCII letters that keyword extraction keeps.
	Letters string `yaml:"letters"`
	// TitleSuffix follows the joined keywords when a title has to be built from them.
	TitleSuffix  string `yaml:"title_suffix"`
	DefaultTitle string `yaml:"default_title"`

	stop    map[string]struct{}
	letters map[rune]struct{}
}

// Default returns the built-in Turkish/English lexicon.
func Default() *Lexicon {
	l := &Lexicon{
		StopWords: []string{
			"ve", "ile", "bir", "bu", "şu", "için", "ama", "fakat", "ancak",
			"veya", "ya da", "gibi", "kadar", "de", "da", "ki", "mi", "mı",
			"mu", "mü",
			"the", "and", "or", "but", "for", "with", "that", "this", "these", "those",
		},
		Positive: []string{
			"iyi", "güzel", "harika", "mükemmel", "sevindim", "mutlu", "başarılı",
			"good", "great", "excellent", "happy", "successful", "perfect",
		},
		Negative: []string{
			"kötü", "üzgün", "sorun", "problem", "hata", "kızgın", "başarısız",
			"bad", "sad", "error", "angry", "failed",
		},
		Letters:      "ğüşıöçĞÜŞİÖÇ",
		TitleSuffix:  " hakkında not",
		DefaultTitle: "Yeni Not",
	}
	l.compile()
	return l
}

// Parse decodes a YAML lexicon. Empty sections fall back to the defaults.
func Parse(data []byte) (*Lexicon, error) {
	l := &Lexicon{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(l); err != nil {
		return nil, fmt.Errorf("lexicon: parse: %w", err)
	}

	def := Default()
	if len(l.StopWords) == 0 {
		l.StopWords = def.StopWords
	}
	if len(l.Positive) == 0 {
		l.Positive = def.Positive
	}
	if len(l.Negative) == 0 {
		l.Negative = def.Negative
	}
	if l.Letters == "" {
		l.Letters = def.Letters
	}
	if l.DefaultTitle == "" {
		l.DefaultTitle = def.DefaultTitle
	}
	l.compile()
	return l, nil
}

// Load reads and parses a YAML lexicon file.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %s: %w", path, err)
	}
	return Parse(data)
}

// IsStopWord reports whether w (already case-folded) is a stop word.
func (l *Lexicon) IsStopWord(w string) bool {
	_, ok := l.stop[w]
	return ok
}

// KeepsLetter reports whether r is one of the extra letters kept by keyword extraction.
func (l *Lexicon) KeepsLetter(r rune) bool {
	_, ok := l.letters[r]
	return ok
}

// Marshal encodes the lexicon as YAML.
func (l *Lexicon) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

func (l *Lexicon) compile() {
	l.stop = make(map[string]struct{}, len(l.StopWords))
	for _, w := range l.StopWords {
		w = strings.TrimSpace(w)
		if w != "" {
			l.stop[w] = struct{}{}
		}
	}
	l.letters = make(map[rune]struct{})
	for _, r := range l.Letters {
		l.letters[r] = struct{}{}
	}
}
