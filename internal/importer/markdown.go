// Package importer turns Markdown files with YAML frontmatter into notes.
package importer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([\p{L}][\p{L}\p{N}_/-]*)`)

// Document is one parsed Markdown file.
type Document struct {
	Title    string
	Summary  string
	Language string
	Tags     []string
	Body     string
	// Checksum is the hex SHA-256 of Body.
	Checksum string
}

type frontmatter struct {
	Title    string   `yaml:"title"`
	Summary  string   `yaml:"summary"`
	Language string   `yaml:"language"`
	Lang     string   `yaml:"lang"`
	Tags     []string `yaml:"tags"`
}

// ParseMarkdown extracts frontmatter, title and #tags from raw Markdown.
// Without frontmatter, or with frontmatter that is not valid YAML, the whole
// input is the body.
func ParseMarkdown(data []byte) *Document {
	fm, body := splitFrontmatter(data)

	doc := &Document{
		Title:    strings.TrimSpace(fm.Title),
		Summary:  strings.TrimSpace(fm.Summary),
		Language: strings.TrimSpace(firstNonEmpty(fm.Language, fm.Lang)),
		Tags:     extractTags(body, fm.Tags),
		Body:     strings.TrimSpace(body),
	}
	if doc.Title == "" {
		doc.Title = heading(body)
	}
	doc.Checksum = checksum(doc.Body)
	return doc
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	var fm frontmatter

	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	if err := yaml.Unmarshal(block, &fm); err != nil {
		return frontmatter{}, string(data)
	}
	return fm, body
}

// extractTags returns frontmatter tags followed by inline #tags, deduplicated.
func extractTags(body string, declared []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range declared {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// heading returns the first H1, or "".
func heading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func checksum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
