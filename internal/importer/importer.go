package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/models"
	"github.com/giyikalim/smart-notes/internal/notes"
)

// Creator saves notes. *notes.Service satisfies it.
type Creator interface {
	Create(ctx context.Context, in notes.CreateInput) (*models.Note, error)
}

// Imported records one saved file.
type Imported struct {
	Path   string `json:"path"`
	NoteID string `json:"noteId"`
	Title  string `json:"title"`
}

// Skipped records one file that was not saved.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report summarises an import run.
type Report struct {
	Imported []Imported `json:"imported"`
	Skipped  []Skipped  `json:"skipped"`
}

// Dir imports every *.md file under root for owner, in lexical path order.
// Files with an empty body, a body identical to one already imported in this
// run, or content the service rejects are skipped. Any other error aborts
// the run and is returned with the partial report.
func Dir(ctx context.Context, svc Creator, owner, root string, logger *slog.Logger) (*Report, error) {
	rep := &Report{Imported: []Imported{}, Skipped: []Skipped{}}
	seen := make(map[string]string)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("importer: read %s: %w", rel, err)
		}

		doc := ParseMarkdown(data)
		if doc.Body == "" {
			rep.Skipped = append(rep.Skipped, Skipped{Path: rel, Reason: "empty"})
			return nil
		}
		if first, dup := seen[doc.Checksum]; dup {
			rep.Skipped = append(rep.Skipped, Skipped{Path: rel, Reason: "duplicate of " + first})
			return nil
		}

		n, err := svc.Create(ctx, notes.CreateInput{
			OwnerID:  owner,
			Content:  doc.Body,
			Title:    doc.Title,
			Summary:  doc.Summary,
			Language: doc.Language,
			Keywords: doc.Tags,
		})
		var verr *apperr.ValidationError
		switch {
		case errors.As(err, &verr):
			rep.Skipped = append(rep.Skipped, Skipped{Path: rel, Reason: verr.Error()})
			return nil
		case err != nil:
			return fmt.Errorf("importer: %s: %w", rel, err)
		}

		seen[doc.Checksum] = rel
		rep.Imported = append(rep.Imported, Imported{Path: rel, NoteID: n.ID, Title: n.Title})
		logger.Debug("note imported", slog.String("path", rel), slog.String("id", n.ID))
		return nil
	})

	return rep, err
}
