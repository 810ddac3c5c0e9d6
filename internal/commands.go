package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/giyikalim/smart-notes/internal/analyzer"
	"github.com/giyikalim/smart-notes/internal/importer"
	"github.com/giyikalim/smart-notes/internal/mcpserver"
)

// ServeMCP exposes the notes of owner as MCP tools on stdin/stdout until
// the client disconnects.
func ServeMCP(ctx context.Context, owner string, opts ...Option) error {
	app, err := newApplication(opts...)
	if err != nil {
		return err
	}
	if owner == "" {
		owner = app.config.Auth.DefaultUser
	}
	if owner == "" {
		return fmt.Errorf("mcp: owner is required")
	}

	c, err := app.build(false)
	if err != nil {
		return err
	}
	defer c.Close()

	app.logger.Info("MCP server starting", slog.String("owner", owner))
	return mcpserver.New(c.notes, owner).ServeStdio()
}

// Sweep flags every overdue note as expired once and returns how many changed.
func Sweep(ctx context.Context, opts ...Option) (int, error) {
	app, err := newApplication(opts...)
	if err != nil {
		return 0, err
	}

	c, err := app.build(false)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	n, err := c.notes.SweepExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	app.logger.Info("expiry sweep", slog.Int("expired", n))
	return n, nil
}

// Analyze runs the configured analyzer over text without touching the store.
func Analyze(text string, opts ...Option) (analyzer.Analysis, error) {
	app, err := newApplication(opts...)
	if err != nil {
		return analyzer.Analysis{}, err
	}
	an, err := newAnalyzer(app.config.Analyzer)
	if err != nil {
		return analyzer.Analysis{}, err
	}
	return an.Analyze(text), nil
}

// Import saves every Markdown file under root as a note owned by owner.
func Import(ctx context.Context, owner, root string, opts ...Option) (*importer.Report, error) {
	app, err := newApplication(opts...)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		owner = app.config.Auth.DefaultUser
	}
	if owner == "" {
		return nil, fmt.Errorf("import: owner is required")
	}

	c, err := app.build(false)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	rep, err := importer.Dir(ctx, c.notes, owner, root, app.logger)
	if rep != nil {
		app.logger.Info("import finished",
			slog.String("root", root),
			slog.Int("imported", len(rep.Imported)),
			slog.Int("skipped", len(rep.Skipped)))
	}
	return rep, err
}
