package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/giyikalim/smart-notes/internal"
	pkgconfig "github.com/giyikalim/smart-notes/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol.
	return internal.ServeMCP(ctx, cmd.String("owner"),
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
}

func sweep(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	n, err := internal.Sweep(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "expired: %d\n", n)
	return err
}

func analyze(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var data []byte
	switch path := cmd.Args().First(); path {
	case "", "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	res, err := internal.Analyze(string(data), internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func importDir(ctx context.Context, cmd *cli.Command) error {
	root := cmd.Args().First()
	if root == "" {
		return fmt.Errorf("import: directory argument is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rep, err := internal.Import(ctx, cmd.String("owner"), root,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
	if rep != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(rep); encErr != nil && err == nil {
			err = encErr
		}
	}
	return err
}

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "owner",
		Usage:   "User who owns the notes (defaults to auth.default_user)",
		Sources: cli.EnvVars("SMART_NOTES_OWNER"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "smart-notes",
		Usage:  "Note service with automatic titles, summaries, keywords and AI suggestions",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve one user's notes as MCP tools over stdio",
				Action: serveMCP,
				Flags:  []cli.Flag{ownerFlag()},
			},
			{
				Name:   "sweep",
				Usage:  "Flag every overdue note as expired and exit",
				Action: sweep,
			},
			{
				Name:      "analyze",
				Usage:     "Print the analysis of a file (or stdin) as JSON",
				ArgsUsage: "[file]",
				Action:    analyze,
			},
			{
				Name:      "import",
				Usage:     "Save every Markdown file under a directory as a note",
				ArgsUsage: "<dir>",
				Action:    importDir,
				Flags:     []cli.Flag{ownerFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
