package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/giyikalim/smart-notes/internal/ai"
	"github.com/giyikalim/smart-notes/internal/analyzer"
	"github.com/giyikalim/smart-notes/internal/lexicon"
	"github.com/giyikalim/smart-notes/internal/metrics"
	"github.com/giyikalim/smart-notes/internal/notes"
	"github.com/giyikalim/smart-notes/internal/sse"
	"github.com/giyikalim/smart-notes/internal/store"
	"github.com/giyikalim/smart-notes/internal/store/remote"
	"github.com/giyikalim/smart-notes/internal/store/sqlite"
)

const metricsNamespace = "smart_notes"

// components is the object graph shared by the server and the CLI commands.
type components struct {
	store    store.Store
	analyzer *analyzer.Analyzer
	metrics  *metrics.Collector
	broker   *sse.Broker
	notes    *notes.Service
}

func openStore(cfg StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case StoreDriverHTTP:
		return remote.New(remote.Config{
			BaseURL: cfg.HTTP.BaseURL,
			Index:   cfg.HTTP.Index,
			Timeout: cfg.HTTP.Timeout,
		}), nil
	case StoreDriverSQLite, "":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return sqlite.Open(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newAnalyzer(cfg AnalyzerConfig) (*analyzer.Analyzer, error) {
	var lex *lexicon.Lexicon
	if cfg.LexiconPath != "" {
		var err error
		if lex, err = lexicon.Load(cfg.LexiconPath); err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
	}
	return analyzer.New(lex,
		analyzer.WithSentimentStep(cfg.SentimentStep),
		analyzer.WithDefaultLanguage(cfg.DefaultLanguage),
	), nil
}

// build wires the store, analyzer, AI client and notes service. withEvents
// adds the SSE broker; commands that exit immediately leave it out.
func (a *application) build(withEvents bool) (*components, error) {
	cfg := a.config

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	an, err := newAnalyzer(cfg.Analyzer)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	c := &components{
		store:    st,
		analyzer: an,
		metrics:  metrics.New(metricsNamespace),
	}

	opts := []notes.Option{
		notes.WithLogger(a.logger),
		notes.WithMetrics(c.metrics),
		notes.WithRetention(cfg.Retention.Months),
	}
	if cfg.AI.Enabled {
		opts = append(opts, notes.WithSuggester(ai.New(ai.Config{
			BaseURL:     cfg.AI.BaseURL,
			Timeout:     cfg.AI.Timeout,
			MaxFailures: cfg.AI.Breaker.MaxFailures,
			OpenTimeout: cfg.AI.Breaker.OpenTimeout,
		}, a.logger)))
	}
	if withEvents {
		c.broker = sse.NewBroker(2 * time.Second)
		opts = append(opts, notes.WithPublisher(c.broker))
	}

	c.notes, err = notes.NewService(st, an, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init notes service: %w", err)
	}

	return c, nil
}

// Close releases the broker and the store.
func (c *components) Close() {
	if c.broker != nil {
		c.broker.Close()
	}
	_ = c.store.Close()
}

// sweep flags overdue notes every interval until ctx is cancelled.
func (c *components) sweep(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := c.notes.SweepExpired(ctx)
			if err != nil {
				logger.Warn("expiry sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Info("expiry sweep", slog.Int("expired", n))
			}
		}
	}
}
