// Package testutil provides shared test helpers for setting up stores and services.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/giyikalim/smart-notes/internal/analyzer"
	"github.com/giyikalim/smart-notes/internal/notes"
	"github.com/giyikalim/smart-notes/internal/store/sqlite"
)

// Epoch is the default starting point of a test Clock.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced time source shared by a store and a service.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at Epoch.
func NewClock() *Clock { return &Clock{now: Epoch} }

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestStore opens a temporary embedded store that is closed on cleanup.
func TestStore(t *testing.T, clock *Clock) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "notes.db"), sqlite.WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestService wires a notes service to a temporary store, both driven by clock.
func TestService(t *testing.T, clock *Clock, opts ...notes.Option) *notes.Service {
	t.Helper()
	opts = append([]notes.Option{notes.WithClock(clock.Now), notes.WithLogger(Logger())}, opts...)
	svc, err := notes.NewService(TestStore(t, clock), analyzer.New(nil), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}
