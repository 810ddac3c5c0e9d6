package lexicon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives every successfully parsed revision of the lexicon file.
type ReloadFunc func(l *Lexicon)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the lexicon at path whenever it changes on disk, until ctx
// is cancelled. The parent directory is watched so that editors which save
// by rename are picked up. Unparseable revisions are logged and skipped;
// the previous lexicon stays active.
func Watch(ctx context.Context, path string, logger *slog.Logger, reload ReloadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("lexicon watcher: started", slog.String("path", abs))

	lastSum := fileSum(abs)

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(reloadDebounce)
			debounceCh = debounce.C
		} else {
			debounce.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("lexicon watcher: stopped")
			return nil

		case <-debounceCh:
			sum := fileSum(abs)
			if sum == "" || sum == lastSum {
				continue
			}
			l, loadErr := Load(abs)
			if loadErr != nil {
				logger.Warn("lexicon watcher: reload failed", slog.String("path", abs), slog.String("error", loadErr.Error()))
				continue
			}
			lastSum = sum
			reload(l)
			logger.Info("lexicon watcher: reloaded", slog.String("path", abs), slog.String("sha256", sum))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("lexicon watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func fileSum(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
