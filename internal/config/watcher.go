package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events an editor save produces
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a Store when its env file changes
type Watcher struct {
	store    *Store
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a new watcher for store
func NewWatcher(store *Store, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		store:    store,
		debounce: debounce,
		logger:   logger.With("component", "config_watcher"),
	}
}

// Run watches until ctx is done. The directory is watched rather than the
// file so that editors replacing the file are noticed.
func (w *Watcher) Run(ctx context.Context) error {
	path, err := filepath.Abs(w.store.EnvFile())
	if err != nil {
		return fmt.Errorf("failed to resolve env file: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	w.logger.Info("watching env file", "path", path)

	var (
		mu    sync.Mutex
		timer *time.Timer
		wg    sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !relevant(event) {
				continue
			}

			mu.Lock()
			if timer != nil && timer.Stop() {
				wg.Done()
			}
			wg.Add(1)
			timer = time.AfterFunc(w.debounce, func() {
				defer wg.Done()
				w.logger.Debug("env file changed", "path", path)
				_, _ = w.store.Reload()
			})
			mu.Unlock()
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
