// Package watcher revalidates achievement state when the persisted file
// is modified from outside the process.
//
// Without it, an edit made while the engine is running would survive until
// the next unlock touches the store. The watch is best-effort: hosts whose
// medium is not file-backed simply do not start one.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader is the subset of the achievement manager the watcher needs.
type Reloader interface {
	Reload()
}

// Watcher debounces external writes to the state file and triggers a
// revalidating reload.
type Watcher struct {
	path     string
	debounce time.Duration
	target   Reloader
	logger   *slog.Logger

	fsWatcher *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher for the state file at path.
func New(path string, debounce time.Duration, target Reloader, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		target:   target,
		logger:   logger.With("component", "tamper_watch"),
	}
}

// Start begins watching. The parent directory is watched so the watch
// survives the atomic rename writes the file medium performs.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		fsw.Close()
		return err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return err
	}

	w.fsWatcher = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.loop()

	w.logger.Info("tamper watch started", "path", w.path, "debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var pending time.Time
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.Now()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < w.debounce {
				continue
			}
			pending = time.Time{}
			w.logger.Debug("state file changed externally, revalidating")
			w.target.Reload()
		}
	}
}
