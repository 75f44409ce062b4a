// Package watch reports settled changes to a single file, such as a local
// catalogue export, so the index can reload it.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long the file must stay untouched before a change is
// reported.
const DefaultQuiet = 250 * time.Millisecond

// Watcher watches the directory holding a file, because editors and export
// jobs often replace files by rename, which drops a watch on the file itself.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	path      string
	logger    *slog.Logger
}

// New starts watching path. A quiet of zero uses DefaultQuiet.
func New(path string, quiet time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(quiet),
		path:      abs,
		logger:    slog.Default().With("component", "file-watcher", "path", abs),
	}, nil
}

// Changes delivers debounced changes to the watched file.
func (w *Watcher) Changes() <-chan Change {
	return w.debouncer.Output()
}

// Run forwards file events to the debouncer until ctx is done or the
// watcher is closed. Call it in a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("watching catalogue file")
	for {
		select {
		case <-ctx.Done():
			w.debouncer.Stop()
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}
	w.logger.Debug("file event", "op", op.String())
	w.debouncer.Add(w.path, op)
}

func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
