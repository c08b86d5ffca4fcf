package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals when new or changed files appear below a directory tree.
// Signals are coalesced: at most one pending wake-up is buffered.
type Watcher struct {
	fsw     *fsnotify.Watcher
	root    string
	exclude string
	logger  *slog.Logger
	wake    chan struct{}
}

// New watches root and every directory below it except exclude.
func New(root, exclude string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	w := &Watcher{
		fsw:     fsw,
		root:    filepath.Clean(root),
		exclude: cleanAbs(exclude),
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}
	if err := w.addTree(w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Wake receives a value whenever relevant changes were seen since the last
// receive.
func (w *Watcher) Wake() <-chan struct{} {
	return w.wake
}

// Run pumps fsnotify events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handleEvent(event) {
				w.signal()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch_error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handleEvent reports whether the event should wake the organizer. New
// directories are added to the watch list as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if isHidden(event.Name) || w.excluded(event.Name) {
		return false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		// gone, e.g. moved out by the organizer itself; a rename into the
		// tree arrives as Create on the new name
		return false
	}
	if info.IsDir() {
		if !event.Has(fsnotify.Create) {
			return false
		}
		if err := w.addTree(event.Name); err != nil {
			w.logger.Warn("watch_add_failed", "path", event.Name, "error", err)
		}
		// a directory moved in may already hold files
		entries, err := os.ReadDir(event.Name)
		return err == nil && len(entries) > 0
	}
	return info.Mode().IsRegular()
}

func (w *Watcher) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (isHidden(path) || w.excluded(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	if w.exclude == "" {
		return false
	}
	abs := cleanAbs(path)
	return abs == w.exclude || strings.HasPrefix(abs, w.exclude+string(filepath.Separator))
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func cleanAbs(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
