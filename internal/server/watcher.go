package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	berrors "git.home.luguber.info/inful/bookbuilder/internal/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
)

// WatchEvent is a filtered filesystem change notification.
type WatchEvent struct {
	Path string
	Time time.Time
}

// Watcher wraps fsnotify with recursive directory registration and noise
// filtering. A failure to establish the watch is fatal at server startup.
type Watcher struct {
	fs       *fsnotify.Watcher
	events   chan WatchEvent
	errors   chan error
	done     chan struct{}
	buildDir string
}

// NewWatcher watches root and all its subdirectories. The directory name of
// buildDir is excluded from the watch set so renderer output under a nested
// build root never re-triggers a rebuild.
func NewWatcher(root, buildDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, berrors.Wrap(err, berrors.CategoryWatch, berrors.SeverityFatal,
			"filesystem watch subsystem could not be established")
	}

	w := &Watcher{
		fs:       fsw,
		events:   make(chan WatchEvent, 16),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
		buildDir: buildDirBase(buildDir),
	}
	if err := w.addDirsRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

func buildDirBase(dir string) string {
	if dir == "" {
		return "_build"
	}
	return filepath.Base(dir)
}

// Events delivers filtered change notifications.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Errors delivers watch subsystem errors (non-fatal mid-session).
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.shouldIgnoreEvent(ev.Name) {
				continue
			}
			// New directories join the watch set so nested edits are seen.
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.addDirsRecursive(ev.Name)
				}
			}
			slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			select {
			case w.events <- WatchEvent{Path: ev.Name, Time: time.Now()}:
			case <-w.done:
				return
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) addDirsRecursive(root string) error {
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return berrors.New(berrors.CategoryWatch, berrors.SeverityFatal,
			fmt.Sprintf("watch root not found or not a directory: %s", root))
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.shouldIgnoreDir(filepath.Base(path)) && path != root {
				return filepath.SkipDir
			}
			if err := w.fs.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// shouldIgnoreDir skips hidden directories and the configured build tree, so
// renderer output never re-triggers a rebuild.
func (w *Watcher) shouldIgnoreDir(base string) bool {
	return strings.HasPrefix(base, ".") || base == w.buildDir || base == "node_modules"
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func (w *Watcher) shouldIgnoreEvent(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if w.shouldIgnoreDir(part) && part != "." && part != ".." {
			return true
		}
	}

	base := filepath.Base(path)

	// Ignore hidden files
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Ignore editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	if base == "Thumbs.db" {
		return true
	}

	return false
}
