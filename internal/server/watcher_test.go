package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "git.home.luguber.info/inful/bookbuilder/internal/errors"
)

func TestWatcher_DeliversChangeEvents(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, "_build")
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "chapter.md"), []byte("x"), 0o600))

	select {
	case ev := <-w.Events():
		assert.Equal(t, filepath.Join(root, "chapter.md"), ev.Path)
		assert.WithinDuration(t, time.Now(), ev.Time, 5*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, "_build")
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(root, "chapters")
	require.NoError(t, os.Mkdir(sub, 0o750))

	// Give the watcher a moment to register the new directory.
	drainFor(w, 500*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "one.md"), []byte("x"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Path == filepath.Join(sub, "one.md") {
				return
			}
		case <-deadline:
			t.Fatal("nested edit not observed")
		}
	}
}

func TestWatcher_MissingRootIsFatal(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), "_build")
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryWatch))
}

func TestWatcher_IgnoresConfiguredBuildRoot(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "html"), 0o750))

	w, err := NewWatcher(root, out)
	require.NoError(t, err)
	defer w.Close()

	// Renderer output under the configured build root must not produce events.
	require.NoError(t, os.WriteFile(filepath.Join(out, "html", "index.html"), []byte("x"), 0o600))
	select {
	case ev := <-w.Events():
		t.Fatalf("build output must not trigger events, got %s", ev.Path)
	case <-time.After(750 * time.Millisecond):
	}

	// Source edits are still observed.
	require.NoError(t, os.WriteFile(filepath.Join(root, "chapter.md"), []byte("x"), 0o600))
	select {
	case ev := <-w.Events():
		assert.Equal(t, filepath.Join(root, "chapter.md"), ev.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("source edit not observed")
	}
}

func TestShouldIgnoreEvent(t *testing.T) {
	cases := map[string]bool{
		"docs/chapter.md":        false,
		"docs/.hidden":           true,
		"docs/chapter.md~":       true,
		"docs/.chapter.md.swp":   true,
		"docs/#chapter.md#":      true,
		"docs/Thumbs.db":         true,
		"_build/html/index.html": true,
		"out/html/index.html":    false,
		".git/index":             true,
	}
	w := &Watcher{buildDir: "_build"}
	for path, want := range cases {
		assert.Equal(t, want, w.shouldIgnoreEvent(path), path)
	}

	// The ignored build directory follows the configured root.
	custom := &Watcher{buildDir: "out"}
	assert.True(t, custom.shouldIgnoreEvent("out/html/index.html"))
	assert.False(t, custom.shouldIgnoreEvent("_build/html/index.html"))
}

func drainFor(w *Watcher, d time.Duration) {
	deadline := time.After(d)
	for {
		select {
		case <-w.Events():
		case <-deadline:
			return
		}
	}
}
