package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbuilder/internal/history"
)

func startPreview(t *testing.T) *PreviewServer {
	t.Helper()
	p := NewPreviewServer(NewLiveReloadHub(nil), NewMetrics())
	require.NoError(t, p.Start(0))
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_ = p.Stop(ctx)
	})
	return p
}

func get(t *testing.T, addr, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + addr + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestPreviewServer_UnavailableBeforeFirstPublish(t *testing.T) {
	p := startPreview(t)

	code, _ := get(t, p.Addr(), "/index.html")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = get(t, p.Addr(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestPreviewServer_StatusWithoutHistory(t *testing.T) {
	p := startPreview(t)

	code, body := get(t, p.Addr(), "/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"builds":[]`)
}

func TestPreviewServer_StatusReportsRecentBuilds(t *testing.T) {
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(context.Background(), history.Record{
		BuildID:   "b-1",
		StartedAt: time.Now(),
		Duration:  2 * time.Second,
		Target:    "full",
		Mode:      "local",
		Success:   true,
		Stage:     "export",
	}))
	require.NoError(t, store.Append(context.Background(), history.Record{
		BuildID:   "b-2",
		StartedAt: time.Now(),
		Duration:  time.Second,
		Target:    "full",
		Mode:      "local",
		Stage:     "execute",
		Error:     "TexError: kaboom",
	}))

	p := NewPreviewServer(nil, NewMetrics()).WithHistory(store)
	require.NoError(t, p.Start(0))
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_ = p.Stop(ctx)
	})

	code, body := get(t, p.Addr(), "/status")
	require.Equal(t, http.StatusOK, code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.False(t, resp.Serving, "nothing published yet")
	require.Len(t, resp.Builds, 2)
	assert.Equal(t, "b-2", resp.Builds[0].BuildID, "newest first")
	assert.Equal(t, "TexError: kaboom", resp.Builds[0].Error)
	assert.True(t, resp.Builds[1].Success)
	assert.Equal(t, int64(2000), resp.Builds[1].DurationMS)
}

func TestPreviewServer_RootSwap(t *testing.T) {
	p := startPreview(t)

	v1 := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(v1, "index.html"), []byte("one"), 0o600))
	p.SetRoot(v1)

	code, body := get(t, p.Addr(), "/index.html")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "one", body)

	v2 := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(v2, "index.html"), []byte("two"), 0o600))
	p.SetRoot(v2)

	_, body = get(t, p.Addr(), "/index.html")
	assert.Equal(t, "two", body)

	code, _ = get(t, p.Addr(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
}
