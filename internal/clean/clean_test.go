package clean

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/paths"
	"git.home.luguber.info/inful/bookbuilder/internal/workspace"
)

func builtTree(t *testing.T) (paths.PathSet, string) {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Source.Root = base
	cfg.Template.Source = filepath.Join(base, "templates", "tex", "custom")
	cfg.Build.Root = filepath.Join(base, "_build")

	ps := paths.Resolve(paths.ModeLocal, cfg, true)

	for _, dir := range []string{ps.ArtifactDir, *ps.StaticHTMLDir, ps.TemplateDestDir} {
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "artifact"), []byte("x"), 0o600))
	}
	_, err := workspace.NewManager(ps.BuildRoot()).CreateStaging()
	require.NoError(t, err)

	return ps, base
}

func TestClean_OutputsLeavesTemplateAndSources(t *testing.T) {
	ps, _ := builtTree(t)

	require.NoError(t, Clean(ScopeOutputs, ps))

	_, err := os.Stat(ps.ArtifactDir)
	assert.True(t, os.IsNotExist(err), "exports must be removed")
	_, err = os.Stat(*ps.StaticHTMLDir)
	assert.True(t, os.IsNotExist(err), "html output must be removed")

	_, err = os.Stat(filepath.Join(ps.TemplateDestDir, "artifact"))
	assert.NoError(t, err, "provisioned template must be untouched")

	// Staging leftovers are gone.
	entries, err := os.ReadDir(ps.BuildRoot())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "staging-")
	}
}

func TestClean_AllRemovesBuildRoot(t *testing.T) {
	ps, _ := builtTree(t)

	require.NoError(t, Clean(ScopeAll, ps))

	_, err := os.Stat(ps.BuildRoot())
	assert.True(t, os.IsNotExist(err))
}

func TestClean_Idempotent(t *testing.T) {
	ps, _ := builtTree(t)

	require.NoError(t, Clean(ScopeOutputs, ps))
	require.NoError(t, Clean(ScopeOutputs, ps), "cleaning an already-clean tree is a no-op")

	require.NoError(t, Clean(ScopeAll, ps))
	require.NoError(t, Clean(ScopeAll, ps))
}

func TestClean_VirginTree(t *testing.T) {
	cfg := &config.Config{}
	cfg.Build.Root = filepath.Join(t.TempDir(), "never-built", "_build")
	ps := paths.Resolve(paths.ModeLocal, cfg, false)

	assert.NoError(t, Clean(ScopeOutputs, ps))
	assert.NoError(t, Clean(ScopeAll, ps))
}
