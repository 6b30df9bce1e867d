package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestProvision_CopiesFiles(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "nested", "template")

	writeFile(t, filepath.Join(src, "template.tex"), "\\documentclass{book}")
	writeFile(t, filepath.Join(src, "template.yml"), "jtex: v1")

	warnings, err := Provision(src, dest)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	got, err := os.ReadFile(filepath.Join(dest, "template.tex"))
	require.NoError(t, err)
	assert.Equal(t, "\\documentclass{book}", string(got))
}

func TestProvision_OverwritesExistingFiles(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	writeFile(t, filepath.Join(src, "template.tex"), "new")
	writeFile(t, filepath.Join(dest, "template.tex"), "stale")

	warnings, err := Provision(src, dest)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	got, err := os.ReadFile(filepath.Join(dest, "template.tex"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestProvision_Idempotent(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFile(t, filepath.Join(src, "a.tex"), "alpha")
	writeFile(t, filepath.Join(src, "sub", "b.cls"), "beta")

	_, err := Provision(src, dest)
	require.NoError(t, err)
	first := readTree(t, dest)

	_, err = Provision(src, dest)
	require.NoError(t, err)
	second := readTree(t, dest)

	assert.Equal(t, first, second, "re-running must produce byte-identical destination contents")
}

func TestProvision_MissingSourceIsSoftFailure(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "dest")

	warnings, err := Provision(filepath.Join(t.TempDir(), "does-not-exist"), dest)
	require.NoError(t, err, "missing source must not fail the build")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "template source not found")

	// Destination is still created so later stages have a stable tree.
	st, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestProvision_EmptySourceIsSoftFailure(t *testing.T) {
	warnings, err := Provision(t.TempDir(), filepath.Join(t.TempDir(), "dest"))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no files")
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}
