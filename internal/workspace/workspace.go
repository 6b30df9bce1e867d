// Package workspace manages the working build tree. The root is a fixed
// directory (conventionally _build); staging subdirectories give in-flight
// builds a private output location that is only published on success.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
)

const stagingPrefix = "staging-"

// Manager handles build tree operations
type Manager struct {
	root string
}

// NewManager creates a workspace manager over the given build root.
func NewManager(root string) *Manager {
	if root == "" {
		root = "_build"
	}
	return &Manager{root: root}
}

// Root returns the build tree root path.
func (m *Manager) Root() string {
	return m.root
}

// EnsureRoot creates the build root if absent.
func (m *Manager) EnsureRoot() error {
	if err := os.MkdirAll(m.root, 0o750); err != nil {
		return fmt.Errorf("create build root: %w", err)
	}
	return nil
}

// CreateStaging creates a fresh timestamped staging directory under the root.
// Each in-flight build writes into its own staging dir so a superseded build
// never contaminates published output.
func (m *Manager) CreateStaging() (string, error) {
	if err := m.EnsureRoot(); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(m.root, stagingPrefix+time.Now().Format("20060102-150405")+"-*")
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	slog.Debug("Created staging directory", logfields.Path(dir))
	return dir, nil
}

// RemoveStaging deletes a staging directory. Paths outside the build root are
// refused. A missing directory is a no-op.
func (m *Manager) RemoveStaging(dir string) error {
	if dir == "" {
		return nil
	}
	if !m.isStagingPath(dir) {
		return fmt.Errorf("refusing to remove non-staging path: %s", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove staging directory: %w", err)
	}
	return nil
}

// RemoveAllStaging deletes every staging directory under the root, including
// leftovers from crashed runs.
func (m *Manager) RemoveAllStaging() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read build root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), stagingPrefix) {
			if err := os.RemoveAll(filepath.Join(m.root, entry.Name())); err != nil {
				return fmt.Errorf("remove staging directory %s: %w", entry.Name(), err)
			}
		}
	}
	return nil
}

func (m *Manager) isStagingPath(dir string) bool {
	rel, err := filepath.Rel(m.root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return strings.HasPrefix(filepath.Base(dir), stagingPrefix)
}
