// Package clean removes generated artifacts under the well-known output
// roots. It never touches source or template-source trees, and cleaning an
// already-clean tree is a no-op.
package clean

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/paths"
	"git.home.luguber.info/inful/bookbuilder/internal/workspace"
)

// Scope selects how much generated state to remove.
type Scope string

const (
	// ScopeOutputs removes exported artifacts, the site output and transient
	// staging directories, leaving the provisioned template in place.
	ScopeOutputs Scope = "outputs"
	// ScopeAll removes the entire build working tree, including the
	// provisioned template copy (regenerated by the next provision step).
	ScopeAll Scope = "all"
)

// Clean removes generated artifacts for the given scope. Missing directories
// are ignored.
func Clean(scope Scope, ps paths.PathSet) error {
	if scope == ScopeAll {
		root := ps.BuildRoot()
		if err := removeTree(root); err != nil {
			return err
		}
		if ps.SiteDir != nil {
			if err := removeTree(*ps.SiteDir); err != nil {
				return err
			}
		}
		slog.Info("Removed build tree", logfields.Path(root))
		return nil
	}

	targets := []string{ps.ArtifactDir}
	if ps.StaticHTMLDir != nil {
		targets = append(targets, *ps.StaticHTMLDir)
	}
	if ps.SiteDir != nil {
		targets = append(targets, *ps.SiteDir)
	}
	for _, dir := range targets {
		if err := removeTree(dir); err != nil {
			return err
		}
	}

	// Staging leftovers from interrupted serve sessions count as outputs.
	if err := workspace.NewManager(ps.BuildRoot()).RemoveAllStaging(); err != nil {
		return err
	}

	slog.Info("Removed generated outputs", slog.Int("roots", len(targets)))
	return nil
}

func removeTree(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}
