package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/bookbuilder/internal/clean"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/paths"
)

// CleanCmd removes generated artifacts. Cleaning always exits 0: an already
// clean (or never built) tree is a normal state, not an error.
type CleanCmd struct {
	All bool `help:"Remove the entire build tree, including the provisioned template copy"`
}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	scope := clean.ScopeOutputs
	if c.All {
		scope = clean.ScopeAll
	}

	// Static export dir counts as an output root even when the last build did
	// not request it.
	ps := paths.Resolve(paths.DetectMode(root.CI), cfg, true)

	if err := clean.Clean(scope, ps); err != nil {
		slog.Warn("Clean incomplete", logfields.Error(err))
	}
	fmt.Println("Clean completed")
	return nil
}
