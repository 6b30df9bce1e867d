package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookbuilder/internal/build"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/history"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/workspace"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"book.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	CI      bool             `help:"Force continuous-integration mode (also selected by the CI env marker)"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build the book artifacts once and exit"`
	Serve ServeCmd `cmd:"" help:"Serve a local preview with watch and live rebuild"`
	Clean CleanCmd `cmd:"" help:"Remove generated build artifacts"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// BuildFailedError carries the failing stage so main can mirror it in the
// process exit code.
type BuildFailedError struct {
	Stage build.Stage
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build failed at %s stage", e.Stage)
}

// ExitCode maps the failing stage to a distinct non-zero exit code.
func (e *BuildFailedError) ExitCode() int {
	switch e.Stage {
	case build.StageExecute:
		return 2
	case build.StageExport:
		return 3
	default:
		return 1
	}
}

// openHistory attaches the build-history store under the build root.
// Best-effort: a store failure degrades to no recording.
func openHistory(cfg *config.Config) *history.Store {
	if err := workspace.NewManager(cfg.Build.Root).EnsureRoot(); err != nil {
		slog.Warn("Build history disabled", logfields.Error(err))
		return nil
	}
	store, err := history.Open(filepath.Join(cfg.Build.Root, "history.db"))
	if err != nil {
		slog.Warn("Build history disabled", logfields.Error(err))
		return nil
	}
	return store
}
