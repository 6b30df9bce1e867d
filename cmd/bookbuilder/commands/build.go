package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/bookbuilder/internal/build"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/paths"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	PdfOnly  bool `name:"pdf-only" help:"Typeset the document only, skipping content execution and the static export"`
	HtmlOnly bool `name:"html-only" help:"Render the document without typesetting a PDF"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	req := build.BuildRequest{
		Target: b.target(),
		Mode:   paths.DetectMode(root.CI),
	}

	// Signal-based context so Ctrl-C terminates the renderer cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch := build.NewOrchestrator(cfg)
	if store := openHistory(cfg); store != nil {
		defer func() { _ = store.Close() }()
		orch.WithHistory(store)
	}

	result := orch.Run(ctx, req)

	for _, warn := range result.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warn)
	}

	if result.Canceled {
		return &BuildFailedError{Stage: result.Stage}
	}
	if !result.Success {
		// The renderer's full diagnostic is the primary debugging signal.
		if result.ErrorDetail != "" {
			fmt.Fprintln(os.Stderr, result.ErrorDetail)
		}
		return &BuildFailedError{Stage: result.Stage}
	}

	fmt.Println("Build completed successfully")
	return nil
}

func (b *BuildCmd) target() build.Target {
	switch {
	case b.PdfOnly:
		return build.TargetArtifactOnly
	case b.HtmlOnly:
		return build.TargetDocumentOnly
	default:
		return build.TargetFull
	}
}
