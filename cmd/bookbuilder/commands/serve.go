package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/build"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/server"
)

// ServeCmd starts the development server: one full local build, then a
// watch/debounce/rebuild loop serving the latest good output.
type ServeCmd struct {
	Port         int           `short:"p" help:"Preview server port (overrides config)"`
	Debounce     time.Duration `help:"Change coalescing window (overrides config)"`
	NoLiveReload bool          `name:"no-live-reload" help:"Disable the live-reload SSE endpoint"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if s.Port != 0 {
		cfg.Serve.Port = s.Port
	}
	if s.Debounce != 0 {
		cfg.Serve.DebounceMS = int(s.Debounce.Milliseconds())
	}
	if s.NoLiveReload {
		off := false
		cfg.Serve.LiveReload = &off
	}

	sigctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch := build.NewOrchestrator(cfg)
	srv := server.New(cfg, orch)
	if store := openHistory(cfg); store != nil {
		defer func() { _ = store.Close() }()
		orch.WithHistory(store)
		srv.WithHistory(store)
	}

	return srv.Run(sigctx)
}
