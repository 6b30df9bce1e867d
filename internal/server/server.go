// Package server implements the interactive development loop: build once,
// watch the source tree, coalesce change bursts, cancel superseded builds and
// serve the latest successful output continuously.
//
// All server state is owned by the single Run event loop; builds execute in a
// goroutine but their results are only applied inside the loop, so no two
// builds are ever in flight at once and no locking is needed.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/build"
	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/history"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/paths"
	"git.home.luguber.info/inful/bookbuilder/internal/workspace"
)

// DevServer runs the watch/debounce/rebuild/serve loop.
type DevServer struct {
	cfg      *config.Config
	orch     *build.Orchestrator
	ws       *workspace.Manager
	metrics  *Metrics
	hub      *LiveReloadHub
	preview  *PreviewServer
	port     int
	debounce time.Duration
	diag     io.Writer // renderer diagnostics on failed rebuilds
}

// New assembles a development server around an orchestrator.
func New(cfg *config.Config, orch *build.Orchestrator) *DevServer {
	metrics := NewMetrics()
	var hub *LiveReloadHub
	if cfg.LiveReloadEnabled() {
		hub = NewLiveReloadHub(metrics)
	}
	return &DevServer{
		cfg:      cfg,
		orch:     orch,
		ws:       workspace.NewManager(cfg.Build.Root),
		metrics:  metrics,
		hub:      hub,
		preview:  NewPreviewServer(hub, metrics),
		port:     cfg.Serve.Port,
		debounce: time.Duration(cfg.Serve.DebounceMS) * time.Millisecond,
		diag:     os.Stderr,
	}
}

// WithHistory exposes the build-history store through the preview server's
// status endpoint.
func (s *DevServer) WithHistory(h *history.Store) *DevServer {
	s.preview.WithHistory(h)
	return s
}

// Addr returns the preview listen address once Run has started serving.
func (s *DevServer) Addr() string {
	return s.preview.Addr()
}

// inflightBuild is the cancellable handle for the one build that may be
// running at any time.
type inflightBuild struct {
	cancel     context.CancelFunc
	staging    string
	done       chan build.BuildResult
	superseded bool
}

// Run executes the server until ctx is canceled. A watch establishment
// failure is fatal; build failures are not.
func (s *DevServer) Run(ctx context.Context) error {
	watcher, err := NewWatcher(s.cfg.Source.Root, s.cfg.Build.Root)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := s.preview.Start(s.port); err != nil {
		return err
	}

	var (
		inflight  *inflightBuild
		doneC     chan build.BuildResult
		pending   bool
		published string
		lastGood  *build.BuildResult
		debounceT *time.Timer
		debounceC <-chan time.Time
	)

	// Initial full build on startup.
	inflight, err = s.startBuild(ctx)
	if err != nil {
		return err
	}
	doneC = inflight.done

	for {
		select {
		case <-ctx.Done():
			return s.shutdown(inflight)

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			// A newer edit makes any in-flight build stale: cancel it now so
			// its output can never be published.
			if inflight != nil && !inflight.superseded {
				inflight.superseded = true
				inflight.cancel()
			}
			slog.Debug("Change detected", logfields.Path(ev.Path))
			if debounceT == nil {
				debounceT = time.NewTimer(s.debounce)
				debounceC = debounceT.C
			} else {
				if !debounceT.Stop() {
					select {
					case <-debounceT.C:
					default:
					}
				}
				debounceT.Reset(s.debounce)
			}

		case werr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(werr))

		case <-debounceC:
			debounceT = nil
			debounceC = nil
			if inflight != nil {
				// The superseded build is still draining; start as soon as it
				// finishes so builds stay serialized.
				pending = true
				continue
			}
			inflight, err = s.startBuild(ctx)
			if err != nil {
				slog.Error("Failed to start rebuild", logfields.Error(err))
				continue
			}
			doneC = inflight.done

		case res := <-doneC:
			published, lastGood = s.finishBuild(inflight, res, published, lastGood)
			inflight = nil
			doneC = nil
			if pending {
				pending = false
				inflight, err = s.startBuild(ctx)
				if err != nil {
					slog.Error("Failed to start rebuild", logfields.Error(err))
					continue
				}
				doneC = inflight.done
			}
		}
	}
}

// startBuild launches a cancellable full build whose static export lands in a
// fresh staging directory.
func (s *DevServer) startBuild(ctx context.Context) (*inflightBuild, error) {
	staging, err := s.ws.CreateStaging()
	if err != nil {
		return nil, err
	}

	req := build.BuildRequest{Target: build.TargetFull, Mode: paths.ModeLocal}
	ps := paths.Resolve(paths.ModeLocal, s.cfg, true)
	ps.StaticHTMLDir = &staging

	bctx, cancel := context.WithCancel(ctx)
	ib := &inflightBuild{
		cancel:  cancel,
		staging: staging,
		done:    make(chan build.BuildResult, 1),
	}
	go func() {
		ib.done <- s.orch.RunWithPaths(bctx, req, ps)
	}()
	return ib, nil
}

// finishBuild applies a build outcome: publish on success, discard on
// supersession, keep the last good output on failure.
func (s *DevServer) finishBuild(ib *inflightBuild, res build.BuildResult, published string, lastGood *build.BuildResult) (string, *build.BuildResult) {
	ib.cancel()

	if ib.superseded || res.Canceled {
		// Normal control flow: output of a stale build is discarded outright,
		// even if the build happened to complete before the cancel landed.
		s.metrics.ObserveBuild(OutcomeCanceled, res.Duration)
		s.discardStaging(ib.staging)
		return published, lastGood
	}

	if !res.Success {
		s.metrics.ObserveBuild(OutcomeFailure, res.Duration)
		s.discardStaging(ib.staging)
		// Keep serving the last good build; surface the raw diagnostic.
		slog.Error("Rebuild failed; still serving last good build",
			logfields.BuildID(res.ID),
			logfields.Stage(string(res.Stage)))
		if res.ErrorDetail != "" {
			fmt.Fprintln(s.diag, res.ErrorDetail)
		}
		return published, lastGood
	}

	s.metrics.ObserveBuild(OutcomeSuccess, res.Duration)
	s.preview.SetRoot(ib.staging)
	if published != "" {
		s.discardStaging(published)
	}
	if s.hub != nil {
		s.hub.Broadcast(fmt.Sprintf("%d", time.Now().UnixNano()))
	}
	slog.Info("Serving updated build",
		logfields.BuildID(res.ID),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return ib.staging, &res
}

func (s *DevServer) discardStaging(dir string) {
	if err := s.ws.RemoveStaging(dir); err != nil {
		slog.Warn("failed to remove staging directory", logfields.Path(dir), logfields.Error(err))
	}
}

// shutdown cancels any in-flight build, stops the listener and removes
// transient staging directories.
func (s *DevServer) shutdown(inflight *inflightBuild) error {
	slog.Info("Shutting down development server")

	if inflight != nil {
		inflight.cancel()
		select {
		case <-inflight.done:
		case <-time.After(10 * time.Second):
			slog.Warn("in-flight build did not stop in time")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.preview.Stop(shutdownCtx); err != nil {
		slog.Warn("preview server shutdown error", logfields.Error(err))
	}

	if err := s.ws.RemoveAllStaging(); err != nil {
		slog.Warn("failed to remove staging directories", logfields.Error(err))
	}
	return nil
}
