package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/bookbuilder/internal/history"
)

// PreviewServer serves the latest successful build output. The served root is
// swapped atomically after a publish, so requests never observe a partially
// written directory.
type PreviewServer struct {
	root    atomic.Value // string; empty until the first successful build
	srv     *http.Server
	ln      net.Listener
	hub     *LiveReloadHub
	metrics *Metrics
	history *history.Store
}

// NewPreviewServer wires the preview endpoints. hub may be nil when live
// reload is disabled.
func NewPreviewServer(hub *LiveReloadHub, metrics *Metrics) *PreviewServer {
	p := &PreviewServer{hub: hub, metrics: metrics}
	p.root.Store("")

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", p.handleHealthz)
	mux.HandleFunc("/status", p.handleStatus)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	if hub != nil {
		mux.Handle("/livereload", hub)
	}
	mux.HandleFunc("/", p.handleSite)

	p.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return p
}

// WithHistory attaches the build-history store backing /status. Without a
// store the endpoint reports the serving state with an empty build list.
func (p *PreviewServer) WithHistory(h *history.Store) *PreviewServer {
	p.history = h
	return p
}

// SetRoot publishes a new output root. Safe to call while serving.
func (p *PreviewServer) SetRoot(dir string) {
	p.root.Store(dir)
}

// Root returns the currently served output root ("" before the first publish).
func (p *PreviewServer) Root() string {
	return p.root.Load().(string)
}

// Start begins listening on the given port. Port 0 picks an ephemeral port.
func (p *PreviewServer) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("preview listener: %w", err)
	}
	p.ln = ln
	go func() {
		if err := p.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Preview server failed", "error", err)
		}
	}()
	slog.Info("Preview server listening", "url", fmt.Sprintf("http://%s", ln.Addr()))
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (p *PreviewServer) Addr() string {
	if p.ln == nil {
		return ""
	}
	return p.ln.Addr().String()
}

// Stop shuts the server down gracefully.
func (p *PreviewServer) Stop(ctx context.Context) error {
	if p.hub != nil {
		p.hub.Close()
	}
	return p.srv.Shutdown(ctx)
}

func (p *PreviewServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if p.Root() == "" {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "waiting for first successful build")
		return
	}
	fmt.Fprintln(w, "ok")
}

// statusBuild is the wire shape of one history record on /status.
type statusBuild struct {
	BuildID    string    `json:"build_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Target     string    `json:"target"`
	Mode       string    `json:"mode"`
	Success    bool      `json:"success"`
	Canceled   bool      `json:"canceled"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error,omitempty"`
}

type statusResponse struct {
	Serving bool          `json:"serving"`
	Builds  []statusBuild `json:"builds"`
}

func (p *PreviewServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Serving: p.Root() != "", Builds: []statusBuild{}}
	if p.history != nil {
		records, err := p.history.Recent(r.Context(), 20)
		if err != nil {
			slog.Warn("Failed to read build history", "error", err)
			http.Error(w, "build history unavailable", http.StatusInternalServerError)
			return
		}
		for _, rec := range records {
			resp.Builds = append(resp.Builds, statusBuild{
				BuildID:    rec.BuildID,
				StartedAt:  rec.StartedAt,
				DurationMS: rec.Duration.Milliseconds(),
				Target:     rec.Target,
				Mode:       rec.Mode,
				Success:    rec.Success,
				Canceled:   rec.Canceled,
				Stage:      rec.Stage,
				Error:      rec.Error,
			})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to encode status response", "error", err)
	}
}

func (p *PreviewServer) handleSite(w http.ResponseWriter, r *http.Request) {
	root := p.Root()
	if root == "" {
		http.Error(w, "no successful build yet", http.StatusServiceUnavailable)
		return
	}
	http.FileServer(http.Dir(root)).ServeHTTP(w, r)
}
