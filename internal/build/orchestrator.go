// Package build runs the ordered stage pipeline for one-shot builds:
// provision the template, execute the renderer, export formats. Provisioning
// is soft-fail only; a renderer failure at execute or export aborts the
// pipeline and surfaces the raw diagnostic.
package build

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bookbuilder/internal/config"
	"git.home.luguber.info/inful/bookbuilder/internal/history"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/paths"
	"git.home.luguber.info/inful/bookbuilder/internal/render"
	"git.home.luguber.info/inful/bookbuilder/internal/template"
)

// Orchestrator drives the stage pipeline. Stages are idempotent: re-running
// the same request after a failure is always safe.
type Orchestrator struct {
	cfg     *config.Config
	invoker render.Invoker
	history *history.Store
}

// NewOrchestrator creates an orchestrator using the configured renderer binary.
func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		cfg: cfg,
		invoker: &render.BinaryInvoker{
			Command: cfg.Render.Command,
			Prefix:  cfg.Render.Args,
		},
	}
}

// WithInvoker allows tests or callers to inject a custom renderer.
func (o *Orchestrator) WithInvoker(inv render.Invoker) *Orchestrator {
	if inv != nil {
		o.invoker = inv
	}
	return o
}

// WithHistory attaches a build-history store. Recording is best-effort and
// never fails a build.
func (o *Orchestrator) WithHistory(h *history.Store) *Orchestrator {
	o.history = h
	return o
}

// buildState is shared across stages of one run.
type buildState struct {
	req      BuildRequest
	ps       paths.PathSet
	warnings []string
}

type stageDef struct {
	name Stage
	fn   func(ctx context.Context, bs *buildState) error
}

// Run resolves paths for the request and executes the pipeline.
func (o *Orchestrator) Run(ctx context.Context, req BuildRequest) BuildResult {
	return o.RunWithPaths(ctx, req, paths.Resolve(req.Mode, o.cfg, req.StaticExport()))
}

// RunWithPaths executes the pipeline against a pre-resolved PathSet. The
// development server uses this to direct the static export into a staging
// directory that is only published on success.
func (o *Orchestrator) RunWithPaths(ctx context.Context, req BuildRequest, ps paths.PathSet) BuildResult {
	result := BuildResult{
		ID:      uuid.NewString(),
		Request: req,
	}
	started := time.Now()
	bs := &buildState{req: req, ps: ps}

	slog.Info("Starting build",
		logfields.BuildID(result.ID),
		logfields.Target(string(req.Target)),
		logfields.Mode(string(req.Mode)))

	for _, st := range o.stages(req) {
		select {
		case <-ctx.Done():
			result.Canceled = true
			result.Stage = st.name
			result.Duration = time.Since(started)
			slog.Debug("Build canceled before stage",
				logfields.BuildID(result.ID), logfields.Stage(string(st.name)))
			o.record(ctx, result, started)
			return result
		default:
		}

		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)
		slog.Debug("Stage finished",
			logfields.Stage(string(st.name)),
			logfields.DurationMS(float64(dur.Milliseconds())))

		if err != nil {
			result.Stage = st.name
			result.Duration = time.Since(started)
			result.Warnings = bs.warnings
			if render.IsCanceled(err) {
				result.Canceled = true
				slog.Debug("Build superseded",
					logfields.BuildID(result.ID), logfields.Stage(string(st.name)))
			} else {
				result.ErrorDetail = err.Error()
				slog.Error("Stage failed",
					logfields.BuildID(result.ID),
					logfields.Stage(string(st.name)),
					logfields.Error(err))
			}
			o.record(ctx, result, started)
			return result
		}
		result.Stage = st.name
	}

	result.Success = true
	result.Warnings = bs.warnings
	result.Duration = time.Since(started)
	slog.Info("Build completed",
		logfields.BuildID(result.ID),
		logfields.DurationMS(float64(result.Duration.Milliseconds())),
		slog.Int("warnings", len(result.Warnings)))
	o.record(ctx, result, started)
	return result
}

func (o *Orchestrator) stages(req BuildRequest) []stageDef {
	stages := []stageDef{
		{StageProvision, o.stageProvision},
		{StageExecute, o.stageExecute},
	}
	if req.StaticExport() {
		stages = append(stages, stageDef{StageExport, o.stageExport})
	}
	return stages
}

// stageProvision copies the template into the build tree. Soft-fail only:
// warnings are attached to the result and the pipeline continues.
func (o *Orchestrator) stageProvision(_ context.Context, bs *buildState) error {
	warnings, err := template.Provision(bs.ps.TemplateSourceDir, bs.ps.TemplateDestDir)
	if err != nil {
		// Filesystem trouble while copying is a hard failure; a missing
		// source would have come back as a warning instead.
		return err
	}
	bs.warnings = append(bs.warnings, warnings...)
	return nil
}

func (o *Orchestrator) stageExecute(ctx context.Context, bs *buildState) error {
	return o.invoker.Invoke(ctx, bs.ps.SourceRoot, bs.req.executeArgs())
}

func (o *Orchestrator) stageExport(ctx context.Context, bs *buildState) error {
	if bs.ps.StaticHTMLDir == nil {
		return nil
	}
	return o.invoker.Invoke(ctx, bs.ps.SourceRoot, exportArgs(*bs.ps.StaticHTMLDir))
}

func (o *Orchestrator) record(ctx context.Context, result BuildResult, started time.Time) {
	if o.history == nil {
		return
	}
	rec := history.Record{
		BuildID:   result.ID,
		StartedAt: started,
		Duration:  result.Duration,
		Target:    string(result.Request.Target),
		Mode:      string(result.Request.Mode),
		Success:   result.Success,
		Canceled:  result.Canceled,
		Stage:     string(result.Stage),
		Error:     result.ErrorDetail,
	}
	if err := o.history.Append(context.WithoutCancel(ctx), rec); err != nil {
		slog.Warn("Failed to record build history", logfields.Error(err))
	}
}
