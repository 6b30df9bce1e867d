package build

import "time"

// Stage identifies a pipeline stage.
type Stage string

const (
	StageProvision Stage = "provision"
	StageExecute   Stage = "execute"
	StageExport    Stage = "export"
)

// BuildResult is the terminal outcome of one orchestrator run. On failure,
// Stage names the failing stage and ErrorDetail carries the renderer's raw
// diagnostic text.
type BuildResult struct {
	ID          string
	Request     BuildRequest
	Success     bool
	Canceled    bool
	Stage       Stage
	Warnings    []string
	ErrorDetail string
	Duration    time.Duration
}

// Degraded reports whether the build succeeded with soft degradations.
func (r BuildResult) Degraded() bool {
	return r.Success && len(r.Warnings) > 0
}
