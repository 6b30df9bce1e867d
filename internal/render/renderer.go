// Package render wraps the external renderer as a typed collaborator. The
// orchestrator never inspects renderer output beyond success/failure plus the
// raw diagnostic text; the renderer owns everything about document content.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
)

// Invoker abstracts how the renderer is executed. This allows swapping out
// the external binary (BinaryInvoker) with alternative strategies (no-op for
// tests, remote render service) without changing stage orchestration.
type Invoker interface {
	Invoke(ctx context.Context, sourceRoot string, args []string) error
}

// RunError carries the renderer's raw diagnostic output. The diagnostic is the
// primary debugging signal for the operator and is never summarized away.
type RunError struct {
	Diagnostic string
	Canceled   bool
	Err        error
}

func (e *RunError) Error() string {
	if e.Canceled {
		return "renderer invocation canceled"
	}
	if e.Diagnostic != "" {
		return fmt.Sprintf("renderer failed: %v: %s", e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("renderer failed: %v", e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsCanceled reports whether err represents a superseded renderer invocation.
// Supersession is normal control flow, not a failure.
func IsCanceled(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Canceled
	}
	return errors.Is(err, context.Canceled)
}

// ErrRendererNotFound indicates the renderer binary is not on PATH.
var ErrRendererNotFound = errors.New("renderer binary not found")

// BinaryInvoker invokes the configured renderer binary from the source root.
type BinaryInvoker struct {
	Command string   // Binary name, e.g. "jupyter"
	Prefix  []string // Leading args, e.g. ["book", "build"]
}

func (b *BinaryInvoker) Invoke(ctx context.Context, sourceRoot string, args []string) error {
	if _, err := exec.LookPath(b.Command); err != nil {
		return &RunError{Err: fmt.Errorf("%w: %w", ErrRendererNotFound, err)}
	}

	if st, err := os.Stat(sourceRoot); err != nil || !st.IsDir() {
		return &RunError{Err: fmt.Errorf("source root not found: %s", sourceRoot)}
	}

	argv := append(append([]string{}, b.Prefix...), args...)
	cmd := exec.CommandContext(ctx, b.Command, argv...)
	cmd.Dir = sourceRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking renderer", slog.String("command", b.Command),
		slog.Any("args", argv), logfields.Path(sourceRoot))

	err := cmd.Run()

	if ctx.Err() != nil {
		// Terminated by supersession or shutdown; output is meaningless.
		return &RunError{Canceled: true, Err: ctx.Err()}
	}
	if err == nil {
		return nil
	}

	// The renderer may write errors to either stream; keep both.
	diag := stderr.String()
	if out := stdout.String(); out != "" {
		if diag != "" {
			diag = out + "\n" + diag
		} else {
			diag = out
		}
	}
	return &RunError{Diagnostic: diag, Err: err}
}

// NoopInvoker performs no rendering; useful in tests or dry runs.
type NoopInvoker struct{}

func (n *NoopInvoker) Invoke(_ context.Context, sourceRoot string, _ []string) error {
	slog.Debug("NoopInvoker skipping render", logfields.Path(sourceRoot))
	return nil
}
