package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryInvoker_MissingBinary(t *testing.T) {
	inv := &BinaryInvoker{Command: "definitely-not-a-real-renderer-binary"}

	err := inv.Invoke(context.Background(), t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRendererNotFound))
	assert.False(t, IsCanceled(err))
}

func TestBinaryInvoker_FailureCarriesDiagnostic(t *testing.T) {
	// sh -c 'echo ...; exit 3' stands in for a failing renderer.
	inv := &BinaryInvoker{Command: "sh", Prefix: []string{"-c"}}

	err := inv.Invoke(context.Background(), t.TempDir(),
		[]string{"echo 'TexError: missing \\\\end{document}' >&2; exit 3"})
	require.Error(t, err)

	var re *RunError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Diagnostic, "TexError")
	assert.False(t, re.Canceled)
}

func TestBinaryInvoker_CancellationIsNotAFailure(t *testing.T) {
	inv := &BinaryInvoker{Command: "sh", Prefix: []string{"-c"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- inv.Invoke(ctx, t.TempDir(), []string{"sleep 30"})
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, IsCanceled(err), "cancellation must be classified as supersession")
	case <-time.After(5 * time.Second):
		t.Fatal("canceled invocation did not return")
	}
}

func TestBinaryInvoker_MissingSourceRoot(t *testing.T) {
	inv := &BinaryInvoker{Command: "sh"}

	err := inv.Invoke(context.Background(), "/does/not/exist", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source root not found")
}

func TestNoopInvoker(t *testing.T) {
	assert.NoError(t, (&NoopInvoker{}).Invoke(context.Background(), ".", nil))
}
