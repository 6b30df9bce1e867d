package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildError_Error(t *testing.T) {
	err := New(CategoryRender, SeverityFatal, "renderer exploded")
	assert.Equal(t, "render (fatal): renderer exploded", err.Error())

	wrapped := Wrap(stderrors.New("exit status 3"), CategoryRender, SeverityError, "renderer failed")
	assert.Contains(t, wrapped.Error(), "exit status 3")
}

func TestBuildError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(cause, CategoryWatch, SeverityFatal, "watch failed")

	assert.True(t, stderrors.Is(err, cause))
}

func TestIsCategory_ThroughWrapping(t *testing.T) {
	err := New(CategoryWatch, SeverityFatal, "inotify limit reached")
	outer := fmt.Errorf("server startup: %w", err)

	assert.True(t, IsCategory(outer, CategoryWatch))
	assert.False(t, IsCategory(outer, CategoryRender))
	assert.Equal(t, CategoryWatch, GetCategory(outer))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestWithContext(t *testing.T) {
	err := New(CategoryTemplate, SeverityWarning, "missing source").
		WithContext("path", "templates/tex/custom")
	assert.Equal(t, "templates/tex/custom", err.Context["path"])
}
