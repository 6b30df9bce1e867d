// Package template provisions the customized rendering template into the
// working build tree before any render step. A missing or empty template
// source is a soft degradation: the renderer falls back to its default
// template, so provisioning reports a warning instead of failing the build.
package template

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
)

// Provision ensures destDir exists and copies every file from srcDir into it,
// overwriting existing files. Re-running with an unchanged source produces an
// identical destination. Returned warnings carry soft degradations; the error
// is only non-nil for real filesystem failures.
func Provision(srcDir, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("create template destination %s: %w", destDir, err)
	}

	st, err := os.Stat(srcDir)
	if err != nil || !st.IsDir() {
		warn := fmt.Sprintf("template source not found at %s; renderer will use its default template", srcDir)
		slog.Warn("Template source missing", logfields.Path(srcDir))
		return []string{warn}, nil
	}

	copied, err := copyTree(srcDir, destDir)
	if err != nil {
		return nil, err
	}

	if copied == 0 {
		warn := fmt.Sprintf("template source %s contains no files; renderer will use its default template", srcDir)
		slog.Warn("Template source empty", logfields.Path(srcDir))
		return []string{warn}, nil
	}

	slog.Info("Template provisioned", logfields.Path(destDir), slog.Int("files", copied))
	return nil, nil
}

// copyTree recursively copies src into dst and returns the number of regular
// files written.
func copyTree(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("read template source %s: %w", src, err)
	}

	copied := 0
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0o750); err != nil {
				return copied, fmt.Errorf("create %s: %w", dstPath, err)
			}
			n, err := copyTree(srcPath, dstPath)
			copied += n
			if err != nil {
				return copied, err
			}
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		_ = dstFile.Close()
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	// Preserve file permissions
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}
