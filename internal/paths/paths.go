// Package paths resolves the output directory layout for a build. Resolution
// is a pure function of the execution mode and the site configuration: no
// filesystem access, no side effects, and it never fails. Optional directories
// are nil pointers so downstream stages can distinguish "not requested" from
// "requested but empty".
package paths

import (
	"path/filepath"

	"git.home.luguber.info/inful/bookbuilder/internal/config"
)

// Mode selects the execution context for path resolution.
type Mode string

const (
	ModeCI    Mode = "ci"
	ModeLocal Mode = "local"
)

// DetectMode returns ModeCI when a CI environment marker is present, or when
// the caller forces it, and ModeLocal otherwise.
func DetectMode(forceCI bool) Mode {
	if forceCI || config.IsCI() {
		return ModeCI
	}
	return ModeLocal
}

// PathSet is the resolved directory layout for one build attempt. It is
// recomputed per request and never mutated in place.
type PathSet struct {
	SourceRoot        string
	TemplateSourceDir string
	TemplateDestDir   string
	ArtifactDir       string

	// StaticHTMLDir is set in CI mode and on explicit static-export requests.
	StaticHTMLDir *string
	// SiteDir is only honored in local mode when the site config overrides it.
	SiteDir *string
}

// BuildRoot returns the working build tree root the set was resolved against.
func (p PathSet) BuildRoot() string {
	return filepath.Dir(p.ArtifactDir)
}

// Resolve derives the directory layout from mode and config. staticExport
// requests the static-HTML artifact; in CI mode the HTML root is always
// produced at its canonical location regardless of config hints.
func Resolve(mode Mode, cfg *config.Config, staticExport bool) PathSet {
	root := cfg.Build.Root

	ps := PathSet{
		SourceRoot:        cfg.Source.Root,
		TemplateSourceDir: cfg.Template.Source,
		TemplateDestDir:   filepath.Join(root, "templates", "tex", "myst", "custom_latex_book"),
		ArtifactDir:       filepath.Join(root, "exports"),
	}

	switch mode {
	case ModeCI:
		// CI ignores site overrides: output locations must be canonical so
		// pipelines can pick artifacts up from fixed paths.
		html := filepath.Join(root, "html")
		ps.StaticHTMLDir = &html
	default:
		if staticExport {
			html := filepath.Join(root, "html")
			ps.StaticHTMLDir = &html
		}
		if cfg.Output.Site != "" {
			site := cfg.Output.Site
			ps.SiteDir = &site
		}
	}

	return ps
}
