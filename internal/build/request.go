package build

import "git.home.luguber.info/inful/bookbuilder/internal/paths"

// Target selects which artifacts a build produces.
type Target string

const (
	// TargetFull executes content, typesets the document and exports static HTML.
	TargetFull Target = "full"
	// TargetArtifactOnly typesets the document without executing content.
	TargetArtifactOnly Target = "artifact"
	// TargetDocumentOnly renders the document site without typesetting a PDF.
	TargetDocumentOnly Target = "document"
)

// BuildRequest is constructed once per invocation (or once per debounce cycle
// in the development server) and is immutable afterwards.
type BuildRequest struct {
	Target Target
	Mode   paths.Mode
}

// StaticExport reports whether the request asks for the static-HTML artifact.
func (r BuildRequest) StaticExport() bool {
	return r.Target == TargetFull
}

// executeArgs derives the renderer flag set for the Execute stage.
func (r BuildRequest) executeArgs() []string {
	switch r.Target {
	case TargetArtifactOnly:
		return []string{"--no-execute", "--pdf"}
	case TargetDocumentOnly:
		return []string{"--execute"}
	default:
		return []string{"--execute", "--pdf"}
	}
}

// exportArgs derives the renderer flag set for the Export stage. The export
// reuses the already-rendered intermediate state, so execution is skipped.
func exportArgs(htmlDir string) []string {
	return []string{"--html", "--output", htmlDir}
}
