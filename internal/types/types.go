// Package types provides the data model shared across stubtester packages.
// Types in this package are plain values with no filesystem back-references.
package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// =============================================================================
// ARTIFACTS
// =============================================================================

// ArtifactKind classifies a discovered source artifact.
type ArtifactKind string

const (
	KindInterface ArtifactKind = "interface"
	KindMarkdown  ArtifactKind = "markdown"
)

// Artifact is a discovered file, read once and immutable afterwards.
type Artifact struct {
	// Path is the absolute path on disk.
	Path string
	// Display is the path shown to users and embedded in provenance
	// directives: relative to the working directory when possible.
	Display string
	Kind    ArtifactKind
	Text    string
}

// Stem returns the file name without its extension.
func (a Artifact) Stem() string {
	base := filepath.Base(a.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// EXTRACTED BLOCKS
// =============================================================================

// Block is one documentation-bearing construct extracted from an artifact.
type Block struct {
	// Name is a valid identifier fragment, unique after synthesis.
	Name string
	// Body is the documentation text, already safe to embed between
	// triple quotes.
	Body string
	// SourceLine is the 1-based line of the construct's first line.
	SourceLine int
	// SourceFile is the display path of the artifact.
	SourceFile string
}

// String returns a short location label for logs.
func (b Block) String() string {
	return fmt.Sprintf("%s:%d %s", b.SourceFile, b.SourceLine, b.Name)
}

// =============================================================================
// PROVENANCE
// =============================================================================

// Origin locates a line in an original artifact.
type Origin struct {
	File string
	Line int
}

// String returns "file:line".
func (o Origin) String() string {
	return fmt.Sprintf("%s:%d", o.File, o.Line)
}

// ProvenanceTable maps 1-based generated line numbers to their origin.
// Only lines annotated with a provenance directive have entries.
type ProvenanceTable map[int]Origin

// First returns the origin with the lowest generated line number.
func (t ProvenanceTable) First() (Origin, bool) {
	best := 0
	for line := range t {
		if best == 0 || line < best {
			best = line
		}
	}
	if best == 0 {
		return Origin{}, false
	}
	return t[best], true
}

// =============================================================================
// RESULTS
// =============================================================================

// TestResult counts executed documentation examples. Failed is derived;
// aggregation sums Total and Passed only.
type TestResult struct {
	Total  int
	Passed int
}

// Failed returns Total - Passed.
func (r TestResult) Failed() int {
	return r.Total - r.Passed
}

