// Package synth turns extracted blocks into generated pytest modules.
//
// Each block becomes a trivial test function whose docstring carries the
// documentation examples, preceded by a provenance directive naming the
// original file and line:
//
//	# line 8 "pkg/core.pyi"
//	def test_add():
//	    """
//	    >>> add(2, 3)
//	    5
//	    """
//	    pass
package synth

import (
	"fmt"
	"strconv"
	"strings"

	"stubtester/internal/logging"
	"stubtester/internal/patterns"
	"stubtester/internal/types"
)

// FileSuffix is appended to the artifact stem to name a generated module.
const FileSuffix = "_test.py"

// Module is one generated test module.
type Module struct {
	// FileName is the flat name inside the workspace, "<stem>_test.py".
	FileName string
	// Source is the display path of the artifact the module came from.
	Source string
	// Tests lists the synthesized function names in order.
	Tests []string
	Text  string
	Table types.ProvenanceTable
}

// Stem returns FileName without the ".py" extension, the module name the
// engine imports it under.
func (m Module) Stem() string {
	return strings.TrimSuffix(m.FileName, ".py")
}

// Synthesizer builds modules for one run. File names are unique across
// everything it has built. It is not safe for concurrent use.
type Synthesizer struct {
	files    map[string]int
	reserved map[string]bool
}

// New creates a synthesizer with an empty file-name registry.
func New() *Synthesizer {
	return &Synthesizer{files: make(map[string]int), reserved: make(map[string]bool)}
}

// Reserve keeps the stems of artifacts out of the generated module names,
// so "a_test.pyi" and the module for "a.pyi" never share a dotted name in
// engine output.
func (s *Synthesizer) Reserve(artifacts ...types.Artifact) {
	for _, a := range artifacts {
		s.reserved[a.Stem()] = true
	}
}

// Build generates the module for a's blocks. ok is false when no block has
// a body, in which case nothing should be written.
func (s *Synthesizer) Build(a types.Artifact, blocks []types.Block) (Module, bool) {
	var kept []types.Block
	for _, b := range blocks {
		if strings.TrimSpace(b.Body) != "" {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		logging.SynthDebug("%s: no blocks, no module", a.Display)
		return Module{}, false
	}

	m := Module{
		FileName: s.fileName(a),
		Source:   a.Display,
		Table:    make(types.ProvenanceTable, len(kept)),
	}

	var b strings.Builder
	line := 1
	emit := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
		line++
	}

	emit("# Generated tests from " + a.Display)

	names := make(map[string]int)
	for _, blk := range kept {
		name := uniqueName(names, "test_"+blk.Name)
		m.Tests = append(m.Tests, name)

		emit("")
		emit(patterns.FormatDirective(blk.SourceFile, blk.SourceLine))
		m.Table[line] = types.Origin{File: blk.SourceFile, Line: blk.SourceLine}
		emit("def " + name + "():")
		emit(`    """`)
		for _, l := range strings.Split(strings.TrimSuffix(blk.Body, "\n"), "\n") {
			emit(l)
		}
		emit(`    """`)
		emit("    pass")
	}

	m.Text = b.String()
	logging.Synth("%s -> %s (%d test(s))", a.Display, m.FileName, len(m.Tests))
	return m, true
}

func (s *Synthesizer) fileName(a types.Artifact) string {
	stem := patterns.Identifier(a.Stem())
	if stem == "" {
		stem = "module"
	}
	name := uniqueName(s.files, stem)
	for s.reserved[name+strings.TrimSuffix(FileSuffix, ".py")] {
		name = uniqueName(s.files, stem)
	}
	return name + FileSuffix
}

// uniqueName returns name the first time it is seen and name_2, name_3...
// afterwards.
func uniqueName(seen map[string]int, name string) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	candidate := name + "_" + strconv.Itoa(n)
	for seen[candidate] > 0 {
		n++
		candidate = name + "_" + strconv.Itoa(n)
	}
	seen[name] = n
	seen[candidate]++
	return candidate
}

// Describe renders a one-line summary for verbose output.
func (m Module) Describe() string {
	return fmt.Sprintf("%s: %d test(s) in %s", m.Source, len(m.Tests), m.FileName)
}
