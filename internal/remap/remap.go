// Package remap rewrites engine output so references to generated modules
// point back at the original artifacts.
//
// A reference "<gen>.py:<line>" becomes "<orig>:<origLine>" when line is a
// provenance entry of that module, "<gen>.py::<id>" becomes "<orig>::<id>",
// and dotted doctest names "<genStem>.<name>" become "<origStem>.<name>".
// Anything else is left as printed. Rewriting is idempotent: text that
// already reads like a rewritten name is never rewritten again, and the
// synthesizer keeps generated stems apart from artifact stems so that case
// does not arise in a run.
package remap

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"stubtester/internal/logging"
	"stubtester/internal/patterns"
	"stubtester/internal/types"
)

// Source is the provenance of one generated module.
type Source struct {
	// FileName is the generated module's file name, e.g. "core_test.py".
	FileName string
	Table    types.ProvenanceTable
	// Tests are the function names the module defines. When set, only
	// "<stem>.<test>" names are rewritten; otherwise any dotted name that
	// does not look like a ".py*" extension is.
	Tests []string
}

// ParseProvenance reconstructs the provenance table of a generated module
// from its directives. Each directive maps the line after it.
func ParseProvenance(text string) types.ProvenanceTable {
	table := make(types.ProvenanceTable)
	for i, line := range strings.Split(text, "\n") {
		if file, n, ok := patterns.ParseDirective(line); ok {
			table[i+2] = types.Origin{File: file, Line: n}
		}
	}
	return table
}

var defLine = regexp.MustCompile(`(?m)^def (\w+)\(`)

// SourceFromText builds a Source by parsing a generated module's text.
func SourceFromText(fileName, text string) Source {
	src := Source{FileName: fileName, Table: ParseProvenance(text)}
	for _, m := range defLine.FindAllStringSubmatch(text, -1) {
		src.Tests = append(src.Tests, m[1])
	}
	return src
}

type compiled struct {
	Source
	origin   string
	genStem  string
	origStem string
	tests    map[string]bool
	ref      *regexp.Regexp
	stem     *regexp.Regexp
}

// Remapper rewrites report text for a fixed set of generated modules.
type Remapper struct {
	sources []compiled
	// outputs holds the dotted names rewriting produces, so already
	// rewritten text is left alone.
	outputs map[string]bool
}

// New compiles the rewrite patterns for sources. Modules without any
// provenance entry are skipped.
func New(sources ...Source) *Remapper {
	r := &Remapper{outputs: make(map[string]bool)}
	for _, s := range sources {
		first, ok := s.Table.First()
		if !ok {
			logging.RemapDebug("%s has no provenance entries, not remapped", s.FileName)
			continue
		}
		genStem := strings.TrimSuffix(s.FileName, filepath.Ext(s.FileName))
		origBase := filepath.Base(first.File)
		var tests map[string]bool
		if len(s.Tests) > 0 {
			tests = make(map[string]bool, len(s.Tests))
			for _, name := range s.Tests {
				tests[name] = true
			}
		}
		c := compiled{
			Source:   s,
			origin:   first.File,
			genStem:  genStem,
			origStem: strings.TrimSuffix(origBase, filepath.Ext(origBase)),
			tests:    tests,
			ref:      patterns.GeneratedRef(s.FileName),
			stem:     patterns.GeneratedStem(genStem),
		}
		if tests == nil {
			// Any name may follow the stem; match on the stem alone.
			r.outputs[c.origStem+"."] = true
		}
		for name := range tests {
			r.outputs[c.origStem+"."+name] = true
		}
		r.sources = append(r.sources, c)
	}
	return r
}

// edit replaces text[start:end].
type edit struct {
	start, end int
	repl       string
}

// Remap returns text with every recognized reference rewritten. Matches of
// all modules are found in the input first and applied in one pass, so a
// replacement is never matched again.
func (r *Remapper) Remap(text string) string {
	var edits []edit
	for _, c := range r.sources {
		edits = append(edits, r.refEdits(c, text)...)
		edits = append(edits, r.stemEdits(c, text)...)
	}
	return apply(text, edits)
}

// apply performs non-overlapping edits. At equal starts the longer edit
// wins; an edit overlapping an earlier one is dropped.
func apply(text string, edits []edit) string {
	if len(edits) == 0 {
		return text
	}
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end > edits[j].end
	})

	var b strings.Builder
	last := 0
	for _, e := range edits {
		if e.start < last {
			continue
		}
		b.WriteString(text[last:e.start])
		b.WriteString(e.repl)
		last = e.end
	}
	b.WriteString(text[last:])
	return b.String()
}

func (r *Remapper) refEdits(c compiled, text string) []edit {
	var edits []edit
	for _, m := range c.ref.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		pathEnd := m[3]
		if !boundaryBefore(text, start) || !boundaryAfter(text, pathEnd) {
			continue
		}

		var repl string
		switch {
		case m[4] >= 0:
			line, err := strconv.Atoi(text[m[4]:m[5]])
			if err != nil {
				continue
			}
			origin, ok := c.Table[line]
			if !ok {
				continue
			}
			repl = origin.String()
		case m[6] >= 0:
			repl = c.origin + "::" + r.remapID(text[m[6]:m[7]])
		default:
			continue
		}
		edits = append(edits, edit{start: start, end: end, repl: repl})
	}
	if len(edits) > 0 {
		logging.RemapDebug("%s: %d reference(s) rewritten", c.FileName, len(edits))
	}
	return edits
}

// remapID rewrites the dotted names inside a "::" test id.
func (r *Remapper) remapID(id string) string {
	var edits []edit
	for _, c := range r.sources {
		edits = append(edits, r.stemEdits(c, id)...)
	}
	return apply(id, edits)
}

func (r *Remapper) stemEdits(c compiled, text string) []edit {
	var edits []edit
	for _, m := range c.stem.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		name := text[m[2]:m[3]]
		if !c.stemTarget(name) || !boundaryBefore(text, start) || !boundaryAfter(text, end) {
			continue
		}
		if r.isOutput(c.genStem, name) {
			continue
		}
		edits = append(edits, edit{start: start, end: end, repl: c.origStem + "." + name})
	}
	return edits
}

// isOutput reports whether stem.name is already what some module's names
// are rewritten to. Such text is ambiguous and left alone.
func (r *Remapper) isOutput(stem, name string) bool {
	return r.outputs[stem+"."] || r.outputs[stem+"."+name]
}

func (c compiled) stemTarget(name string) bool {
	if c.tests != nil {
		return c.tests[name]
	}
	return !strings.HasPrefix(name, "py")
}

// boundaryBefore reports whether a reference may start at i: the previous
// byte must not continue a file name or dotted path.
func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	c := text[i-1]
	return !isWordByte(c) && c != '.' && c != '-'
}

// boundaryAfter reports whether a file name may end at i.
func boundaryAfter(text string, i int) bool {
	return i >= len(text) || !isWordByte(text[i])
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
