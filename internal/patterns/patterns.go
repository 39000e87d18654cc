// Package patterns holds the text patterns shared by the extractors, the
// synthesizer and the output remapper.
package patterns

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const fence = "```"

var (
	// StubBlock matches a def/class header (optionally generic, argument
	// listed and return annotated) immediately followed by a triple-quoted
	// body. Group 1 is the name, group 2 the string prefix (r or u), group 3
	// the body.
	StubBlock = regexp.MustCompile(
		`(?s)\b(?:def|class)\s+(\w+)(?:\[[^\]]*\])?\s*(?:\([^)]*\))?\s*(?:->[^:]+)?` +
			`:\s*([rRuU]?)"""(.*?)"""`,
	)

	// Fence matches a complete fenced block. Group 1 is the language tag,
	// group 2 the content (including its trailing newline).
	Fence = regexp.MustCompile(`(?ms)^` + fence + `(\w+)[ \t]*\n(.*?)^` + fence + `[ \t]*$`)

	// AnyFence matches a fenced block with or without a language tag. It is
	// used to mask fenced regions when locating headers.
	AnyFence = regexp.MustCompile(`(?ms)^` + fence + `[^\n]*\n.*?^` + fence + `[ \t]*$`)

	// Header matches a markdown ATX header. Group 2 is the title.
	Header = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+?)[ \t]*$`)

	// FenceLine matches a whole line that is only a fence marker, as found
	// inside documentation bodies.
	FenceLine = regexp.MustCompile(`(?m)^[ \t]*` + fence + `[\w+-]*[ \t]*$`)

	// nonIdent matches characters not allowed in an identifier fragment.
	nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

	// Directive matches a provenance directive line. Group 1 is the original
	// line number, group 2 the quoted original file name.
	Directive = regexp.MustCompile(`^[ \t]*# line (\d+) ("(?:[^"\\]|\\.)*")[ \t]*$`)

	// SummaryCount matches one "N outcome" pair of the engine summary line.
	SummaryCount = regexp.MustCompile(`(\d+) (passed|failed|errors?|xpassed|xfailed|skipped)\b`)
)

// Identifier normalizes s into a valid identifier fragment: every character
// outside [A-Za-z0-9_] becomes '_' and surrounding underscores are trimmed.
func Identifier(s string) string {
	return strings.Trim(nonIdent.ReplaceAllString(s, "_"), "_")
}

// FormatDirective renders the provenance directive for (file, line).
func FormatDirective(file string, line int) string {
	return fmt.Sprintf("# line %d %s", line, strconv.Quote(file))
}

// ParseDirective parses a provenance directive line.
func ParseDirective(s string) (file string, line int, ok bool) {
	m := Directive.FindStringSubmatch(s)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return "", 0, false
	}
	f, err := strconv.Unquote(m[2])
	if err != nil {
		return "", 0, false
	}
	return f, n, true
}

// GeneratedRef builds the pattern for references to one generated file
// inside engine output: an optional directory prefix (drive letter
// allowed), the file name, then either ":<line>" (group 2) or
// "::<test id>" (group 3). Group 1 is the whole path as printed.
func GeneratedRef(fileName string) *regexp.Regexp {
	return regexp.MustCompile(
		`((?:[A-Za-z]:[/\\])?(?:[\w.~-]*[/\\])*` + regexp.QuoteMeta(fileName) + `)` +
			`(?::(\d+)\b|::([\w.\[\]-]+))?`,
	)
}

// GeneratedStem builds the pattern for doctest-style dotted references
// "<stem>.<name>" to a generated module. Group 1 is the name.
func GeneratedStem(stem string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(stem) + `\.(\w+)`)
}

// LineAt returns the 1-based line number of byte offset off in text.
func LineAt(text string, off int) int {
	if off > len(text) {
		off = len(text)
	}
	return strings.Count(text[:off], "\n") + 1
}
