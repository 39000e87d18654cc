// Package doctest parses the interactive documentation-example
// sub-language ("documentation examples") embedded in docstrings and renders
// the testable subset back into docstring text.
//
// An example starts at a line whose first non-blank text is the ">>>"
// prompt. Following lines starting with "..." continue its source. Lines
// after the source, up to a blank line or the next prompt, are the expected
// output.
package doctest

import (
	"regexp"
	"strings"

	"stubtester/internal/patterns"
)

const (
	ps1 = ">>>"
	ps2 = "..."

	// Ellipsis is the placeholder output that marks an example as
	// illustrative.
	Ellipsis = "..."
)

var optionComment = regexp.MustCompile(`#\s*doctest:\s*([^\n'"#]*)`)

// Example is one prompt-marked invocation with its expected output.
type Example struct {
	// Source holds the invocation lines with prompts removed.
	Source []string
	// Want holds the expected output lines, de-indented to the prompt.
	Want []string
	// Line is the 0-based offset of the prompt line within the body.
	Line int
	// Skip is set when the example carries a "+SKIP" option directive.
	Skip bool
	// Kind is filled in by Clean.
	Kind Kind
	// Ambiguous is set by Clean when the setup heuristics disagree.
	Ambiguous bool
}

// SourceText returns the invocation joined and trimmed.
func (e Example) SourceText() string {
	return strings.TrimSpace(strings.Join(e.Source, "\n"))
}

// WantText returns the expected output joined and trimmed.
func (e Example) WantText() string {
	return strings.TrimSpace(strings.Join(e.Want, "\n"))
}

// Parse scans body and returns every example in order.
func Parse(body string) []Example {
	lines := strings.Split(body, "\n")
	var examples []Example

	for i := 0; i < len(lines); {
		stripped := strings.TrimLeft(lines[i], " \t")
		src, ok := cutPrompt(stripped, ps1)
		if !ok {
			i++
			continue
		}
		indent := len(lines[i]) - len(stripped)
		ex := Example{Source: []string{src}, Line: i}
		i++

		for i < len(lines) {
			cont, ok := cutPrompt(strings.TrimLeft(lines[i], " \t"), ps2)
			if !ok {
				break
			}
			ex.Source = append(ex.Source, cont)
			i++
		}

		for i < len(lines) {
			line := lines[i]
			if strings.TrimSpace(line) == "" {
				break
			}
			if _, ok := cutPrompt(strings.TrimLeft(line, " \t"), ps1); ok {
				break
			}
			ex.Want = append(ex.Want, dedent(line, indent))
			i++
		}

		ex.Skip = hasSkipOption(ex.Source)
		examples = append(examples, ex)
	}

	return examples
}

// cutPrompt strips prompt from s when s starts with it followed by a space
// or end of line.
func cutPrompt(s, prompt string) (string, bool) {
	if !strings.HasPrefix(s, prompt) {
		return "", false
	}
	rest := s[len(prompt):]
	switch {
	case rest == "":
		return "", true
	case rest[0] == ' ':
		return rest[1:], true
	case prompt == ps2:
		// Bare continuation markers such as "...)" are still continuations.
		return rest, true
	}
	return "", false
}

func dedent(line string, indent int) string {
	lead := len(line) - len(strings.TrimLeft(line, " \t"))
	if lead >= indent {
		return line[indent:]
	}
	return line[lead:]
}

func hasSkipOption(source []string) bool {
	for _, line := range source {
		for _, m := range optionComment.FindAllStringSubmatch(line, -1) {
			for _, opt := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' }) {
				if strings.EqualFold(opt, "+SKIP") {
					return true
				}
			}
		}
	}
	return false
}

// StripFences blanks out markdown fence marker lines so illustrative
// snippets inside a docstring are never read as source. Line count is kept.
func StripFences(body string) string {
	return patterns.FenceLine.ReplaceAllString(body, "")
}
