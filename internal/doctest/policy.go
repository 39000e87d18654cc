package doctest

import (
	"strings"

	"stubtester/internal/logging"
)

// Kind tells whether an example is setup or an assertion.
type Kind int

const (
	KindAssertion Kind = iota
	KindSetup
)

func (k Kind) String() string {
	if k == KindSetup {
		return "setup"
	}
	return "assertion"
}

var comparisonOps = []string{"==", ">=", "<=", "!="}

// Policy decides which invocations are setup. The keyword check takes
// priority over the assignment heuristic.
type Policy struct {
	// Keywords mark setup when the source starts with one of them.
	Keywords []string
	// AssignmentIsSetup treats sources containing "=" but no comparison
	// operator as setup.
	AssignmentIsSetup bool
}

// DefaultPolicy returns the keyword list and heuristic used by default.
func DefaultPolicy() Policy {
	return Policy{
		Keywords:          []string{"import ", "from ", "def ", "class "},
		AssignmentIsSetup: true,
	}
}

// Classify returns the kind of source and whether the heuristics disagree
// about it. Ambiguous lines are ones where the keyword or "=" heuristic
// gives a different answer than a top-level assignment scan, for example
// "x = a == b" (assignment holding a comparison) or "f(key=1)" (keyword
// argument in an expression).
func (p Policy) Classify(source string) (kind Kind, ambiguous bool) {
	source = strings.TrimSpace(source)
	assigns := hasTopLevelAssignment(source)

	for _, kw := range p.Keywords {
		if strings.HasPrefix(source, kw) {
			return KindSetup, p.AssignmentIsSetup && containsComparison(source)
		}
	}

	if p.AssignmentIsSetup {
		heuristic := strings.Contains(source, "=") && !containsComparison(source)
		if heuristic {
			return KindSetup, !assigns
		}
		return KindAssertion, assigns
	}
	return KindAssertion, false
}

func containsComparison(s string) bool {
	for _, op := range comparisonOps {
		if strings.Contains(s, op) {
			return true
		}
	}
	return false
}

// hasTopLevelAssignment reports an "=" (plain, augmented or walrus) outside
// brackets and string literals that is not part of a comparison operator.
func hasTopLevelAssignment(s string) bool {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '#':
			return false
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(s) && s[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.IndexByte("=!<>", s[i-1]) >= 0 {
				continue
			}
			return true
		}
	}
	return false
}

// Cleaned is the testable subset of one docstring.
type Cleaned struct {
	Examples   []Example
	Assertions int
	Setup      int
	Dropped    int
}

// Empty reports whether nothing in the docstring is assertable.
func (c Cleaned) Empty() bool {
	return c.Assertions == 0
}

// Clean parses body and keeps setup examples verbatim plus every assertion
// whose expected output is neither empty nor the ellipsis placeholder.
// Skipped examples are dropped entirely.
func Clean(body string, p Policy) Cleaned {
	var out Cleaned
	for _, ex := range Parse(StripFences(body)) {
		if ex.Skip {
			out.Dropped++
			continue
		}

		ex.Kind, ex.Ambiguous = p.Classify(ex.SourceText())
		if ex.Ambiguous {
			logging.ExtractDebug("ambiguous setup classification (%s): %q", ex.Kind, ex.SourceText())
		}

		if ex.Kind == KindSetup {
			if want := ex.WantText(); want == "" || want == Ellipsis {
				ex.Want = nil
			}
			out.Setup++
			out.Examples = append(out.Examples, ex)
			continue
		}

		if want := ex.WantText(); want == "" || want == Ellipsis {
			out.Dropped++
			continue
		}
		out.Assertions++
		out.Examples = append(out.Examples, ex)
	}
	return out
}

// Render writes examples back as docstring text, every line prefixed by
// indent.
func Render(examples []Example, indent string) string {
	var b strings.Builder
	for _, ex := range examples {
		for i, src := range ex.Source {
			prompt := ps2
			if i == 0 {
				prompt = ps1
			}
			b.WriteString(indent)
			b.WriteString(prompt)
			if src != "" {
				b.WriteByte(' ')
				b.WriteString(src)
			}
			b.WriteByte('\n')
		}
		for _, w := range ex.Want {
			b.WriteString(indent)
			b.WriteString(w)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
