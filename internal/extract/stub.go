package extract

import (
	"stubtester/internal/doctest"
	"stubtester/internal/logging"
	"stubtester/internal/patterns"
	"stubtester/internal/types"
)

// bodyIndent is the indentation of docstring lines inside a synthesized
// test function.
const bodyIndent = "    "

// ExtractStubRegex scans stub text positionally with patterns.StubBlock.
// Nested definitions are found too, under their simple name. Raw
// docstrings are unescaped the same way the AST strategy does.
func ExtractStubRegex(a types.Artifact, policy doctest.Policy) []types.Block {
	var blocks []types.Block
	for _, m := range patterns.StubBlock.FindAllStringSubmatchIndex(a.Text, -1) {
		name := a.Text[m[2]:m[3]]
		body, ok := docstringText(a.Text[m[4]:m[5]] + `"""` + a.Text[m[6]:m[7]] + `"""`)
		if !ok {
			continue
		}
		line := patterns.LineAt(a.Text, m[0])
		if b, ok := stubBlock(a, name, body, line, policy); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// stubBlock cleans a docstring and wraps it into a block. ok is false when
// the docstring holds nothing assertable.
func stubBlock(a types.Artifact, name, docstring string, line int, policy doctest.Policy) (types.Block, bool) {
	cleaned := doctest.Clean(docstring, policy)
	if cleaned.Empty() {
		if cleaned.Setup > 0 || cleaned.Dropped > 0 {
			logging.ExtractDebug("%s:%d %s: no assertable example, omitted", a.Display, line, name)
		}
		return types.Block{}, false
	}
	return types.Block{
		Name:       patterns.Identifier(name),
		Body:       doctest.Render(cleaned.Examples, bodyIndent),
		SourceLine: line,
		SourceFile: a.Display,
	}, true
}
