package extract

import (
	"strconv"
	"strings"

	"stubtester/internal/patterns"
	"stubtester/internal/types"
)

// DefaultMarkdownTitle names blocks that have no preceding header.
const DefaultMarkdownTitle = "markdown_test"

var pythonTags = map[string]bool{"py": true, "python": true}

var docstringEscaper = strings.NewReplacer(`\`, `\\`, `"""`, `\"\"\"`)

// EscapeDocstring makes s safe to embed between triple double quotes
// without changing its value.
func EscapeDocstring(s string) string {
	return docstringEscaper.Replace(s)
}

// ExtractMarkdown returns one block per fenced python block. The title is
// the nearest header strictly before the fence (headers inside fences do
// not count) plus the fence ordinal among all tagged fences.
func ExtractMarkdown(a types.Artifact) []types.Block {
	text := a.Text
	fenced := patterns.AnyFence.FindAllStringIndex(text, -1)

	type header struct {
		start int
		title string
	}
	var headers []header
	for _, m := range patterns.Header.FindAllStringSubmatchIndex(text, -1) {
		if insideAny(m[0], fenced) {
			continue
		}
		headers = append(headers, header{start: m[0], title: strings.TrimSpace(text[m[4]:m[5]])})
	}

	titleBefore := func(off int) string {
		title := DefaultMarkdownTitle
		for _, h := range headers {
			if h.start >= off {
				break
			}
			title = h.title
		}
		return title
	}

	var blocks []types.Block
	for idx, m := range patterns.Fence.FindAllStringSubmatchIndex(text, -1) {
		if !pythonTags[strings.ToLower(text[m[2]:m[3]])] {
			continue
		}
		code := text[m[4]:m[5]]
		if strings.TrimSpace(code) == "" {
			continue
		}
		blocks = append(blocks, types.Block{
			Name:       patterns.Identifier(titleBefore(m[0]) + "_" + strconv.Itoa(idx)),
			Body:       EscapeDocstring(code),
			SourceLine: patterns.LineAt(text, m[0]) + 1,
			SourceFile: a.Display,
		})
	}
	return blocks
}

func insideAny(off int, spans [][]int) bool {
	for _, s := range spans {
		if off > s[0] && off < s[1] {
			return true
		}
	}
	return false
}
