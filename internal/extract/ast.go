package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"stubtester/internal/doctest"
	"stubtester/internal/logging"
	"stubtester/internal/types"
)

// ASTExtractor locates docstring-bearing definitions with a Tree-sitter
// parse of the stub. Files that do not parse cleanly fall back to the
// regex scan.
type ASTExtractor struct {
	parser *sitter.Parser
	policy doctest.Policy
}

// NewASTExtractor creates a Tree-sitter backed stub extractor.
func NewASTExtractor(policy doctest.Policy) *ASTExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &ASTExtractor{parser: parser, policy: policy}
}

// Extract walks the module: the module docstring (named after the file
// stem), then every def/class in order, recursing into class bodies with
// "Outer.inner" qualified names.
func (x *ASTExtractor) Extract(ctx context.Context, a types.Artifact) ([]types.Block, error) {
	content := []byte(a.Text)
	tree, err := x.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", a.Display, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		logging.ExtractWarn("%s: syntax errors in stub, falling back to regex scan", a.Display)
		return ExtractStubRegex(a, x.policy), nil
	}

	var blocks []types.Block
	if doc, node := docstringOf(root, content); node != nil {
		if b, ok := stubBlock(a, a.Stem(), doc, int(node.StartPoint().Row)+1, x.policy); ok {
			blocks = append(blocks, b)
		}
	}
	x.walkNode(root, a, "", content, &blocks)
	return blocks, nil
}

// walkNode visits definitions below node in source order.
func (x *ASTExtractor) walkNode(node *sitter.Node, a types.Artifact, prefix string, content []byte, blocks *[]types.Block) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "class_definition", "function_definition":
			x.visitDef(child, a, prefix, content, blocks)
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				x.visitDef(def, a, prefix, content, blocks)
			}
		case "expression_statement", "import_statement", "import_from_statement":
			// Leaf statements never hold definitions.
		default:
			// if TYPE_CHECKING:, try/except and similar compound statements.
			x.walkNode(child, a, prefix, content, blocks)
		}
	}
}

func (x *ASTExtractor) visitDef(node *sitter.Node, a types.Artifact, prefix string, content []byte, blocks *[]types.Block) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := prefix + nameNode.Content(content)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	if doc, docNode := docstringOf(body, content); docNode != nil {
		if b, ok := stubBlock(a, name, doc, int(node.StartPoint().Row)+1, x.policy); ok {
			*blocks = append(*blocks, b)
		}
	}

	if node.Type() == "class_definition" {
		x.walkNode(body, a, name+".", content, blocks)
	}
}

// docstringOf returns the docstring value of a module or block node, with
// its text made safe to embed between triple double quotes.
func docstringOf(node *sitter.Node, content []byte) (string, *sitter.Node) {
	var first *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() != "comment" {
			first = child
			break
		}
	}
	if first == nil || first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return "", nil
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return "", nil
	}
	text, ok := docstringText(str.Content(content))
	if !ok {
		return "", nil
	}
	return text, str
}

// docstringText strips the prefix and quotes from a string literal.
// Raw literals get their backslashes doubled, and ''' literals holding """
// get those escaped, so the result means the same inside """...""".
// Byte and f-string literals are not docstrings.
func docstringText(literal string) (string, bool) {
	prefixLen := 0
	for prefixLen < len(literal) && strings.IndexByte("rRbBuUfF", literal[prefixLen]) >= 0 {
		prefixLen++
	}
	prefix := strings.ToLower(literal[:prefixLen])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}
	raw := strings.Contains(prefix, "r")
	rest := literal[prefixLen:]

	quote := ""
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(rest, q) && strings.HasSuffix(rest, q) && len(rest) >= 2*len(q) {
			quote = q
			break
		}
	}
	if quote == "" {
		return "", false
	}
	text := rest[len(quote) : len(rest)-len(quote)]

	if raw {
		text = strings.ReplaceAll(text, `\`, `\\`)
	}
	if quote != `"""` {
		text = strings.ReplaceAll(text, `"""`, `\"\"\"`)
	}
	return text, true
}
