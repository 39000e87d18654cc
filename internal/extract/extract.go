// Package extract locates documentation examples in source artifacts.
//
// Interface files (.pyi stubs) are scanned for def/class constructs whose
// docstring holds at least one assertable documentation example; markdown
// documents are scanned for fenced python blocks. Both produce ordered
// types.Block values ready for synthesis.
package extract

import (
	"context"
	"fmt"

	"stubtester/internal/config"
	"stubtester/internal/doctest"
	"stubtester/internal/logging"
	"stubtester/internal/types"
)

// Extractor turns artifacts into blocks. It is not safe for concurrent use.
type Extractor struct {
	strategy string
	policy   doctest.Policy
	ast      *ASTExtractor
}

// New creates an extractor for the given stub strategy ("ast" or "regex").
func New(strategy string, policy doctest.Policy) *Extractor {
	e := &Extractor{strategy: strategy, policy: policy}
	if strategy == config.StrategyAST {
		e.ast = NewASTExtractor(policy)
	}
	return e
}

// NewFromConfig creates an extractor from the extract config section.
func NewFromConfig(cfg config.ExtractConfig) *Extractor {
	return New(cfg.Strategy, doctest.Policy{
		Keywords:          cfg.SetupKeywords,
		AssignmentIsSetup: cfg.AssignmentIsSetup,
	})
}

// Extract returns the blocks of one artifact in source order.
func (e *Extractor) Extract(ctx context.Context, a types.Artifact) ([]types.Block, error) {
	timer := logging.StartTimer(logging.CategoryExtract, "extract "+a.Display)
	defer timer.Stop()

	var blocks []types.Block
	switch a.Kind {
	case types.KindInterface:
		if e.ast != nil {
			var err error
			blocks, err = e.ast.Extract(ctx, a)
			if err != nil {
				return nil, err
			}
		} else {
			blocks = ExtractStubRegex(a, e.policy)
		}
	case types.KindMarkdown:
		blocks = ExtractMarkdown(a)
	default:
		return nil, fmt.Errorf("unsupported artifact kind %q for %s", a.Kind, a.Display)
	}

	logging.ExtractDebug("%s: %d block(s)", a.Display, len(blocks))
	return blocks, nil
}
