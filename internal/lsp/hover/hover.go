package hover

import (
	"context"
	"fmt"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/resolve"
)

// Resolver answers type questions about the text under the cursor
type Resolver interface {
	HoverType(ctx context.Context, path, text string, pos protocol.Position) (*resolve.Hover, error)
}

// TypeHoverProvider shows the type of the expression under the cursor
type TypeHoverProvider struct {
	resolver Resolver
}

func NewTypeHoverProvider(resolver Resolver) *TypeHoverProvider {
	return &TypeHoverProvider{resolver: resolver}
}

func (p *TypeHoverProvider) GetHover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	result, err := p.resolver.HoverType(ctx, params.Path, string(params.DocumentContent), params.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hover type: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	rng := result.Range
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: formatType(result),
		},
		Range: &rng,
	}, nil
}

func formatType(result *resolve.Hover) string {
	value := fmt.Sprintf("`%s : %s`", result.Expression, result.Type)
	if result.Approximate {
		value += " (approximate)"
	}
	return value
}
