package definition

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/syntax"
)

// Resolver finds the definition of the name at a position
type Resolver interface {
	FindDefinition(ctx context.Context, path string, pos protocol.Position) (*syntax.Symbol, error)
}

// DefinitionProvider jumps from a name to its definition in the same file
type DefinitionProvider struct {
	resolver Resolver
}

func NewDefinitionProvider(resolver Resolver) *DefinitionProvider {
	return &DefinitionProvider{resolver: resolver}
}

func (p *DefinitionProvider) GetDefinition(ctx context.Context, params *protocol.DefinitionParams) []protocol.Location {
	symbol, err := p.resolver.FindDefinition(ctx, params.Path, params.Position)
	if err != nil {
		log.Printf("Error finding definition in %s: %v", params.TextDocument.URI, err)
		return []protocol.Location{}
	}
	if symbol == nil {
		return []protocol.Location{}
	}

	return []protocol.Location{{
		URI:   params.TextDocument.URI,
		Range: symbol.Range.ToProtocol(),
	}}
}
