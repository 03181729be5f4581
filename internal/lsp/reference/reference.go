package reference

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/syntax"
)

// Resolver finds the definition and the uses of the name at a position
type Resolver interface {
	FindUsages(ctx context.Context, path string, pos protocol.Position) (*syntax.Symbol, []syntax.Reference, error)
}

// ReferenceProvider lists the uses of a name within its file
type ReferenceProvider struct {
	resolver Resolver
}

func NewReferenceProvider(resolver Resolver) *ReferenceProvider {
	return &ReferenceProvider{resolver: resolver}
}

// GetReferences returns the uses of the name at the cursor in document order.
// The definition comes first when the client asks for the declaration.
func (p *ReferenceProvider) GetReferences(ctx context.Context, params *protocol.ReferenceParams) []protocol.Location {
	uri := params.TextDocument.URI

	symbol, references, err := p.resolver.FindUsages(ctx, params.Path, params.Position)
	if err != nil {
		log.Printf("Error finding references in %s: %v", uri, err)
		return []protocol.Location{}
	}

	locations := make([]protocol.Location, 0, len(references)+1)

	if params.Context.IncludeDeclaration && symbol != nil {
		locations = append(locations, protocol.Location{URI: uri, Range: symbol.Range.ToProtocol()})
	}

	for _, ref := range references {
		locations = append(locations, protocol.Location{URI: uri, Range: ref.Range.ToProtocol()})
	}
	return locations
}
