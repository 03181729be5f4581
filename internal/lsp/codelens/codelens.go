package codelens

import (
	"context"
	"fmt"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/position"
	"github.com/noolang/noolang-lsp/internal/resolve"
)

// ShowReferencesCommand is the client command run when a lens is clicked.
// Its arguments are the document URI and the definition position.
const ShowReferencesCommand = "noolang.showReferences"

// Resolver counts the uses of every definition in a file
type Resolver interface {
	ReferenceCounts(ctx context.Context, path string) ([]resolve.Usage, error)
}

// ReferenceCodeLensProvider shows how often each definition is used
type ReferenceCodeLensProvider struct {
	resolver Resolver
}

func NewReferenceCodeLensProvider(resolver Resolver) *ReferenceCodeLensProvider {
	return &ReferenceCodeLensProvider{resolver: resolver}
}

func (p *ReferenceCodeLensProvider) GetCodeLenses(ctx context.Context, params *protocol.CodeLensParams) []protocol.CodeLens {
	usages, err := p.resolver.ReferenceCounts(ctx, params.Path)
	if err != nil {
		log.Printf("Error counting references in %s: %v", params.TextDocument.URI, err)
		return nil
	}

	lenses := make([]protocol.CodeLens, 0, len(usages))
	for _, usage := range usages {
		rng := usage.Symbol.Range.ToProtocol()
		lenses = append(lenses, protocol.CodeLens{
			Range: rng,
			Command: &protocol.Command{
				Title:     referenceTitle(usage.References),
				Command:   ShowReferencesCommand,
				Arguments: []interface{}{params.TextDocument.URI, position.ToProtocol(usage.Symbol.Range.Start)},
			},
		})
	}
	return lenses
}

func referenceTitle(count int) string {
	if count == 1 {
		return "1 reference"
	}
	return fmt.Sprintf("%d references", count)
}
