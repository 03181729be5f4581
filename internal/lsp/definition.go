package lsp

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// definition handles textDocument/definition requests
func (s *Server) definition(ctx context.Context, params *protocol.DefinitionParams) []protocol.Location {
	state, err := s.prepareQuery(params.TextDocument.URI)
	if err != nil {
		log.Printf("Error preparing definition request: %v", err)
		return []protocol.Location{}
	}
	params.Path = state.path
	params.DocumentContent = state.content

	locations := []protocol.Location{}
	for _, provider := range s.definitionProviders {
		providerLocations := provider.GetDefinition(ctx, params)
		locations = append(locations, providerLocations...)
	}

	if s.isStale(params.TextDocument.URI, state) {
		return []protocol.Location{}
	}
	return locations
}
