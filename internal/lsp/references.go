package lsp

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// references handles textDocument/references requests
func (s *Server) references(ctx context.Context, params *protocol.ReferenceParams) []protocol.Location {
	state, err := s.prepareQuery(params.TextDocument.URI)
	if err != nil {
		log.Printf("Error preparing references request: %v", err)
		return []protocol.Location{}
	}
	params.Path = state.path
	params.DocumentContent = state.content

	locations := []protocol.Location{}
	for _, provider := range s.referencesProviders {
		providerLocations := provider.GetReferences(ctx, params)
		locations = append(locations, providerLocations...)
	}

	if s.isStale(params.TextDocument.URI, state) {
		return []protocol.Location{}
	}
	return locations
}
