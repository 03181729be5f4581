package lsp

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// hover handles textDocument/hover requests
func (s *Server) hover(ctx context.Context, params *protocol.HoverParams) *protocol.Hover {
	state, err := s.prepareQuery(params.TextDocument.URI)
	if err != nil {
		log.Printf("Error preparing hover request: %v", err)
		return nil
	}
	params.Path = state.path
	params.DocumentContent = state.content

	// Try each hover provider until one returns a result
	for _, provider := range s.hoverProviders {
		hover, err := provider.GetHover(ctx, params)
		if err != nil {
			s.debugf("Hover provider failed: %v", err)
			continue
		}
		if hover != nil {
			if s.isStale(params.TextDocument.URI, state) {
				return nil
			}
			return hover
		}
	}

	return nil
}
