package lsp

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// codeLens handles textDocument/codeLens requests
func (s *Server) codeLens(ctx context.Context, params *protocol.CodeLensParams) []protocol.CodeLens {
	// Lenses are only shown for open documents
	if _, ok := s.documentManager.GetDocument(params.TextDocument.URI); !ok {
		return nil
	}

	state, err := s.prepareQuery(params.TextDocument.URI)
	if err != nil {
		log.Printf("Error preparing code lens request: %v", err)
		return nil
	}
	params.Path = state.path

	var lenses []protocol.CodeLens
	for _, provider := range s.codeLensProviders {
		providerLenses := provider.GetCodeLenses(ctx, params)
		lenses = append(lenses, providerLenses...)
	}

	if s.isStale(params.TextDocument.URI, state) {
		return nil
	}
	return lenses
}
