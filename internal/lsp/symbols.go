package lsp

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// documentSymbols handles textDocument/documentSymbol requests
func (s *Server) documentSymbols(ctx context.Context, params *protocol.DocumentSymbolParams) []protocol.DocumentSymbol {
	state, err := s.prepareQuery(params.TextDocument.URI)
	if err != nil {
		log.Printf("Error preparing document symbol request: %v", err)
		return []protocol.DocumentSymbol{}
	}
	params.Path = state.path

	symbols := []protocol.DocumentSymbol{}
	for _, provider := range s.documentSymbolProviders {
		symbols = append(symbols, provider.GetDocumentSymbols(ctx, params)...)
	}

	if s.isStale(params.TextDocument.URI, state) {
		return []protocol.DocumentSymbol{}
	}
	return symbols
}

// workspaceSymbols handles workspace/symbol requests
func (s *Server) workspaceSymbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) []protocol.SymbolInformation {
	symbols := []protocol.SymbolInformation{}
	for _, provider := range s.workspaceSymbolProviders {
		symbols = append(symbols, provider.GetWorkspaceSymbols(ctx, params)...)
	}
	return symbols
}
