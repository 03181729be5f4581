package lsp

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// completion handles textDocument/completion requests
func (s *Server) completion(ctx context.Context, params *protocol.CompletionParams) *protocol.CompletionList {
	state, err := s.prepareQuery(params.TextDocument.URI)
	if err != nil {
		log.Printf("Error preparing completion request: %v", err)
	}
	params.Path = state.path
	params.DocumentContent = state.content

	items := []protocol.CompletionItem{}
	for _, provider := range s.completionProviders {
		providerItems := provider.GetCompletions(ctx, params)
		items = append(items, providerItems...)
	}

	// The static items are still valid, so a stale result is marked
	// incomplete and the client asks again
	return &protocol.CompletionList{
		IsIncomplete: s.isStale(params.TextDocument.URI, state),
		Items:        items,
	}
}
