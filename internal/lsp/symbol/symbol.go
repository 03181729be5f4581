// Package symbol provides the document outline and workspace symbol search.
package symbol

import (
	"context"
	"log"

	"github.com/noolang/noolang-lsp/internal/lsp"
	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/symbolindex"
	"github.com/noolang/noolang-lsp/internal/syntax"
)

// maxWorkspaceSymbols caps a workspace/symbol answer
const maxWorkspaceSymbols = 500

// Resolver lists the definitions of a file
type Resolver interface {
	DocumentSymbols(ctx context.Context, path string) ([]syntax.Symbol, error)
}

// SymbolIndex searches the definitions of the whole workspace
type SymbolIndex interface {
	Query(query string, limit int) ([]symbolindex.IndexedSymbol, error)
	Lookup(name string) ([]symbolindex.IndexedSymbol, error)
}

// Kind maps a definition kind to the protocol symbol kind
func Kind(kind syntax.SymbolKind) protocol.SymbolKind {
	switch kind {
	case syntax.FunctionSymbol:
		return protocol.SymbolKindFunction
	case syntax.TypeSymbol:
		return protocol.SymbolKindClass
	case syntax.ConstructorSymbol:
		return protocol.SymbolKindConstructor
	default:
		return protocol.SymbolKindVariable
	}
}

type DocumentSymbolProvider struct {
	resolver Resolver
}

func NewDocumentSymbolProvider(resolver Resolver) *DocumentSymbolProvider {
	return &DocumentSymbolProvider{resolver: resolver}
}

func (p *DocumentSymbolProvider) GetDocumentSymbols(ctx context.Context, params *protocol.DocumentSymbolParams) []protocol.DocumentSymbol {
	symbols, err := p.resolver.DocumentSymbols(ctx, params.Path)
	if err != nil {
		log.Printf("Error listing symbols of %s: %v", params.TextDocument.URI, err)
		return []protocol.DocumentSymbol{}
	}

	result := make([]protocol.DocumentSymbol, 0, len(symbols))
	for _, sym := range symbols {
		rng := sym.Range.ToProtocol()
		result = append(result, protocol.DocumentSymbol{
			Name:           sym.Name,
			Detail:         sym.Kind.String(),
			Kind:           Kind(sym.Kind),
			Range:          rng,
			SelectionRange: rng,
		})
	}
	return result
}

type WorkspaceSymbolProvider struct {
	index SymbolIndex
}

// NewWorkspaceSymbolProvider serves workspace/symbol from the symbol indexer
// registered on the server
func NewWorkspaceSymbolProvider(lspServer *lsp.Server) *WorkspaceSymbolProvider {
	symbolIndexer, _ := lspServer.GetIndexer(symbolindex.IndexerID)

	return &WorkspaceSymbolProvider{
		index: symbolIndexer.(*symbolindex.SymbolIndexer),
	}
}

// GetWorkspaceSymbols lists definitions whose name contains the query.
// Definitions named exactly like the query come first.
func (p *WorkspaceSymbolProvider) GetWorkspaceSymbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) []protocol.SymbolInformation {
	symbols, err := p.index.Query(params.Query, maxWorkspaceSymbols)
	if err != nil {
		log.Printf("Error searching workspace symbols: %v", err)
		return []protocol.SymbolInformation{}
	}

	if params.Query != "" {
		exact, err := p.index.Lookup(params.Query)
		if err != nil {
			log.Printf("Error looking up workspace symbol %q: %v", params.Query, err)
		} else {
			symbols = exactFirst(exact, symbols)
		}
	}

	result := make([]protocol.SymbolInformation, 0, len(symbols))
	for _, sym := range symbols {
		result = append(result, protocol.SymbolInformation{
			Name: sym.Name,
			Kind: Kind(sym.Kind),
			Location: protocol.Location{
				URI:   lsp.PathToURI(sym.Path),
				Range: sym.Range.ToProtocol(),
			},
		})
	}
	return result
}

func exactFirst(exact, matches []symbolindex.IndexedSymbol) []symbolindex.IndexedSymbol {
	if len(exact) == 0 {
		return matches
	}

	seen := make(map[symbolindex.IndexedSymbol]struct{}, len(exact))
	ordered := make([]symbolindex.IndexedSymbol, 0, len(exact)+len(matches))
	for _, sym := range exact {
		seen[sym] = struct{}{}
		ordered = append(ordered, sym)
	}
	for _, sym := range matches {
		if _, ok := seen[sym]; !ok {
			ordered = append(ordered, sym)
		}
	}

	if len(ordered) > maxWorkspaceSymbols {
		ordered = ordered[:maxWorkspaceSymbols]
	}
	return ordered
}
