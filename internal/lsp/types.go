package lsp

import (
	"context"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// GotoDefinitionProvider is an interface for providing definition locations
type GotoDefinitionProvider interface {
	// GetDefinition returns location(s) for the definition of the symbol at the given position
	GetDefinition(ctx context.Context, params *protocol.DefinitionParams) []protocol.Location
}

// ReferencesProvider is an interface for providing reference locations
type ReferencesProvider interface {
	// GetReferences returns location(s) for all references to the symbol at the given position
	GetReferences(ctx context.Context, params *protocol.ReferenceParams) []protocol.Location
}

// HoverProvider is an interface for providing hover information
type HoverProvider interface {
	// GetHover returns hover information for the given position, or nil
	GetHover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error)
}

// DocumentSymbolProvider is an interface for providing the outline of a document
type DocumentSymbolProvider interface {
	GetDocumentSymbols(ctx context.Context, params *protocol.DocumentSymbolParams) []protocol.DocumentSymbol
}

// WorkspaceSymbolProvider is an interface for searching symbols across the workspace
type WorkspaceSymbolProvider interface {
	GetWorkspaceSymbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) []protocol.SymbolInformation
}

// CompletionProvider is an interface for providing completion items
type CompletionProvider interface {
	// GetCompletions returns completion items for the given parameters
	GetCompletions(ctx context.Context, params *protocol.CompletionParams) []protocol.CompletionItem
	// GetTriggerCharacters returns the characters that trigger this completion provider
	GetTriggerCharacters() []string
}

// CodeLensProvider is an interface for providing code lenses
type CodeLensProvider interface {
	// GetCodeLenses returns code lenses for the given document
	GetCodeLenses(ctx context.Context, params *protocol.CodeLensParams) []protocol.CodeLens
}

// DiagnosticsProvider is an interface for providing diagnostics for a document.
// path is a file whose content matches content, uri identifies the document.
type DiagnosticsProvider interface {
	GetDiagnostics(ctx context.Context, uri string, path string, content []byte) ([]protocol.Diagnostic, error)
}
