package protocol

// SymbolKind is the LSP symbol kind
type SymbolKind int

const (
	SymbolKindFunction    SymbolKind = 12
	SymbolKindVariable    SymbolKind = 13
	SymbolKindClass       SymbolKind = 5
	SymbolKindConstructor SymbolKind = 9
)

// DocumentSymbolParams represents the parameters for a textDocument/documentSymbol request
type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`

	Path string `json:"-"`
}

// DocumentSymbol represents a symbol in a document outline
type DocumentSymbol struct {
	Name           string           `json:"name"`
	Detail         string           `json:"detail,omitempty"`
	Kind           SymbolKind       `json:"kind"`
	Range          Range            `json:"range"`
	SelectionRange Range            `json:"selectionRange"`
	Children       []DocumentSymbol `json:"children,omitempty"`
}

// WorkspaceSymbolParams represents the parameters for a workspace/symbol request
type WorkspaceSymbolParams struct {
	Query string `json:"query"`
}

// SymbolInformation represents a symbol found in the workspace
type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}
