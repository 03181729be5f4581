package protocol

// HoverParams is sent with textDocument/hover
type HoverParams struct {
	TextDocumentPositionParams

	// Document state handed to hover providers by the server
	DocumentContent []byte `json:"-"`
	Path            string `json:"-"`
}

// Hover is the result of a hover request
type Hover struct {
	Contents MarkupContent `json:"contents"`
	// Range highlights the hovered expression in the client
	Range *Range `json:"range,omitempty"`
}

// MarkupContent is text rendered according to Kind
type MarkupContent struct {
	Kind  MarkupKind `json:"kind"`
	Value string     `json:"value"`
}

type MarkupKind string

const (
	PlainText MarkupKind = "plaintext"
	Markdown  MarkupKind = "markdown"
)
