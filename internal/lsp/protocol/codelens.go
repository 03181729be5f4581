package protocol

// CodeLensParams is sent with textDocument/codeLens
type CodeLensParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`

	// Path is the file the lenses are computed from, filled in by the server
	Path string `json:"-"`
}

// CodeLens is a command shown above a line of source. The range should span a
// single line.
type CodeLens struct {
	Range   Range    `json:"range"`
	Command *Command `json:"command,omitempty"`
}

// Command is a client side command with its arguments
type Command struct {
	Title     string        `json:"title"`
	Command   string        `json:"command"`
	Arguments []interface{} `json:"arguments,omitempty"`
}
