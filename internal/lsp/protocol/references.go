package protocol

// ReferenceParams represents the parameters for a references request
type ReferenceParams struct {
	TextDocumentPositionParams
	Context struct {
		IncludeDeclaration bool `json:"includeDeclaration"`
	} `json:"context"`
	// Custom fields for internal use (not sent over the wire)
	// These fields are used to pass document state to reference providers
	DocumentContent []byte `json:"-"`
	Path            string `json:"-"`
}
