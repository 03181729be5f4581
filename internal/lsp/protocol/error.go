package protocol

// LspError is returned as the result of custom noolang/* requests that could not be served
type LspError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewLspError(message string, code string) *LspError {
	return &LspError{
		Code:    code,
		Message: message,
	}
}
