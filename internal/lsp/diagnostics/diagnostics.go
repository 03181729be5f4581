package diagnostics

import (
	"context"
	"fmt"

	"github.com/noolang/noolang-lsp/internal/diagnostic"
	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/position"
	"github.com/noolang/noolang-lsp/internal/toolchain"
)

// Checker type checks a file with the noolang tool
type Checker interface {
	Check(ctx context.Context, path string) (*toolchain.Result, error)
}

// ToolDiagnosticsProvider turns the output of a failed type check into
// diagnostics. A successful check clears them, whatever the tool printed.
type ToolDiagnosticsProvider struct {
	checker Checker
}

func NewToolDiagnosticsProvider(checker Checker) *ToolDiagnosticsProvider {
	return &ToolDiagnosticsProvider{checker: checker}
}

func (p *ToolDiagnosticsProvider) GetDiagnostics(ctx context.Context, uri string, path string, content []byte) ([]protocol.Diagnostic, error) {
	result, err := p.checker.Check(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", uri, err)
	}

	if !result.Failed() {
		return []protocol.Diagnostic{}, nil
	}

	text := string(content)
	found := diagnostic.Extract(result.Stderr, result.Stdout, true)

	diagnostics := make([]protocol.Diagnostic, 0, len(found))
	for _, d := range found {
		line, _ := position.LineAt(text, d.Line-1)
		diagnostics = append(diagnostics, d.ToProtocol(line))
	}
	return diagnostics, nil
}
