package completion

import (
	"context"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/syntax"
)

var keywords = []string{"fn", "if", "then", "else", "match", "with", "type", "mut", "where", "import"}

var constructors = []string{"True", "False", "Some", "None", "Ok", "Err"}

var builtins = []string{"print", "println", "map", "filter", "reduce", "length", "head", "tail", "isEmpty", "toString"}

// Resolver lists the definitions of a file
type Resolver interface {
	DocumentSymbols(ctx context.Context, path string) ([]syntax.Symbol, error)
}

// NoolangCompletionProvider offers the language keywords, the prelude and the
// names defined in the current document
type NoolangCompletionProvider struct {
	resolver Resolver
}

func NewNoolangCompletionProvider(resolver Resolver) *NoolangCompletionProvider {
	return &NoolangCompletionProvider{resolver: resolver}
}

func (p *NoolangCompletionProvider) GetTriggerCharacters() []string {
	return []string{".", ":", "@"}
}

func (p *NoolangCompletionProvider) GetCompletions(ctx context.Context, params *protocol.CompletionParams) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(keywords)+len(constructors)+len(builtins))
	seen := make(map[string]bool)

	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] {
			return
		}
		seen[label] = true
		items = append(items, protocol.CompletionItem{Label: label, Kind: kind, Detail: detail})
	}

	for _, keyword := range keywords {
		add(keyword, protocol.KeywordCompletion, "keyword")
	}
	for _, constructor := range constructors {
		add(constructor, protocol.ConstructorCompletion, "constructor")
	}
	for _, builtin := range builtins {
		add(builtin, protocol.FunctionCompletion, "builtin")
	}

	// definitions are best effort, the static items are served without a tree
	if params.Path == "" {
		return items
	}
	symbols, err := p.resolver.DocumentSymbols(ctx, params.Path)
	if err != nil {
		return items
	}
	for _, sym := range symbols {
		kind := protocol.VariableCompletion
		if sym.Kind == syntax.FunctionSymbol {
			kind = protocol.FunctionCompletion
		}
		add(sym.Name, kind, sym.Kind.String())
	}

	return items
}
