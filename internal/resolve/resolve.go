// Package resolve answers symbol queries for a file by combining a syntax tree
// fetched from the noolang tool with the lookups in package syntax.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/position"
	"github.com/noolang/noolang-lsp/internal/syntax"
	"github.com/noolang/noolang-lsp/internal/toolchain"
)

// TreeProvider fetches the syntax tree of a file
type TreeProvider interface {
	FileTree(ctx context.Context, path string) (*syntax.Tree, error)
}

// TypeProvider answers type queries
type TypeProvider interface {
	SymbolType(ctx context.Context, path, name string) (string, error)
	ExpressionType(ctx context.Context, expr string) (string, error)
	FileTypes(ctx context.Context, path string) ([]toolchain.TypeEntry, error)
}

// Hover is the type shown for the expression under the cursor.
// Approximate is set when the type is the first type reported for the file
// rather than the type of Expression. Such results are a weak guess and
// must not be presented as authoritative.
type Hover struct {
	Expression  string
	Type        string
	Range       protocol.Range
	Approximate bool
}

// Usage is a definition with the number of references to it in the same file
type Usage struct {
	Symbol     syntax.Symbol
	References int
}

type Resolver struct {
	trees TreeProvider
	types TypeProvider
}

func NewResolver(trees TreeProvider, types TypeProvider) *Resolver {
	return &Resolver{
		trees: trees,
		types: types,
	}
}

func (r *Resolver) tree(ctx context.Context, path string) (*syntax.Tree, error) {
	tree, err := r.trees.FileTree(ctx, path)
	if err != nil {
		var astErr *toolchain.AstUnavailableError
		if errors.As(err, &astErr) {
			return nil, err
		}
		return nil, &toolchain.AstUnavailableError{Path: path, Err: err}
	}
	return tree, nil
}

// FindDefinition returns the definition of the symbol at pos, or nil when
// nothing is defined there
func (r *Resolver) FindDefinition(ctx context.Context, path string, pos protocol.Position) (*syntax.Symbol, error) {
	tree, err := r.tree(ctx, path)
	if err != nil {
		return nil, err
	}

	name, ok := syntax.NameAt(tree, position.ToTree(pos))
	if !ok {
		return nil, nil
	}

	sym, ok := syntax.FindDefinition(tree, name)
	if !ok {
		return nil, nil
	}
	return &sym, nil
}

// FindUsages returns the definition of the symbol at pos together with every
// use of it, both read from a single tree. The definition is nil when the name
// has none in the file. The uses are empty, never nil, when no symbol resolves.
func (r *Resolver) FindUsages(ctx context.Context, path string, pos protocol.Position) (*syntax.Symbol, []syntax.Reference, error) {
	tree, err := r.tree(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	name, ok := syntax.NameAt(tree, position.ToTree(pos))
	if !ok {
		return nil, []syntax.Reference{}, nil
	}

	references := syntax.FindReferences(tree, name)
	if sym, ok := syntax.FindDefinition(tree, name); ok {
		return &sym, references, nil
	}
	return nil, references, nil
}

// DocumentSymbols returns every definition in the file
func (r *Resolver) DocumentSymbols(ctx context.Context, path string) ([]syntax.Symbol, error) {
	tree, err := r.tree(ctx, path)
	if err != nil {
		return nil, err
	}
	return syntax.Definitions(tree), nil
}

// ReferenceCounts returns every definition in the file with the number of
// variables sharing its name
func (r *Resolver) ReferenceCounts(ctx context.Context, path string) ([]Usage, error) {
	tree, err := r.tree(ctx, path)
	if err != nil {
		return nil, err
	}

	definitions := syntax.Definitions(tree)
	usages := make([]Usage, 0, len(definitions))
	for _, def := range definitions {
		usages = append(usages, Usage{
			Symbol:     def,
			References: len(syntax.FindReferences(tree, def.Name)),
		})
	}
	return usages, nil
}

// HoverType returns the type of the expression under pos in text, the
// current content of the file at path. It tries the type of the identifier
// as a top-level symbol, then the type of the expression on its own, and
// finally falls back to the first type reported for the whole file with
// Approximate set. It returns nil when there is nothing under the cursor.
func (r *Resolver) HoverType(ctx context.Context, path, text string, pos protocol.Position) (*Hover, error) {
	word, ok := position.ExpressionAt(text, pos)
	if !ok {
		return nil, nil
	}

	hover := &Hover{Expression: word.Text, Range: word.Range}

	if ident, ok := position.IdentifierAt(text, pos); ok {
		t, err := r.types.SymbolType(ctx, path, ident.Text)
		if err == nil {
			hover.Expression = ident.Text
			hover.Range = ident.Range
			hover.Type = t
			return hover, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	t, err := r.types.ExpressionType(ctx, word.Text)
	if err == nil {
		hover.Type = t
		return hover, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	entries, err := r.types.FileTypes(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get types for %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, toolchain.ErrNoType
	}

	hover.Type = entries[0].Type
	hover.Approximate = true
	return hover, nil
}
