package syntax

import (
	"github.com/noolang/noolang-lsp/internal/position"
)

// SymbolKind classifies a definition
type SymbolKind int

const (
	VariableSymbol SymbolKind = iota
	FunctionSymbol
	// TypeSymbol and ConstructorSymbol are not produced by the current tree shapes
	TypeSymbol
	ConstructorSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case FunctionSymbol:
		return "function"
	case TypeSymbol:
		return "type"
	case ConstructorSymbol:
		return "constructor"
	default:
		return "variable"
	}
}

// Symbol is a named definition
type Symbol struct {
	Name  string             `msgpack:"name"`
	Kind  SymbolKind         `msgpack:"kind"`
	Range position.TreeRange `msgpack:"range"`
}

// Reference is a use of a name
type Reference struct {
	Name  string
	Range position.TreeRange
}

// symbolFromDefinition derives a symbol from a definition. The only signal the
// tree carries is the kind of the bound value.
func symbolFromDefinition(def *Definition) Symbol {
	kind := VariableSymbol
	if def.Value != nil && def.Value.Kind() == KindFunction {
		kind = FunctionSymbol
	}

	return Symbol{
		Name:  def.Name,
		Kind:  kind,
		Range: def.Range,
	}
}

func root(tree *Tree) Node {
	if tree == nil {
		return nil
	}
	return tree.Root
}

// NameAt returns the name of the first definition or variable, in pre-order,
// whose location contains pos
func NameAt(tree *Tree, pos position.TreePos) (string, bool) {
	node := FindFirst(root(tree), And(SymbolPattern, Covers(pos)))
	if node == nil {
		return "", false
	}
	return NameOf(node)
}

// FindDefinition returns the first definition of name in pre-order
func FindDefinition(tree *Tree, name string) (Symbol, bool) {
	node := FindFirst(root(tree), And(DefinitionPattern, NodeName(name)))
	if node == nil {
		return Symbol{}, false
	}
	return symbolFromDefinition(node.(*Definition)), true
}

// FindReferences returns every variable named name in pre-order
func FindReferences(tree *Tree, name string) []Reference {
	nodes := FindAll(root(tree), And(VariablePattern, NodeName(name)))

	references := make([]Reference, 0, len(nodes))
	for _, node := range nodes {
		v := node.(*Variable)
		references = append(references, Reference{Name: v.Name, Range: v.Range})
	}
	return references
}

// Definitions returns every definition in the tree in pre-order
func Definitions(tree *Tree) []Symbol {
	nodes := FindAll(root(tree), DefinitionPattern)

	symbols := make([]Symbol, 0, len(nodes))
	for _, node := range nodes {
		symbols = append(symbols, symbolFromDefinition(node.(*Definition)))
	}
	return symbols
}
