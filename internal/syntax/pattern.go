package syntax

import (
	"slices"

	"github.com/noolang/noolang-lsp/internal/position"
)

// Common patterns
var (
	// DefinitionPattern matches well-formed definition nodes
	DefinitionPattern = FuncPattern(func(node Node) bool {
		_, ok := node.(*Definition)
		return ok
	})

	// VariablePattern matches well-formed variable nodes
	VariablePattern = FuncPattern(func(node Node) bool {
		_, ok := node.(*Variable)
		return ok
	})

	// SymbolPattern matches any node that names a symbol
	SymbolPattern = Or(DefinitionPattern, VariablePattern)
)

// Pattern defines a pattern that can be matched against a syntax node
type Pattern interface {
	Matches(node Node) bool
}

// Create a pattern from a function
func FuncPattern(matchFunc func(node Node) bool) Pattern {
	return &funcPattern{matchFunc: matchFunc}
}

type funcPattern struct {
	matchFunc func(node Node) bool
}

func (p *funcPattern) Matches(node Node) bool {
	return p.matchFunc(node)
}

// Chain multiple patterns using AND logic
func And(patterns ...Pattern) Pattern {
	return &andPattern{patterns: patterns}
}

type andPattern struct {
	patterns []Pattern
}

func (p *andPattern) Matches(node Node) bool {
	for _, pattern := range p.patterns {
		if !pattern.Matches(node) {
			return false
		}
	}
	return true
}

// Chain multiple patterns using OR logic
func Or(patterns ...Pattern) Pattern {
	return &orPattern{patterns: patterns}
}

type orPattern struct {
	patterns []Pattern
}

func (p *orPattern) Matches(node Node) bool {
	for _, pattern := range p.patterns {
		if pattern.Matches(node) {
			return true
		}
	}
	return false
}

// Negate a pattern
func Not(pattern Pattern) Pattern {
	return &notPattern{pattern: pattern}
}

type notPattern struct {
	pattern Pattern
}

func (p *notPattern) Matches(node Node) bool {
	return !p.pattern.Matches(node)
}

// Match a node's kind discriminator
func NodeKind(kind string) Pattern {
	return &anyNodeKindPattern{kinds: []string{kind}}
}

// Match any of the given kinds
func AnyNodeKind(kinds ...string) Pattern {
	return &anyNodeKindPattern{kinds: kinds}
}

type anyNodeKindPattern struct {
	kinds []string
}

func (p *anyNodeKindPattern) Matches(node Node) bool {
	return slices.Contains(p.kinds, node.Kind())
}

// Match the name of a definition or variable
func NodeName(name string) Pattern {
	return &nodeNamePattern{name: name}
}

type nodeNamePattern struct {
	name string
}

func (p *nodeNamePattern) Matches(node Node) bool {
	name, ok := NameOf(node)
	return ok && name == p.name
}

// Match nodes whose location contains pos. Nodes without a location never match.
func Covers(pos position.TreePos) Pattern {
	return &coversPattern{pos: pos}
}

type coversPattern struct {
	pos position.TreePos
}

func (p *coversPattern) Matches(node Node) bool {
	loc, ok := node.Location()
	return ok && position.Within(p.pos, loc)
}

// Match nodes that have a child matching pattern
func HasChild(pattern Pattern) Pattern {
	return &hasChildPattern{pattern: pattern}
}

type hasChildPattern struct {
	pattern Pattern
}

func (p *hasChildPattern) Matches(node Node) bool {
	for _, child := range node.Children() {
		if p.pattern.Matches(child) {
			return true
		}
	}
	return false
}

// NameOf returns the symbol name carried by a definition or variable node
func NameOf(node Node) (string, bool) {
	switch n := node.(type) {
	case *Definition:
		return n.Name, true
	case *Variable:
		return n.Name, true
	default:
		return "", false
	}
}

// Utility function to match a pattern and return the first matching node in pre-order
func FindFirst(root Node, pattern Pattern) Node {
	if root == nil {
		return nil
	}

	if pattern.Matches(root) {
		return root
	}

	for _, child := range root.Children() {
		if result := FindFirst(child, pattern); result != nil {
			return result
		}
	}

	return nil
}

// Utility function to find all nodes matching a pattern in pre-order
func FindAll(root Node, pattern Pattern) []Node {
	var results []Node

	var visit func(node Node)
	visit = func(node Node) {
		if pattern.Matches(node) {
			results = append(results, node)
		}

		for _, child := range node.Children() {
			visit(child)
		}
	}

	if root != nil {
		visit(root)
	}
	return results
}
