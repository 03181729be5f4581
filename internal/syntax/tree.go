// Package syntax holds the syntax tree produced by the noolang tool and the
// position and name based lookups the language server runs over it.
//
// The tool emits loosely typed JSON. Decode turns it into a closed set of
// node variants once, so lookups never inspect raw fields:
//
//   - *Definition: kind "definition" with a string name and a well-formed location
//   - *Variable:   kind "variable" with a string name and a well-formed location
//   - *Other:      everything else, including malformed definitions and variables
//
// Children keep the order of the JSON document: object fields in stored order,
// array elements in index order.
package syntax

import (
	"errors"
	"math"

	"github.com/noolang/noolang-lsp/internal/position"
	"github.com/tidwall/gjson"
)

const (
	KindDefinition = "definition"
	KindVariable   = "variable"
	KindFunction   = "function"
)

// ErrInvalidJSON is returned by Decode for input that is not valid JSON
var ErrInvalidJSON = errors.New("syntax tree is not valid JSON")

// Node is a decoded syntax tree node
type Node interface {
	// Kind returns the node's kind discriminator, or "" when it has none
	Kind() string
	// Location returns the node's tree range when it carries a well-formed one
	Location() (position.TreeRange, bool)
	// Children returns the child nodes in document order
	Children() []Node
}

// Definition binds Name to the expression in Value
type Definition struct {
	Name     string
	Range    position.TreeRange
	Value    Node
	children []Node
}

func (d *Definition) Kind() string                         { return KindDefinition }
func (d *Definition) Location() (position.TreeRange, bool) { return d.Range, true }
func (d *Definition) Children() []Node                     { return d.children }

// Variable is a use of Name
type Variable struct {
	Name     string
	Range    position.TreeRange
	children []Node
}

func (v *Variable) Kind() string                         { return KindVariable }
func (v *Variable) Location() (position.TreeRange, bool) { return v.Range, true }
func (v *Variable) Children() []Node                     { return v.children }

// Other is any node that is neither a Definition nor a Variable
type Other struct {
	kind     string
	location *position.TreeRange
	children []Node
}

func (o *Other) Kind() string { return o.kind }

func (o *Other) Location() (position.TreeRange, bool) {
	if o.location == nil {
		return position.TreeRange{}, false
	}
	return *o.location, true
}

func (o *Other) Children() []Node { return o.children }

// Tree is a decoded syntax tree
type Tree struct {
	Root Node
}

// Decode parses the tool's JSON output into a Tree
func Decode(data []byte) (*Tree, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	root := decodeValue(gjson.ParseBytes(data))
	if root == nil {
		root = &Other{}
	}

	return &Tree{Root: root}, nil
}

func decodeValue(value gjson.Result) Node {
	switch {
	case value.IsObject():
		return decodeObject(value)
	case value.IsArray():
		return &Other{children: decodeArray(value, nil)}
	default:
		return nil
	}
}

func decodeArray(value gjson.Result, children []Node) []Node {
	value.ForEach(func(_, element gjson.Result) bool {
		switch {
		case element.IsObject():
			children = append(children, decodeObject(element))
		case element.IsArray():
			children = decodeArray(element, children)
		}
		return true
	})
	return children
}

func decodeObject(value gjson.Result) Node {
	var (
		kind, name string
		hasName    bool
		location   *position.TreeRange
		valueNode  Node
		children   []Node
	)

	value.ForEach(func(key, field gjson.Result) bool {
		switch key.String() {
		case "kind":
			if field.Type == gjson.String {
				kind = field.String()
			}
		case "name":
			if field.Type == gjson.String {
				name = field.String()
				hasName = true
			}
		case "location":
			location = decodeLocation(field)
			return true
		}

		switch {
		case field.IsObject():
			child := decodeObject(field)
			if key.String() == "value" {
				valueNode = child
			}
			children = append(children, child)
		case field.IsArray():
			children = decodeArray(field, children)
		}
		return true
	})

	switch {
	case kind == KindDefinition && hasName && location != nil:
		return &Definition{Name: name, Range: *location, Value: valueNode, children: children}
	case kind == KindVariable && hasName && location != nil:
		return &Variable{Name: name, Range: *location, children: children}
	default:
		return &Other{kind: kind, location: location, children: children}
	}
}

func decodeLocation(field gjson.Result) *position.TreeRange {
	if !field.IsObject() {
		return nil
	}

	var coords [4]int
	for i, path := range []string{"start.line", "start.column", "end.line", "end.column"} {
		n, ok := wholeNumber(field.Get(path))
		if !ok {
			return nil
		}
		coords[i] = n
	}

	rng := position.TreeRange{
		Start: position.TreePos{Line: coords[0], Column: coords[1]},
		End:   position.TreePos{Line: coords[2], Column: coords[3]},
	}
	if !rng.Valid() {
		return nil
	}
	return &rng
}

func wholeNumber(value gjson.Result) (int, bool) {
	if value.Type != gjson.Number {
		return 0, false
	}
	f := value.Float()
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
