// Package position converts between the two coordinate systems used by the
// server: zero-based protocol positions (line, character) sent by the editor
// and one-based tree positions (line, column) emitted by the noolang tool.
//
// Columns in both systems count characters (runes), never bytes.
package position

import (
	"fmt"
	"unicode/utf8"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// TreePos is a one-based position inside a syntax tree location
type TreePos struct {
	Line   int `json:"line" msgpack:"line"`
	Column int `json:"column" msgpack:"column"`
}

func (p TreePos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// TreeRange is a one-based range. End points just past the last character,
// using the same column semantics as Start.
type TreeRange struct {
	Start TreePos `json:"start" msgpack:"start"`
	End   TreePos `json:"end" msgpack:"end"`
}

func (r TreeRange) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Valid reports whether Start is not after End
func (r TreeRange) Valid() bool {
	if r.Start.Line != r.End.Line {
		return r.Start.Line < r.End.Line
	}
	return r.Start.Column <= r.End.Column
}

// ToProtocol converts the range to zero-based protocol coordinates
func (r TreeRange) ToProtocol() protocol.Range {
	return protocol.Range{
		Start: ToProtocol(r.Start),
		End:   ToProtocol(r.End),
	}
}

// ToTree converts a zero-based protocol position to a one-based tree position
func ToTree(p protocol.Position) TreePos {
	return TreePos{
		Line:   max(p.Line, 0) + 1,
		Column: max(p.Character, 0) + 1,
	}
}

// ToProtocol converts a one-based tree position to a zero-based protocol
// position. Values already at the floor saturate at zero.
func ToProtocol(p TreePos) protocol.Position {
	return protocol.Position{
		Line:      max(p.Line-1, 0),
		Character: max(p.Column-1, 0),
	}
}

// Within reports whether target lies inside r, both in tree coordinates.
// Both endpoints are inclusive.
func Within(target TreePos, r TreeRange) bool {
	if target.Line < r.Start.Line || target.Line > r.End.Line {
		return false
	}
	if target.Line == r.Start.Line && target.Column < r.Start.Column {
		return false
	}
	if target.Line == r.End.Line && target.Column > r.End.Column {
		return false
	}
	return true
}

// ByteOffset returns the byte offset of the character column col within line.
// Columns past the end of the line clamp to the line length.
func ByteOffset(line string, col int) int {
	if col <= 0 {
		return 0
	}
	chars := 0
	for i := range line {
		if chars == col {
			return i
		}
		chars++
	}
	return len(line)
}

// RuneCount returns the number of characters in line
func RuneCount(line string) int {
	return utf8.RuneCountInString(line)
}
