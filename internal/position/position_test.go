package position

import (
	"testing"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	for line := 0; line < 5; line++ {
		for col := 0; col < 5; col++ {
			p := protocol.Position{Line: line, Character: col}
			assert.Equal(t, p, ToProtocol(ToTree(p)))

			tp := TreePos{Line: line + 1, Column: col + 1}
			assert.Equal(t, tp, ToTree(ToProtocol(tp)))
		}
	}
}

func TestToProtocolSaturates(t *testing.T) {
	assert.Equal(t, protocol.Position{}, ToProtocol(TreePos{Line: 0, Column: 0}))
	assert.Equal(t, protocol.Position{Line: 2}, ToProtocol(TreePos{Line: 3, Column: 0}))
}

func TestWithin(t *testing.T) {
	single := TreeRange{Start: TreePos{1, 1}, End: TreePos{1, 10}}
	multi := TreeRange{Start: TreePos{1, 5}, End: TreePos{3, 10}}

	tests := []struct {
		name   string
		target TreePos
		rng    TreeRange
		want   bool
	}{
		{"single line inside", TreePos{1, 5}, single, true},
		{"single line at start", TreePos{1, 1}, single, true},
		{"single line at end", TreePos{1, 10}, single, true},
		{"single line past end", TreePos{1, 15}, single, false},
		{"other line", TreePos{2, 5}, single, false},
		{"multi line middle ignores columns", TreePos{2, 500}, multi, true},
		{"multi line start line before column", TreePos{1, 4}, multi, false},
		{"multi line start", TreePos{1, 5}, multi, true},
		{"multi line end", TreePos{3, 10}, multi, true},
		{"multi line end line after column", TreePos{3, 11}, multi, false},
		{"line after range", TreePos{4, 5}, multi, false},
		{"line before range", TreePos{0, 5}, multi, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(tt.target, tt.rng))
		})
	}
}

func TestTreeRangeValid(t *testing.T) {
	assert.True(t, TreeRange{Start: TreePos{1, 1}, End: TreePos{1, 1}}.Valid())
	assert.True(t, TreeRange{Start: TreePos{1, 9}, End: TreePos{2, 1}}.Valid())
	assert.False(t, TreeRange{Start: TreePos{1, 5}, End: TreePos{1, 4}}.Valid())
	assert.False(t, TreeRange{Start: TreePos{2, 1}, End: TreePos{1, 9}}.Valid())
}

func TestByteOffset(t *testing.T) {
	assert.Equal(t, 0, ByteOffset("hello", 0))
	assert.Equal(t, 3, ByteOffset("hello", 3))
	assert.Equal(t, 5, ByteOffset("hello", 99))
	// é is two bytes, so the character after it starts at byte 5
	assert.Equal(t, 3, ByteOffset("café!", 3))
	assert.Equal(t, 5, ByteOffset("café!", 4))
	assert.Equal(t, 6, ByteOffset("café!", 5))
	assert.Equal(t, 4, ByteOffset("🚀x", 1))
}

func TestRuneCount(t *testing.T) {
	assert.Equal(t, 4, RuneCount("café"))
	assert.Equal(t, 0, RuneCount(""))
}
