package reference

import (
	"context"
	"errors"
	"testing"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/position"
	"github.com/noolang/noolang-lsp/internal/syntax"
	"github.com/stretchr/testify/assert"
)

type fakeResolver struct {
	references []syntax.Reference
	symbol     *syntax.Symbol
	err        error
	calls      int
}

func (f *fakeResolver) FindUsages(ctx context.Context, path string, pos protocol.Position) (*syntax.Symbol, []syntax.Reference, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.symbol, f.references, nil
}

func treeRange(line, startCol, endCol int) position.TreeRange {
	return position.TreeRange{
		Start: position.TreePos{Line: line, Column: startCol},
		End:   position.TreePos{Line: line, Column: endCol},
	}
}

func location(line, startChar, endChar int) protocol.Location {
	return protocol.Location{
		URI: "file:///ws/main.noo",
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: startChar},
			End:   protocol.Position{Line: line, Character: endChar},
		},
	}
}

func params(includeDeclaration bool) *protocol.ReferenceParams {
	p := &protocol.ReferenceParams{Path: "/ws/main.noo"}
	p.TextDocument.URI = "file:///ws/main.noo"
	p.Context.IncludeDeclaration = includeDeclaration
	return p
}

func TestGetReferences(t *testing.T) {
	resolver := &fakeResolver{
		references: []syntax.Reference{
			{Name: "add", Range: treeRange(2, 9, 12)},
			{Name: "add", Range: treeRange(3, 1, 4)},
		},
		symbol: &syntax.Symbol{Name: "add", Range: treeRange(1, 1, 4)},
	}

	tests := []struct {
		name               string
		includeDeclaration bool
		expected           []protocol.Location
	}{
		{
			name:     "uses only",
			expected: []protocol.Location{location(1, 8, 11), location(2, 0, 3)},
		},
		{
			name:               "with declaration",
			includeDeclaration: true,
			expected:           []protocol.Location{location(0, 0, 3), location(1, 8, 11), location(2, 0, 3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver.calls = 0
			locations := NewReferenceProvider(resolver).GetReferences(context.Background(), params(tt.includeDeclaration))
			assert.Equal(t, tt.expected, locations)
			assert.Equal(t, 1, resolver.calls)
		})
	}
}

func TestGetReferences_Failures(t *testing.T) {
	t.Run("tree unavailable", func(t *testing.T) {
		resolver := &fakeResolver{err: errors.New("tool failed")}
		locations := NewReferenceProvider(resolver).GetReferences(context.Background(), params(true))
		assert.NotNil(t, locations)
		assert.Empty(t, locations)
	})

	t.Run("name without definition", func(t *testing.T) {
		resolver := &fakeResolver{
			references: []syntax.Reference{{Name: "x", Range: treeRange(2, 1, 2)}},
		}
		locations := NewReferenceProvider(resolver).GetReferences(context.Background(), params(true))
		assert.Equal(t, []protocol.Location{location(1, 0, 1)}, locations)
	})

	t.Run("nothing under cursor", func(t *testing.T) {
		resolver := &fakeResolver{references: []syntax.Reference{}}
		locations := NewReferenceProvider(resolver).GetReferences(context.Background(), params(true))
		assert.NotNil(t, locations)
		assert.Empty(t, locations)
	})
}
