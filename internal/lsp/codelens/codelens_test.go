package codelens

import (
	"context"
	"errors"
	"testing"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/position"
	"github.com/noolang/noolang-lsp/internal/resolve"
	"github.com/noolang/noolang-lsp/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	usages []resolve.Usage
	err    error
}

func (f *fakeResolver) ReferenceCounts(ctx context.Context, path string) ([]resolve.Usage, error) {
	return f.usages, f.err
}

func usage(name string, line, references int) resolve.Usage {
	return resolve.Usage{
		Symbol: syntax.Symbol{
			Name: name,
			Range: position.TreeRange{
				Start: position.TreePos{Line: line, Column: 1},
				End:   position.TreePos{Line: line, Column: 1 + len(name)},
			},
		},
		References: references,
	}
}

func TestGetCodeLenses(t *testing.T) {
	resolver := &fakeResolver{usages: []resolve.Usage{
		usage("add", 1, 2),
		usage("count", 4, 1),
		usage("unused", 5, 0),
	}}

	params := &protocol.CodeLensParams{Path: "/ws/main.noo"}
	params.TextDocument.URI = "file:///ws/main.noo"

	lenses := NewReferenceCodeLensProvider(resolver).GetCodeLenses(context.Background(), params)
	require.Len(t, lenses, 3)

	var titles []string
	for _, lens := range lenses {
		require.NotNil(t, lens.Command)
		assert.Equal(t, ShowReferencesCommand, lens.Command.Command)
		titles = append(titles, lens.Command.Title)
	}
	assert.Equal(t, []string{"2 references", "1 reference", "0 references"}, titles)

	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 3, Character: 0},
		End:   protocol.Position{Line: 3, Character: 5},
	}, lenses[1].Range)
	assert.Equal(t, []interface{}{"file:///ws/main.noo", protocol.Position{Line: 3, Character: 0}}, lenses[1].Command.Arguments)
}

func TestGetCodeLenses_TreeUnavailable(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("tool failed")}
	lenses := NewReferenceCodeLensProvider(resolver).GetCodeLenses(context.Background(), &protocol.CodeLensParams{})
	assert.Nil(t, lenses)
}
