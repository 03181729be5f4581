// Package symbolindex keeps the top-level definitions of every workspace file
// in a persistent store for workspace symbol search.
package symbolindex

import (
	"fmt"
	"path/filepath"

	"github.com/noolang/noolang-lsp/internal/indexer"
	"github.com/noolang/noolang-lsp/internal/position"
	"github.com/noolang/noolang-lsp/internal/syntax"
)

// IndexerID identifies the symbol indexer in the server registry
const IndexerID = "symbol.indexer"

// IndexedSymbol is a definition together with the file it lives in
type IndexedSymbol struct {
	Name  string             `msgpack:"name"`
	Kind  syntax.SymbolKind  `msgpack:"kind"`
	Path  string             `msgpack:"path"`
	Range position.TreeRange `msgpack:"range"`
}

type SymbolIndexer struct {
	dataIndexer *indexer.DataIndexer[IndexedSymbol]
}

// NewSymbolIndexer opens the symbol store inside configDir
func NewSymbolIndexer(configDir string) (*SymbolIndexer, error) {
	dataIndexer, err := indexer.NewDataIndexer[IndexedSymbol](filepath.Join(configDir, "symbols.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol index: %w", err)
	}

	return &SymbolIndexer{dataIndexer: dataIndexer}, nil
}

func (idx *SymbolIndexer) ID() string {
	return IndexerID
}

// Index replaces the stored definitions of path with those found in tree
func (idx *SymbolIndexer) Index(path string, tree *syntax.Tree, _ []byte) error {
	definitions := syntax.Definitions(tree)

	entries := make([]indexer.Entry[IndexedSymbol], 0, len(definitions))
	for _, def := range definitions {
		entries = append(entries, indexer.Entry[IndexedSymbol]{
			Key: def.Name,
			Item: IndexedSymbol{
				Name:  def.Name,
				Kind:  def.Kind,
				Path:  path,
				Range: def.Range,
			},
		})
	}

	return idx.dataIndexer.ReplaceFile(path, entries)
}

func (idx *SymbolIndexer) RemovedFiles(paths []string) error {
	return idx.dataIndexer.DeleteByFilePaths(paths)
}

// Query returns the symbols whose name contains query, ignoring case, sorted
// by name. At most limit symbols are returned when limit is positive.
func (idx *SymbolIndexer) Query(query string, limit int) ([]IndexedSymbol, error) {
	return idx.dataIndexer.Search(query, limit)
}

// Lookup returns every symbol named exactly name
func (idx *SymbolIndexer) Lookup(name string) ([]IndexedSymbol, error) {
	return idx.dataIndexer.GetValues(name)
}

func (idx *SymbolIndexer) Close() error {
	return idx.dataIndexer.Close()
}

func (idx *SymbolIndexer) Clear() error {
	return idx.dataIndexer.Clear()
}
