package indexer

import (
	"context"

	"github.com/noolang/noolang-lsp/internal/syntax"
)

// TreeProvider returns the syntax tree of a file on disk
type TreeProvider interface {
	FileTree(ctx context.Context, path string) (*syntax.Tree, error)
}

// Indexer consumes the trees produced while scanning the workspace
type Indexer interface {
	ID() string
	Index(path string, tree *syntax.Tree, fileContent []byte) error
	RemovedFiles(paths []string) error
	Close() error
	Clear() error
}
