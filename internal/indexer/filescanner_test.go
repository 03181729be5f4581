package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/noolang/noolang-lsp/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrees struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newFakeTrees() *fakeTrees {
	return &fakeTrees{calls: map[string]int{}, fail: map[string]bool{}}
}

func (f *fakeTrees) FileTree(ctx context.Context, path string) (*syntax.Tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	if f.fail[filepath.Base(path)] {
		return nil, errors.New("tool failed")
	}
	return &syntax.Tree{}, nil
}

func (f *fakeTrees) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

type mockIndexer struct {
	mu           sync.Mutex
	indexedFiles map[string]bool
	cleared      bool
}

func newMockIndexer() *mockIndexer {
	return &mockIndexer{indexedFiles: map[string]bool{}}
}

func (m *mockIndexer) ID() string { return "mock" }

func (m *mockIndexer) Index(path string, tree *syntax.Tree, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexedFiles[path] = true
	return nil
}

func (m *mockIndexer) RemovedFiles(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range paths {
		delete(m.indexedFiles, path)
	}
	return nil
}

func (m *mockIndexer) Close() error { return nil }

func (m *mockIndexer) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = true
	m.indexedFiles = map[string]bool{}
	return nil
}

func (m *mockIndexer) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexedFiles[path]
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupScanner(t *testing.T, root string, trees TreeProvider) (*FileScanner, *mockIndexer) {
	t.Helper()
	fs, err := NewFileScanner(root, filepath.Join(t.TempDir(), "files.db"), trees, ScannerOptions{
		Extensions: []string{".noo"},
		Workers:    2,
		Debounce:   20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })

	indexer := newMockIndexer()
	fs.AddIndexer(indexer)
	return fs, indexer
}

func TestFileScanner_IndexAll_SkipsIgnoredFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "build/\n*.gen.noo\n")

	indexed := []string{
		filepath.Join(root, "main.noo"),
		filepath.Join(root, "lib", "list.noo"),
	}
	skipped := []string{
		filepath.Join(root, "notes.txt"),
		filepath.Join(root, "node_modules", "dep.noo"),
		filepath.Join(root, "lib", "node_modules", "dep.noo"),
		filepath.Join(root, "build", "out.noo"),
		filepath.Join(root, "lib", "types.gen.noo"),
	}
	for _, path := range append(indexed, skipped...) {
		writeFile(t, path, "x = 1")
	}

	trees := newFakeTrees()
	fs, indexer := setupScanner(t, root, trees)

	require.NoError(t, fs.IndexAll(context.Background()))

	for _, path := range indexed {
		assert.True(t, indexer.has(path), "file was not indexed: %s", path)
	}
	for _, path := range skipped {
		assert.False(t, indexer.has(path), "ignored file was indexed: %s", path)
		assert.Zero(t, trees.count(path), "tree fetched for ignored file: %s", path)
	}
}

func TestFileScanner_IndexFiles_SkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.noo")
	writeFile(t, path, "x = 1")

	trees := newFakeTrees()
	fs, _ := setupScanner(t, root, trees)
	ctx := context.Background()

	require.NoError(t, fs.IndexFiles(ctx, []string{path}))
	require.NoError(t, fs.IndexFiles(ctx, []string{path}))
	assert.Equal(t, 1, trees.count(path))

	// a different size marks the file as changed
	writeFile(t, path, "x = 12")
	require.NoError(t, fs.IndexFiles(ctx, []string{path}))
	assert.Equal(t, 2, trees.count(path))

	require.NoError(t, fs.ClearHashes())
	require.NoError(t, fs.IndexFiles(ctx, []string{path}))
	assert.Equal(t, 3, trees.count(path))
}

func TestFileScanner_IndexFiles_TouchedFileKeepsIndex(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.noo")
	writeFile(t, path, "x = 1")

	trees := newFakeTrees()
	fs, indexer := setupScanner(t, root, trees)
	ctx := context.Background()

	require.NoError(t, fs.IndexFiles(ctx, []string{path}))

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	require.NoError(t, fs.IndexFiles(ctx, []string{path}))

	assert.Equal(t, 1, trees.count(path))
	assert.True(t, indexer.has(path))

	needsIndexing, _, err := fs.fileNeedsIndexing(path)
	require.NoError(t, err)
	assert.False(t, needsIndexing, "the new mtime is recorded")
}

func TestFileScanner_IndexFiles_TreeFailure(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "broken.noo")
	writeFile(t, path, "x = ")

	trees := newFakeTrees()
	trees.fail["broken.noo"] = true
	fs, indexer := setupScanner(t, root, trees)
	ctx := context.Background()

	require.NoError(t, fs.IndexFiles(ctx, []string{path}))
	assert.False(t, indexer.has(path))

	// the failure is not recorded, so the file is retried
	require.NoError(t, fs.IndexFiles(ctx, []string{path}))
	assert.Equal(t, 2, trees.count(path))
}

func TestFileScanner_RemoveFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.noo")
	writeFile(t, path, "x = 1")

	trees := newFakeTrees()
	fs, indexer := setupScanner(t, root, trees)
	ctx := context.Background()

	require.NoError(t, fs.IndexFiles(ctx, []string{path}))
	require.True(t, indexer.has(path))

	require.NoError(t, fs.RemoveFiles(ctx, []string{path}))
	assert.False(t, indexer.has(path))

	// the state is forgotten, so the file is indexed again
	require.NoError(t, fs.IndexFiles(ctx, []string{path}))
	assert.True(t, indexer.has(path))
	assert.Equal(t, 2, trees.count(path))
}

func TestFileScanner_ClearHashes_ClearsIndexers(t *testing.T) {
	fs, indexer := setupScanner(t, t.TempDir(), newFakeTrees())

	require.NoError(t, fs.ClearHashes())
	assert.True(t, indexer.cleared)
}

func TestFileScanner_IndexFiles_Cancelled(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.noo")
	writeFile(t, path, "x = 1")

	trees := newFakeTrees()
	fs, _ := setupScanner(t, root, trees)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fs.IndexFiles(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileScanner_Watcher(t *testing.T) {
	root := t.TempDir()
	trees := newFakeTrees()
	fs, indexer := setupScanner(t, root, trees)

	require.NoError(t, fs.StartWatcher())

	path := filepath.Join(root, "sub", "new.noo")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	// give the watcher time to pick up the new directory
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "y = 2")

	assert.Eventually(t, func() bool { return indexer.has(path) }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool { return !indexer.has(path) }, 5*time.Second, 20*time.Millisecond)

	fs.StopWatcher()
}
