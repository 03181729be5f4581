package lsp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/noolang/noolang-lsp/internal/textsync"
	"github.com/pmezard/go-difflib/difflib"
)

// ErrDocumentNotOpen is returned for changes to a document that was never opened
var ErrDocumentNotOpen = errors.New("document is not open")

// TextDocument represents a document open in the editor
type TextDocument struct {
	URI     string
	Text    string
	Version int
	// Revision increases with every change to Text, across all documents
	Revision uint64
	// Dirty is set when Text differs from what was last opened or saved
	Dirty bool
}

type document struct {
	mu sync.Mutex
	TextDocument
	snapshot         string
	snapshotRevision uint64
}

// DocumentManager manages text documents. Changes to one document are applied
// in order under its own lock, changes to different documents run concurrently.
type DocumentManager struct {
	documents   map[string]*document
	mu          sync.RWMutex
	revision    atomic.Uint64
	snapshotDir string
}

// NewDocumentManager creates a new document manager. Unsaved buffers are
// written below snapshotDir when the tool needs to read them.
func NewDocumentManager(snapshotDir string) *DocumentManager {
	return &DocumentManager{
		documents:   make(map[string]*document),
		snapshotDir: snapshotDir,
	}
}

func (m *DocumentManager) nextRevision() uint64 {
	return m.revision.Add(1)
}

func (m *DocumentManager) lookup(uri string) (*document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[uri]
	return doc, ok
}

// OpenDocument adds or replaces a document
func (m *DocumentManager) OpenDocument(uri string, text string, version int) {
	doc := &document{
		TextDocument: TextDocument{
			URI:      uri,
			Text:     text,
			Version:  version,
			Revision: m.nextRevision(),
		},
	}

	m.mu.Lock()
	old := m.documents[uri]
	m.documents[uri] = doc
	m.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		removeSnapshot(old)
		old.mu.Unlock()
	}
}

// ApplyChanges applies content changes in order. When a change fails the
// changes before it stay applied, the failing one and everything after it are
// dropped and the version is left unchanged.
func (m *DocumentManager) ApplyChanges(uri string, version int, changes []textsync.Change) error {
	doc, ok := m.lookup(uri)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotOpen, uri)
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	text, err := textsync.ApplyAll(doc.Text, changes)
	if text != doc.Text {
		doc.Text = text
		doc.Dirty = true
		doc.Revision = m.nextRevision()
	}
	if err != nil {
		return err
	}

	doc.Version = version
	return nil
}

// SaveDocument marks a document as saved. When the client sends the saved
// text it replaces the buffer. The buffer is then compared with the file on
// disk: on a mismatch the disk content wins and a unified diff of the drift is
// returned for logging.
func (m *DocumentManager) SaveDocument(uri string, text *string) (string, error) {
	doc, ok := m.lookup(uri)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotOpen, uri)
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	if text != nil && *text != doc.Text {
		doc.Text = *text
		doc.Revision = m.nextRevision()
	}
	doc.Dirty = false
	removeSnapshot(doc)

	path := URIToPath(uri)
	onDisk, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read saved document %s: %w", path, err)
	}

	if string(onDisk) == doc.Text {
		return "", nil
	}

	drift, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(doc.Text),
		B:        difflib.SplitLines(string(onDisk)),
		FromFile: "buffer",
		ToFile:   path,
		Context:  2,
	})
	if err != nil {
		return "", fmt.Errorf("failed to diff document %s: %w", path, err)
	}

	doc.Text = string(onDisk)
	doc.Revision = m.nextRevision()
	return drift, nil
}

// CloseDocument removes a document
func (m *DocumentManager) CloseDocument(uri string) {
	m.mu.Lock()
	doc, ok := m.documents[uri]
	delete(m.documents, uri)
	m.mu.Unlock()

	if ok {
		doc.mu.Lock()
		removeSnapshot(doc)
		doc.mu.Unlock()
	}
}

// GetDocument returns a copy of a document by URI
func (m *DocumentManager) GetDocument(uri string) (TextDocument, bool) {
	doc, ok := m.lookup(uri)
	if !ok {
		return TextDocument{}, false
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	return doc.TextDocument, true
}

// GetDocumentText returns the text of a document by URI
func (m *DocumentManager) GetDocumentText(uri string) (string, bool) {
	doc, ok := m.GetDocument(uri)
	return doc.Text, ok
}

// Revision returns the current revision of a document
func (m *DocumentManager) Revision(uri string) (uint64, bool) {
	doc, ok := m.GetDocument(uri)
	return doc.Revision, ok
}

// SnapshotPath returns a file path whose content matches the document buffer.
// Clean documents map to their own file. Dirty documents are written to a
// snapshot file that keeps the original extension.
func (m *DocumentManager) SnapshotPath(uri string) (string, error) {
	doc, ok := m.lookup(uri)
	if !ok {
		return URIToPath(uri), nil
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	if !doc.Dirty {
		return URIToPath(uri), nil
	}

	if doc.snapshot != "" && doc.snapshotRevision == doc.Revision {
		return doc.snapshot, nil
	}

	if err := os.MkdirAll(m.snapshotDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	name := fmt.Sprintf("%016x%s", xxhash.Sum64String(uri), filepath.Ext(URIToPath(uri)))
	path := filepath.Join(m.snapshotDir, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(doc.Text), 0o600); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	doc.snapshot = path
	doc.snapshotRevision = doc.Revision
	return path, nil
}

// Close removes all snapshot files
func (m *DocumentManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range m.documents {
		doc.mu.Lock()
		removeSnapshot(doc)
		doc.mu.Unlock()
	}
}

// removeSnapshot deletes the snapshot file of doc. The caller holds doc.mu.
func removeSnapshot(doc *document) {
	if doc.snapshot == "" {
		return
	}
	_ = os.Remove(doc.snapshot)
	doc.snapshot = ""
	doc.snapshotRevision = 0
}
