package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/noolang/noolang-lsp/internal/indexer"
	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/syntax"
	"github.com/noolang/noolang-lsp/internal/textsync"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURI = "file:///work/main.noo"

// editingProvider answers every query and, when edit is set, changes the
// document while the query runs
type editingProvider struct {
	dm   *DocumentManager
	edit bool
}

func (p *editingProvider) touch() {
	if p.edit {
		_ = p.dm.ApplyChanges(testURI, 99, []textsync.Change{{Text: "a = 2"}})
	}
}

func (p *editingProvider) GetDefinition(ctx context.Context, params *protocol.DefinitionParams) []protocol.Location {
	p.touch()
	return []protocol.Location{{URI: params.TextDocument.URI}}
}

func (p *editingProvider) GetReferences(ctx context.Context, params *protocol.ReferenceParams) []protocol.Location {
	p.touch()
	return []protocol.Location{{URI: params.TextDocument.URI}}
}

func (p *editingProvider) GetHover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	p.touch()
	return &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: "`a : Float`"}}, nil
}

func (p *editingProvider) GetCompletions(ctx context.Context, params *protocol.CompletionParams) []protocol.CompletionItem {
	p.touch()
	return []protocol.CompletionItem{{Label: "map"}}
}

func (p *editingProvider) GetTriggerCharacters() []string {
	return []string{".", "@"}
}

func (p *editingProvider) GetDiagnostics(ctx context.Context, uri string, path string, content []byte) ([]protocol.Diagnostic, error) {
	p.touch()
	return []protocol.Diagnostic{{Message: "boom: " + string(content)}}, nil
}

func newTestServer(t *testing.T, edit bool) (*Server, *editingProvider) {
	t.Helper()
	dm := NewDocumentManager(t.TempDir())
	dm.OpenDocument(testURI, "a = 1", 1)

	server := NewServer(nil, dm, Options{DiagnosticsDelay: 10 * time.Millisecond})
	provider := &editingProvider{dm: dm, edit: edit}
	server.RegisterDefinitionProvider(provider)
	server.RegisterReferencesProvider(provider)
	server.RegisterHoverProvider(provider)
	server.RegisterCompletionProvider(provider)
	server.RegisterDiagnosticsProvider(provider)
	return server, provider
}

func cursor() protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Position:     protocol.Position{Line: 0, Character: 0},
	}
}

func TestServer_QueriesReturnResults(t *testing.T) {
	server, _ := newTestServer(t, false)
	ctx := context.Background()

	definitionParams := &protocol.DefinitionParams{TextDocumentPositionParams: cursor()}
	assert.Len(t, server.definition(ctx, definitionParams), 1)
	assert.Equal(t, "/work/main.noo", definitionParams.Path)
	assert.Equal(t, []byte("a = 1"), definitionParams.DocumentContent)

	assert.Len(t, server.references(ctx, &protocol.ReferenceParams{TextDocumentPositionParams: cursor()}), 1)

	hover := server.hover(ctx, &protocol.HoverParams{TextDocumentPositionParams: cursor()})
	require.NotNil(t, hover)
	assert.Equal(t, "`a : Float`", hover.Contents.Value)

	completions := server.completion(ctx, &protocol.CompletionParams{TextDocumentPositionParams: cursor()})
	assert.False(t, completions.IsIncomplete)
	assert.Len(t, completions.Items, 1)

	diagnostics, _, ok := server.collectDiagnostics(ctx, testURI)
	require.True(t, ok)
	assert.Equal(t, []protocol.Diagnostic{{Message: "boom: a = 1"}}, diagnostics)
}

func TestServer_DropsStaleResults(t *testing.T) {
	ctx := context.Background()

	t.Run("definition", func(t *testing.T) {
		server, _ := newTestServer(t, true)
		assert.Empty(t, server.definition(ctx, &protocol.DefinitionParams{TextDocumentPositionParams: cursor()}))
	})

	t.Run("references", func(t *testing.T) {
		server, _ := newTestServer(t, true)
		assert.Empty(t, server.references(ctx, &protocol.ReferenceParams{TextDocumentPositionParams: cursor()}))
	})

	t.Run("hover", func(t *testing.T) {
		server, _ := newTestServer(t, true)
		assert.Nil(t, server.hover(ctx, &protocol.HoverParams{TextDocumentPositionParams: cursor()}))
	})

	t.Run("completion is marked incomplete", func(t *testing.T) {
		server, _ := newTestServer(t, true)
		completions := server.completion(ctx, &protocol.CompletionParams{TextDocumentPositionParams: cursor()})
		assert.True(t, completions.IsIncomplete)
		assert.Len(t, completions.Items, 1)
	})

	t.Run("diagnostics", func(t *testing.T) {
		server, _ := newTestServer(t, true)
		_, _, ok := server.collectDiagnostics(ctx, testURI)
		assert.False(t, ok)
	})
}

func TestServer_QueriesOnDirtyDocumentUseSnapshot(t *testing.T) {
	server, provider := newTestServer(t, false)
	require.NoError(t, provider.dm.ApplyChanges(testURI, 2, []textsync.Change{{Text: "a = 3"}}))

	params := &protocol.DefinitionParams{TextDocumentPositionParams: cursor()}
	server.definition(context.Background(), params)

	assert.NotEqual(t, "/work/main.noo", params.Path)
	assert.FileExists(t, params.Path)
	assert.Equal(t, []byte("a = 3"), params.DocumentContent)
}

// testClient is the editor side of a connection to a running server
type testClient struct {
	conn        *jsonrpc2.Conn
	diagnostics chan protocol.PublishDiagnosticsParams
}

func startServer(t *testing.T, server *Server) (*testClient, <-chan error) {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	done := make(chan error, 1)
	go func() {
		done <- server.Start(serverSide, serverSide)
	}()

	client := &testClient{diagnostics: make(chan protocol.PublishDiagnosticsParams, 16)}
	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if req.Method == "textDocument/publishDiagnostics" && req.Params != nil {
			var params protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, err
			}
			client.diagnostics <- params
		}
		return nil, nil
	})
	client.conn = jsonrpc2.NewConn(context.Background(), jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), handler)

	t.Cleanup(func() {
		_ = client.conn.Close()
		_ = serverSide.Close()
	})
	return client, done
}

func (c *testClient) nextDiagnostics(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	select {
	case params := <-c.diagnostics:
		return params
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
		return protocol.PublishDiagnosticsParams{}
	}
}

func TestServer_Session(t *testing.T) {
	dm := NewDocumentManager(t.TempDir())
	server := NewServer(nil, dm, Options{DiagnosticsDelay: 10 * time.Millisecond})
	provider := &editingProvider{dm: dm}
	server.RegisterHoverProvider(provider)
	server.RegisterCompletionProvider(provider)
	server.RegisterDiagnosticsProvider(provider)

	client, done := startServer(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	root := t.TempDir()
	var initResult struct {
		Capabilities struct {
			HoverProvider      bool `json:"hoverProvider"`
			DefinitionProvider bool `json:"definitionProvider"`
			CompletionProvider struct {
				TriggerCharacters []string `json:"triggerCharacters"`
			} `json:"completionProvider"`
			TextDocumentSync struct {
				Change int `json:"change"`
			} `json:"textDocumentSync"`
		} `json:"capabilities"`
		ServerInfo struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	require.NoError(t, client.conn.Call(ctx, "initialize", protocol.InitializeParams{RootURI: PathToURI(root)}, &initResult))
	assert.True(t, initResult.Capabilities.HoverProvider)
	assert.False(t, initResult.Capabilities.DefinitionProvider)
	assert.Equal(t, []string{".", "@"}, initResult.Capabilities.CompletionProvider.TriggerCharacters)
	assert.Equal(t, int(protocol.SyncIncremental), initResult.Capabilities.TextDocumentSync.Change)
	assert.Equal(t, ServerName, initResult.ServerInfo.Name)
	assert.Equal(t, root, server.Root())

	require.NoError(t, client.conn.Notify(ctx, "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: testURI, LanguageID: "noolang", Version: 1, Text: "a = 1"},
	}))
	published := client.nextDiagnostics(t)
	assert.Equal(t, testURI, published.URI)
	assert.Equal(t, []protocol.Diagnostic{{Message: "boom: a = 1"}}, published.Diagnostics)

	require.NoError(t, client.conn.Notify(ctx, "textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{URI: testURI, Version: 2},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Range: rangeOf(0, 4, 0, 5), Text: "42"},
		},
	}))
	published = client.nextDiagnostics(t)
	assert.Equal(t, 2, published.Version)
	assert.Equal(t, []protocol.Diagnostic{{Message: "boom: a = 42"}}, published.Diagnostics)

	var hover protocol.Hover
	require.NoError(t, client.conn.Call(ctx, "textDocument/hover", protocol.HoverParams{TextDocumentPositionParams: cursor()}, &hover))
	assert.Equal(t, "`a : Float`", hover.Contents.Value)

	err := client.conn.Call(ctx, "textDocument/unknown", map[string]string{}, nil)
	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)

	require.NoError(t, client.conn.Notify(ctx, "textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))
	published = client.nextDiagnostics(t)
	assert.Equal(t, testURI, published.URI)
	assert.Empty(t, published.Diagnostics)

	require.NoError(t, client.conn.Call(ctx, "shutdown", nil, nil))
	require.NoError(t, client.conn.Notify(ctx, "exit", nil))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after exit")
	}
}

// blockingTrees holds every tree fetch until release is closed
type blockingTrees struct {
	started chan string
	release chan struct{}
}

func (b *blockingTrees) FileTree(ctx context.Context, path string) (*syntax.Tree, error) {
	b.started <- path
	<-b.release
	return &syntax.Tree{}, nil
}

func TestServer_IndexingDoesNotBlockRequests(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.noo")
	require.NoError(t, os.WriteFile(path, []byte("a = 1"), 0o644))

	trees := &blockingTrees{started: make(chan string, 4), release: make(chan struct{})}
	scanner, err := indexer.NewFileScanner(root, filepath.Join(t.TempDir(), "files.db"), trees, indexer.ScannerOptions{Workers: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = scanner.Close() })
	t.Cleanup(func() { close(trees.release) })

	dm := NewDocumentManager(t.TempDir())
	server := NewServer(scanner, dm, Options{})
	server.RegisterHoverProvider(&editingProvider{dm: dm})

	client, _ := startServer(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := PathToURI(path)
	require.NoError(t, client.conn.Notify(ctx, "textDocument/didSave", protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	require.NoError(t, client.conn.Notify(ctx, "workspace/didChangeWatchedFiles", protocol.DidChangeWatchedFilesParams{
		Changes: []protocol.FileEvent{{URI: uri, Type: int(protocol.FileChanged)}},
	}))

	select {
	case started := <-trees.started:
		assert.Equal(t, path, started)
	case <-ctx.Done():
		t.Fatal("indexing never started")
	}

	// the tree fetch is still held, yet the next request is answered
	params := protocol.HoverParams{TextDocumentPositionParams: protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}}
	var hover protocol.Hover
	require.NoError(t, client.conn.Call(ctx, "textDocument/hover", params, &hover))
	assert.Equal(t, "`a : Float`", hover.Contents.Value)
}
