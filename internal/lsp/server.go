package lsp

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noolang/noolang-lsp/internal/indexer"
	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
	"github.com/noolang/noolang-lsp/internal/textsync"
	"github.com/sourcegraph/jsonrpc2"
)

const (
	ServerName    = "noolang-lsp"
	ServerVersion = "0.1.0"
)

// Options configures a Server
type Options struct {
	// DiagnosticsDelay is how long after the last change diagnostics are refreshed
	DiagnosticsDelay time.Duration
	// Verbose enables debug logging
	Verbose bool
}

// Server represents the LSP server
type Server struct {
	rootPath                 string
	conn                     *jsonrpc2.Conn
	connMu                   sync.RWMutex
	options                  Options
	completionProviders      []CompletionProvider
	definitionProviders      []GotoDefinitionProvider
	referencesProviders      []ReferencesProvider
	hoverProviders           []HoverProvider
	documentSymbolProviders  []DocumentSymbolProvider
	workspaceSymbolProviders []WorkspaceSymbolProvider
	codeLensProviders        []CodeLensProvider
	diagnosticsProviders     []DiagnosticsProvider
	indexers                 map[string]indexer.Indexer
	indexerMu                sync.RWMutex
	documentManager          *DocumentManager
	diagnosticTimers         map[string]*time.Timer
	diagnosticMu             sync.Mutex
	FileScanner              *indexer.FileScanner
	exit                     chan struct{}
	exitOnce                 sync.Once
}

// NewServer creates a new LSP server. filescanner may be nil when workspace
// indexing is disabled.
func NewServer(filescanner *indexer.FileScanner, documentManager *DocumentManager, options Options) *Server {
	if options.DiagnosticsDelay <= 0 {
		options.DiagnosticsDelay = 300 * time.Millisecond
	}

	return &Server{
		options:          options,
		indexers:         make(map[string]indexer.Indexer),
		documentManager:  documentManager,
		diagnosticTimers: make(map[string]*time.Timer),
		FileScanner:      filescanner,
		exit:             make(chan struct{}),
	}
}

// RegisterCompletionProvider registers a completion provider with the server
func (s *Server) RegisterCompletionProvider(provider CompletionProvider) {
	s.completionProviders = append(s.completionProviders, provider)
}

// RegisterDefinitionProvider registers a definition provider with the server
func (s *Server) RegisterDefinitionProvider(provider GotoDefinitionProvider) {
	s.definitionProviders = append(s.definitionProviders, provider)
}

// RegisterReferencesProvider registers a references provider with the server
func (s *Server) RegisterReferencesProvider(provider ReferencesProvider) {
	s.referencesProviders = append(s.referencesProviders, provider)
}

// RegisterHoverProvider registers a hover provider with the server
func (s *Server) RegisterHoverProvider(provider HoverProvider) {
	s.hoverProviders = append(s.hoverProviders, provider)
}

// RegisterDocumentSymbolProvider registers a document symbol provider with the server
func (s *Server) RegisterDocumentSymbolProvider(provider DocumentSymbolProvider) {
	s.documentSymbolProviders = append(s.documentSymbolProviders, provider)
}

// RegisterWorkspaceSymbolProvider registers a workspace symbol provider with the server
func (s *Server) RegisterWorkspaceSymbolProvider(provider WorkspaceSymbolProvider) {
	s.workspaceSymbolProviders = append(s.workspaceSymbolProviders, provider)
}

// RegisterCodeLensProvider registers a code lens provider with the server
func (s *Server) RegisterCodeLensProvider(provider CodeLensProvider) {
	s.codeLensProviders = append(s.codeLensProviders, provider)
}

// RegisterDiagnosticsProvider registers a diagnostics provider with the server
func (s *Server) RegisterDiagnosticsProvider(provider DiagnosticsProvider) {
	s.diagnosticsProviders = append(s.diagnosticsProviders, provider)
}

// RegisterIndexer adds an indexer to the registry. The file scanner feeds it
// when workspace indexing is enabled.
func (s *Server) RegisterIndexer(indexer indexer.Indexer) {
	s.indexerMu.Lock()
	defer s.indexerMu.Unlock()
	s.indexers[indexer.ID()] = indexer

	if s.FileScanner != nil {
		s.FileScanner.AddIndexer(indexer)
	}
}

// GetIndexer retrieves an indexer by ID
func (s *Server) GetIndexer(id string) (indexer.Indexer, bool) {
	s.indexerMu.RLock()
	defer s.indexerMu.RUnlock()
	indexer, ok := s.indexers[id]
	return indexer, ok
}

func (s *Server) debugf(format string, args ...interface{}) {
	if s.options.Verbose {
		log.Printf(format, args...)
	}
}

// indexAll builds or updates the workspace index
// If forceReindex is true, it will clear the existing index before rebuilding
func (s *Server) indexAll(ctx context.Context, forceReindex bool) error {
	if s.FileScanner == nil {
		return nil
	}

	startTime := time.Now()
	conn := s.client()

	if conn != nil {
		if err := conn.Notify(ctx, "noolang/indexingStarted", map[string]interface{}{
			"message": "Indexing started",
		}); err != nil {
			return err
		}
	}

	if forceReindex {
		if err := s.FileScanner.ClearHashes(); err != nil {
			return err
		}
	}

	if err := s.FileScanner.IndexAll(ctx); err != nil {
		return err
	}

	elapsedTime := time.Since(startTime)

	if conn != nil {
		if err := conn.Notify(ctx, "noolang/indexingCompleted", map[string]interface{}{
			"message":       "Indexing completed",
			"timeInSeconds": elapsedTime.Seconds(),
		}); err != nil {
			return err
		}
	}

	return nil
}

// CloseAll closes all registered indexers and resources
func (s *Server) CloseAll() error {
	s.diagnosticMu.Lock()
	for uri, timer := range s.diagnosticTimers {
		timer.Stop()
		delete(s.diagnosticTimers, uri)
	}
	s.diagnosticMu.Unlock()

	if s.documentManager != nil {
		s.documentManager.Close()
	}

	if s.FileScanner != nil {
		if err := s.FileScanner.Close(); err != nil {
			log.Printf("Error closing file scanner: %v", err)
		}
	}

	s.indexerMu.RLock()
	defer s.indexerMu.RUnlock()

	for _, indexer := range s.indexers {
		if err := indexer.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) Start(in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewBufferedStream(rwc{in, out}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, s)
	s.setClient(conn)

	// the client may keep the streams open after exit
	select {
	case <-conn.DisconnectNotify():
	case <-s.exit:
	}
	return nil
}

// setClient records the connection notifications are sent on. Messages can
// arrive before NewConn returns, so Handle records it as well.
func (s *Server) setClient(conn *jsonrpc2.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conn = conn
}

func (s *Server) client() *jsonrpc2.Conn {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn
}

// rwc combines a reader and writer into a single ReadWriteCloser
type rwc struct {
	io.Reader
	io.Writer
}

// Close implements io.Closer
func (rwc) Close() error {
	return nil
}

// concurrentMethods are requests that only read documents. They run on their
// own goroutine so a slow tool invocation does not hold back document sync.
var concurrentMethods = map[string]bool{
	"textDocument/hover":          true,
	"textDocument/definition":     true,
	"textDocument/references":     true,
	"textDocument/documentSymbol": true,
	"textDocument/completion":     true,
	"textDocument/codeLens":       true,
	"workspace/symbol":            true,
}

// Handle implements jsonrpc2.Handler. Notifications and lifecycle requests are
// handled in arrival order.
func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if s.client() == nil {
		s.setClient(conn)
	}

	handler := jsonrpc2.HandlerWithError(s.handle)
	if !req.Notif && concurrentMethods[req.Method] {
		go handler.Handle(ctx, conn, req)
		return
	}
	handler.Handle(ctx, conn, req)
}

func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeParseError, Message: err.Error()}
	}
	return nil
}

// handle processes incoming JSON-RPC requests and notifications
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	if req.Method == "exit" {
		log.Println("Received exit notification, exiting")
		s.exitOnce.Do(func() { close(s.exit) })
		if err := conn.Close(); err != nil {
			log.Printf("error closing connection: %v", err)
		}
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		var params protocol.InitializeParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.initialize(ctx, &params), nil

	case "initialized":
		go func() {
			if err := s.indexAll(context.Background(), false); err != nil {
				log.Printf("Error indexing: %v", err)
			}
		}()
		return nil, nil

	case "textDocument/didOpen":
		var params protocol.DidOpenTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		s.documentManager.OpenDocument(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
		go s.publishDiagnostics(context.Background(), params.TextDocument.URI)
		return nil, nil

	case "textDocument/didChange":
		var params protocol.DidChangeTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		changes := textsync.FromEvents(params.ContentChanges)
		if err := s.documentManager.ApplyChanges(params.TextDocument.URI, params.TextDocument.Version, changes); err != nil {
			log.Printf("Error applying changes to %s: %v", params.TextDocument.URI, err)
		}
		s.scheduleDiagnostics(params.TextDocument.URI)
		return nil, nil

	case "textDocument/didSave":
		var params protocol.DidSaveTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		s.didSave(params.TextDocument.URI, params.Text)
		return nil, nil

	case "textDocument/didClose":
		var params protocol.DidCloseTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		s.documentManager.CloseDocument(params.TextDocument.URI)
		s.clearDiagnostics(ctx, params.TextDocument.URI)
		return nil, nil

	case "textDocument/completion":
		var params protocol.CompletionParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.completion(ctx, &params), nil

	case "textDocument/definition":
		var params protocol.DefinitionParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.definition(ctx, &params), nil

	case "textDocument/references":
		var params protocol.ReferenceParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.references(ctx, &params), nil

	case "textDocument/hover":
		var params protocol.HoverParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.hover(ctx, &params), nil

	case "textDocument/documentSymbol":
		var params protocol.DocumentSymbolParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.documentSymbols(ctx, &params), nil

	case "workspace/symbol":
		var params protocol.WorkspaceSymbolParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.workspaceSymbols(ctx, &params), nil

	case "textDocument/codeLens":
		var params protocol.CodeLensParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.codeLens(ctx, &params), nil

	case "noolang/forceReindex":
		if s.FileScanner == nil {
			return protocol.NewLspError("Workspace indexing is disabled", "indexing_disabled"), nil
		}
		go func() {
			if err := s.indexAll(context.Background(), true); err != nil {
				log.Printf("Error force reindexing: %v", err)
			}
		}()
		return map[string]interface{}{
			"message": "Force reindexing started",
		}, nil

	case "shutdown":
		if err := s.CloseAll(); err != nil {
			log.Printf("Error closing indexers: %v", err)
		}

		log.Println("Received shutdown request, waiting for exit notification")
		return nil, nil

	case "workspace/didChangeWatchedFiles":
		var params protocol.DidChangeWatchedFilesParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		// indexing runs the tool once per file, so it must not hold up the read loop
		go s.watchedFilesChanged(context.Background(), &params)
		return nil, nil

	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "Method not implemented: " + req.Method}
	}
}

// initialize handles the LSP initialize request
func (s *Server) initialize(ctx context.Context, params *protocol.InitializeParams) interface{} {
	s.extractRootPath(params)

	triggerChars := s.collectTriggerCharacters()

	return map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{
				"openClose": true,
				"change":    protocol.SyncIncremental,
				"save": map[string]interface{}{
					"includeText": true,
				},
			},
			"completionProvider": map[string]interface{}{
				"triggerCharacters": triggerChars,
			},
			"hoverProvider":           len(s.hoverProviders) > 0,
			"definitionProvider":      len(s.definitionProviders) > 0,
			"referencesProvider":      len(s.referencesProviders) > 0,
			"documentSymbolProvider":  len(s.documentSymbolProviders) > 0,
			"workspaceSymbolProvider": len(s.workspaceSymbolProviders) > 0,
			"codeLensProvider": map[string]interface{}{
				"resolveProvider": false,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": ServerVersion,
		},
	}
}

func (s *Server) didSave(uri string, text *string) {
	drift, err := s.documentManager.SaveDocument(uri, text)
	if err != nil {
		log.Printf("Error saving document: %v", err)
	}
	if drift != "" {
		log.Printf("Buffer for %s did not match the saved file, reloaded from disk:\n%s", uri, drift)
	}

	if s.FileScanner != nil {
		go func() {
			if err := s.FileScanner.IndexFiles(context.Background(), []string{URIToPath(uri)}); err != nil {
				log.Printf("Error indexing saved file: %v", err)
			}
		}()
	}

	s.cancelDiagnostics(uri)
	go s.publishDiagnostics(context.Background(), uri)
}

func (s *Server) watchedFilesChanged(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) {
	if s.FileScanner == nil {
		return
	}

	var changed, deleted []string
	for _, change := range params.Changes {
		switch protocol.FileChangeType(change.Type) {
		case protocol.FileCreated, protocol.FileChanged:
			changed = append(changed, URIToPath(change.URI))
		case protocol.FileDeleted:
			deleted = append(deleted, URIToPath(change.URI))
		}
	}

	if len(changed) > 0 {
		if err := s.FileScanner.IndexFiles(ctx, changed); err != nil {
			log.Printf("Error indexing changed files: %v", err)
		}
	}
	if len(deleted) > 0 {
		if err := s.FileScanner.RemoveFiles(ctx, deleted); err != nil {
			log.Printf("Error removing deleted files: %v", err)
		}
	}
}

// extractRootPath extracts the root path from the initialize params
func (s *Server) extractRootPath(params *protocol.InitializeParams) {
	if params.RootPath != "" {
		s.rootPath = params.RootPath
		return
	}

	if params.RootURI != "" {
		s.rootPath = URIToPath(params.RootURI)
		return
	}

	if len(params.WorkspaceFolders) > 0 {
		s.rootPath = URIToPath(params.WorkspaceFolders[0].URI)
		return
	}

	s.rootPath, _ = os.Getwd()
}

// collectTriggerCharacters collects all trigger characters from registered providers
func (s *Server) collectTriggerCharacters() []string {
	triggerCharsMap := make(map[string]bool)

	for _, provider := range s.completionProviders {
		for _, char := range provider.GetTriggerCharacters() {
			triggerCharsMap[char] = true
		}
	}

	triggerChars := make([]string, 0, len(triggerCharsMap))
	for char := range triggerCharsMap {
		triggerChars = append(triggerChars, char)
	}
	sort.Strings(triggerChars)

	return triggerChars
}

// queryState is the document state a query ran against
type queryState struct {
	path     string
	content  []byte
	version  int
	revision uint64
	open     bool
}

// prepareQuery resolves the file handed to the tool for uri and the content
// the query runs against
func (s *Server) prepareQuery(uri string) (queryState, error) {
	doc, ok := s.documentManager.GetDocument(uri)
	if !ok {
		path := URIToPath(uri)
		content, err := os.ReadFile(path)
		if err != nil {
			return queryState{path: path}, nil
		}
		return queryState{path: path, content: content}, nil
	}

	path, err := s.documentManager.SnapshotPath(uri)
	if err != nil {
		return queryState{}, err
	}

	return queryState{
		path:     path,
		content:  []byte(doc.Text),
		version:  doc.Version,
		revision: doc.Revision,
		open:     true,
	}, nil
}

// isStale reports whether the document changed after state was taken
func (s *Server) isStale(uri string, state queryState) bool {
	if !state.open {
		return false
	}
	revision, ok := s.documentManager.Revision(uri)
	if !ok || revision != state.revision {
		s.debugf("Dropping stale result for %s at revision %d", uri, state.revision)
		return true
	}
	return false
}

// Root returns the workspace root resolved during initialize
func (s *Server) Root() string {
	return strings.TrimSuffix(s.rootPath, string(os.PathSeparator))
}

func (s *Server) DocumentManager() *DocumentManager {
	return s.documentManager
}
