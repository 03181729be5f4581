package lsp

import (
	"context"
	"log"
	"time"

	"github.com/noolang/noolang-lsp/internal/lsp/protocol"
)

// scheduleDiagnostics refreshes diagnostics for uri once no change arrived for
// the configured delay
func (s *Server) scheduleDiagnostics(uri string) {
	if len(s.diagnosticsProviders) == 0 {
		return
	}

	s.diagnosticMu.Lock()
	defer s.diagnosticMu.Unlock()

	if timer, ok := s.diagnosticTimers[uri]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.options.DiagnosticsDelay, func() {
		s.diagnosticMu.Lock()
		if s.diagnosticTimers[uri] == timer {
			delete(s.diagnosticTimers, uri)
		}
		s.diagnosticMu.Unlock()

		s.publishDiagnostics(context.Background(), uri)
	})
	s.diagnosticTimers[uri] = timer
}

func (s *Server) cancelDiagnostics(uri string) {
	s.diagnosticMu.Lock()
	defer s.diagnosticMu.Unlock()

	if timer, ok := s.diagnosticTimers[uri]; ok {
		timer.Stop()
		delete(s.diagnosticTimers, uri)
	}
}

// collectDiagnostics runs every provider against the document. It returns
// false when the document changed while the providers ran.
func (s *Server) collectDiagnostics(ctx context.Context, uri string) ([]protocol.Diagnostic, queryState, bool) {
	state, err := s.prepareQuery(uri)
	if err != nil {
		log.Printf("Error preparing diagnostics for %s: %v", uri, err)
		return nil, state, false
	}

	diagnostics := []protocol.Diagnostic{}
	for _, provider := range s.diagnosticsProviders {
		providerDiagnostics, err := provider.GetDiagnostics(ctx, uri, state.path, state.content)
		if err != nil {
			log.Printf("Error getting diagnostics for %s: %v", uri, err)
			continue
		}
		diagnostics = append(diagnostics, providerDiagnostics...)
	}

	if s.isStale(uri, state) {
		return nil, state, false
	}
	return diagnostics, state, true
}

// publishDiagnostics sends the current diagnostics of an open document
func (s *Server) publishDiagnostics(ctx context.Context, uri string) {
	conn := s.client()
	if len(s.diagnosticsProviders) == 0 || conn == nil {
		return
	}
	if _, ok := s.documentManager.GetDocument(uri); !ok {
		return
	}

	diagnostics, state, ok := s.collectDiagnostics(ctx, uri)
	if !ok {
		return
	}

	if err := conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     state.version,
		Diagnostics: diagnostics,
	}); err != nil {
		log.Printf("Error publishing diagnostics: %v", err)
	}
}

// clearDiagnostics removes the diagnostics of a closed document
func (s *Server) clearDiagnostics(ctx context.Context, uri string) {
	s.cancelDiagnostics(uri)

	conn := s.client()
	if len(s.diagnosticsProviders) == 0 || conn == nil {
		return
	}

	if err := conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	}); err != nil {
		log.Printf("Error clearing diagnostics: %v", err)
	}
}
