// Package lsp serves route pattern diagnostics, completion, brace and
// reference highlighting and semantic tokens over the
// Language Server Protocol.
package lsp

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	// Registers the commonlog backend used by glsp.
	_ "github.com/tliron/commonlog/simple"

	"github.com/romshark/routelint/cache"
	"github.com/romshark/routelint/parser"
	"github.com/romshark/routelint/parser/model"
)

const Name = "routelint"

type Server struct {
	log     *slog.Logger
	version string
	cache   *cache.Cache
	parser  *parser.Parser
	handler protocol.Handler
	server  *server.Server

	lock     sync.Mutex
	docs     map[string]*document      // by path
	projects map[string]*model.Project // by dir
}

// New creates a server. opts are applied to the parser after the
// server's logger and cache.
func New(log *slog.Logger, version string, opts ...parser.Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		log:      log,
		version:  version,
		cache:    cache.New(log),
		docs:     map[string]*document{},
		projects: map[string]*model.Project{},
	}
	s.parser = parser.New(append([]parser.Option{
		parser.WithLogger(log),
		parser.WithCache(s.cache),
	}, opts...)...)

	s.handler = protocol.Handler{
		Initialize:                     s.initialize,
		Initialized:                    s.initialized,
		Shutdown:                       s.shutdown,
		SetTrace:                       s.setTrace,
		TextDocumentDidOpen:            s.textDocumentDidOpen,
		TextDocumentDidChange:          s.textDocumentDidChange,
		TextDocumentDidClose:           s.textDocumentDidClose,
		TextDocumentDidSave:            s.textDocumentDidSave,
		TextDocumentCompletion:         s.textDocumentCompletion,
		TextDocumentDocumentHighlight:  s.textDocumentDocumentHighlight,
		TextDocumentSemanticTokensFull: s.textDocumentSemanticTokensFull,
	}
	s.server = server.NewServer(&s.handler, Name, false)
	return s
}

// RunStdio serves over stdin and stdout until the client exits.
func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(
	_ *glsp.Context, _ *protocol.InitializeParams,
) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"{", ":", "[", "*"},
	}
	capabilities.DocumentHighlightProvider = true
	capabilities.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes:     tokenTypes,
			TokenModifiers: []string{},
		},
		Full: true,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	s.log.Info("client initialized", slog.String("version", s.version))
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	s.log.Info("shutting down",
		slog.Int("cached_routes", s.cache.Len()),
		slog.Int64("builds", s.cache.Builds()))
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(
	ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams,
) error {
	td := params.TextDocument
	s.update(ctx, td.URI, td.Version, td.Text)
	return nil
}

func (s *Server) textDocumentDidChange(
	ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams,
) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := change.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		s.log.Warn("ignoring incremental change",
			slog.String("uri", params.TextDocument.URI))
		return nil
	}
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Version, whole.Text)
	return nil
}

func (s *Server) textDocumentDidSave(
	ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams,
) error {
	path, ok := uriToPath(params.TextDocument.URI)
	if !ok {
		return nil
	}
	s.lock.Lock()
	d := s.docs[path]
	s.lock.Unlock()
	if d == nil {
		return nil
	}
	text := d.text
	if params.Text != nil {
		text = *params.Text
	}
	s.update(ctx, d.uri, d.version, text)
	return nil
}

func (s *Server) textDocumentDidClose(
	ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams,
) error {
	path, ok := uriToPath(params.TextDocument.URI)
	if !ok {
		return nil
	}
	s.lock.Lock()
	delete(s.docs, path)
	reanalyze := s.openIn(filepath.Dir(path)) > 0
	if !reanalyze {
		delete(s.projects, filepath.Dir(path))
	}
	s.lock.Unlock()
	s.cache.Forget(path)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics,
		protocol.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []protocol.Diagnostic{},
		})
	if reanalyze {
		s.analyze(ctx, filepath.Dir(path))
	}
	return nil
}

// update stores the document text and reanalyzes its package.
func (s *Server) update(
	ctx *glsp.Context, uri protocol.DocumentUri, version int32, text string,
) {
	path, ok := uriToPath(uri)
	if !ok {
		s.log.Debug("ignoring non-file document", slog.String("uri", uri))
		return
	}
	s.lock.Lock()
	s.docs[path] = newDocument(uri, path, version, text)
	s.lock.Unlock()
	s.analyze(ctx, filepath.Dir(path))
}

// openIn returns the number of open documents in dir.
// The caller must hold the lock.
func (s *Server) openIn(dir string) int {
	n := 0
	for p := range s.docs {
		if filepath.Dir(p) == dir {
			n++
		}
	}
	return n
}

// overlay returns the open documents of dir.
// The caller must hold the lock.
func (s *Server) overlay(dir string) *parser.Overlay {
	ov := &parser.Overlay{
		Files:    map[string][]byte{},
		Versions: map[string]int32{},
	}
	for p, d := range s.docs {
		if filepath.Dir(p) != dir {
			continue
		}
		ov.Files[p] = []byte(d.text)
		ov.Versions[p] = d.version
	}
	return ov
}

// analyze parses the package in dir and publishes the diagnostics
// of its open documents.
func (s *Server) analyze(ctx *glsp.Context, dir string) {
	s.lock.Lock()
	ov := s.overlay(dir)
	s.lock.Unlock()

	proj, errs := s.parser.ParseContext(context.Background(), dir, ov)
	if errs.Len() > 0 {
		s.log.Debug("package has errors",
			slog.String("dir", dir),
			slog.Int("errors", errs.Len()))
	}

	s.lock.Lock()
	if proj != nil {
		s.projects[dir] = proj
	} else {
		delete(s.projects, dir)
	}
	var docs []*document
	for p, d := range s.docs {
		if filepath.Dir(p) == dir {
			docs = append(docs, d)
		}
	}
	s.lock.Unlock()

	for _, d := range docs {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics,
			protocol.PublishDiagnosticsParams{
				URI:         d.uri,
				Diagnostics: diagnosticsOf(d, proj, &errs),
			})
	}
}

// routeAt returns the document, its project and the route whose host
// token contains the byte offset of p, with the logical index of p.
func (s *Server) routeAt(
	uri protocol.DocumentUri, p protocol.Position,
) (d *document, proj *model.Project, r *model.Route, index int, ok bool) {
	path, ok := uriToPath(uri)
	if !ok {
		return nil, nil, nil, 0, false
	}
	s.lock.Lock()
	d, proj = s.docs[path], s.projects[filepath.Dir(path)]
	s.lock.Unlock()
	if d == nil || proj == nil {
		return nil, nil, nil, 0, false
	}
	off := d.offsetAt(p)
	for _, r := range proj.Routes {
		if r.Document != path || r.Tree == nil {
			continue
		}
		if i, ok := r.Text.IndexAtRaw(off); ok {
			return d, proj, r, i, true
		}
	}
	return d, proj, nil, 0, false
}

func boolPtr(b bool) *bool { return &b }

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
