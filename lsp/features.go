package lsp

import (
	"fmt"
	"go/token"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/parser"
	"github.com/romshark/routelint/parser/model"
	"github.com/romshark/routelint/routepattern"
)

// tokenTypes is the semantic token legend indexed by analysis.Class-1.
var tokenTypes = []string{
	"string",    // literal
	"operator",  // delimiter
	"parameter", // parameter name
	"function",  // policy
	"variable",  // default value
	"macro",     // replacement
	"regexp",    // escape
}

func severityOf(s analysis.Severity) protocol.DiagnosticSeverity {
	switch s {
	case analysis.SevError:
		return protocol.DiagnosticSeverityError
	case analysis.SevWarning:
		return protocol.DiagnosticSeverityWarning
	}
	return protocol.DiagnosticSeverityInformation
}

// diagnosticsOf converts the route diagnostics and package errors
// located in d. proj may be nil.
func diagnosticsOf(d *document, proj *model.Project, errs *parser.Errors) []protocol.Diagnostic {
	source := Name
	out := []protocol.Diagnostic{}

	base := filepath.Base(d.path)
	for i := range errs.Len() {
		pos, err := errs.Entry(i)
		if pos.Filename != base {
			continue
		}
		sev := protocol.DiagnosticSeverityError
		out = append(out, protocol.Diagnostic{
			Range:    d.rangeAtLine(pos.Line, pos.Column),
			Severity: &sev,
			Source:   &source,
			Message:  err.Error(),
		})
	}

	if proj == nil {
		return out
	}
	for _, r := range proj.Routes {
		if r.Document != d.path {
			continue
		}
		for _, diag := range r.Diagnostics {
			sev := severityOf(diag.Severity)
			rng := d.rangeOf(diag.RawSpan)
			if p, ok := hostOffset(proj, d, diag.HostPos); ok {
				rng = d.identRange(p)
			}
			out = append(out, protocol.Diagnostic{
				Range:    rng,
				Severity: &sev,
				Code:     &protocol.IntegerOrString{Value: diag.Code.ID()},
				Source:   &source,
				Message:  diag.Message,
			})
		}
	}
	return out
}

// hostOffset returns the byte offset of pos if it lies in d.
func hostOffset(proj *model.Project, d *document, pos token.Pos) (int, bool) {
	if !pos.IsValid() {
		return 0, false
	}
	p := proj.Fset.Position(pos)
	if p.Filename != d.path || p.Offset > len(d.text) {
		return 0, false
	}
	return p.Offset, true
}

func (s *Server) textDocumentCompletion(
	_ *glsp.Context, params *protocol.CompletionParams,
) (any, error) {
	d, _, r, i, ok := s.routeAt(params.TextDocument.URI, params.Position)
	if !ok || r == nil {
		return nil, nil
	}
	completions := analysis.Complete(r.Tree, r.Usage, i)
	if len(completions) == 0 {
		return nil, nil
	}
	items := make([]protocol.CompletionItem, 0, len(completions))
	for n, c := range completions {
		kind := completionKindOf(c.Kind)
		sortText := sortKey(n)
		item := protocol.CompletionItem{
			Label:    c.Label,
			Kind:     &kind,
			SortText: &sortText,
			TextEdit: protocol.TextEdit{
				Range:   d.rangeOf(r.Tree.RawSpan(c.Replace)),
				NewText: c.Label,
			},
		}
		if c.Detail != "" {
			detail := c.Detail
			item.Detail = &detail
		}
		items = append(items, item)
	}
	return items, nil
}

// sortKey preserves the ranking of completion items.
func sortKey(n int) string { return fmt.Sprintf("%04d", n) }

func completionKindOf(k analysis.CompletionKind) protocol.CompletionItemKind {
	switch k {
	case analysis.CompleteConstraint:
		return protocol.CompletionItemKindFunction
	case analysis.CompleteParameter:
		return protocol.CompletionItemKindVariable
	}
	return protocol.CompletionItemKindConstant
}

func (s *Server) textDocumentDocumentHighlight(
	_ *glsp.Context, params *protocol.DocumentHighlightParams,
) ([]protocol.DocumentHighlight, error) {
	d, proj, r, i, ok := s.routeAt(params.TextDocument.URI, params.Position)
	if !ok || r == nil {
		return nil, nil
	}
	text := protocol.DocumentHighlightKindText
	read := protocol.DocumentHighlightKindRead
	write := protocol.DocumentHighlightKindWrite

	var out []protocol.DocumentHighlight
	for _, b := range analysis.MatchBraces(r.Tree, i) {
		out = append(out,
			protocol.DocumentHighlight{Range: d.rangeOf(r.Tree.RawSpan(b.Open)), Kind: &text},
			protocol.DocumentHighlight{Range: d.rangeOf(r.Tree.RawSpan(b.Close)), Kind: &text},
		)
	}
	for _, ref := range analysis.References(r.Tree, r.Usage, i) {
		switch ref.Kind {
		case analysis.RefRouteParameter:
			out = append(out, protocol.DocumentHighlight{
				Range: d.rangeOf(r.Tree.RawSpan(ref.Span)),
				Kind:  &write,
			})
		case analysis.RefHandlerParameter:
			if off, ok := hostOffset(proj, d, ref.HostPos); ok {
				out = append(out, protocol.DocumentHighlight{
					Range: d.identRange(off),
					Kind:  &read,
				})
			}
		}
	}
	return out, nil
}

func (s *Server) textDocumentSemanticTokensFull(
	_ *glsp.Context, params *protocol.SemanticTokensParams,
) (*protocol.SemanticTokens, error) {
	path, ok := uriToPath(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	s.lock.Lock()
	d, proj := s.docs[path], s.projects[filepath.Dir(path)]
	s.lock.Unlock()
	if d == nil || proj == nil {
		return &protocol.SemanticTokens{Data: []protocol.UInteger{}}, nil
	}

	var toks []semanticToken
	for _, r := range proj.Routes {
		if r.Document != path || r.Tree == nil {
			continue
		}
		for _, c := range analysis.Classify(r.Tree) {
			raw := r.Tree.RawSpan(c.Span)
			if raw.Empty() {
				continue
			}
			toks = append(toks, semanticToken{Raw: raw, Type: int(c.Class) - 1})
		}
	}
	return &protocol.SemanticTokens{Data: encodeTokens(d, toks)}, nil
}

type semanticToken struct {
	Raw  routepattern.Span
	Type int
}

// encodeTokens encodes toks relative to each other. Tokens spanning
// lines are dropped.
func encodeTokens(d *document, toks []semanticToken) []protocol.UInteger {
	slices.SortStableFunc(toks, func(a, b semanticToken) int {
		return a.Raw.Start - b.Raw.Start
	})
	data := make([]protocol.UInteger, 0, len(toks)*5)
	var prev protocol.Position
	for _, t := range toks {
		if t.Raw.End > len(d.text) ||
			strings.Contains(d.text[t.Raw.Start:t.Raw.End], "\n") {
			continue
		}
		start, end := d.positionAt(t.Raw.Start), d.positionAt(t.Raw.End)
		deltaLine := start.Line - prev.Line
		deltaStart := start.Character
		if deltaLine == 0 {
			deltaStart -= prev.Character
		}
		data = append(data,
			deltaLine,
			deltaStart,
			end.Character-start.Character,
			safeUint32(t.Type),
			0,
		)
		prev = start
	}
	return data
}
