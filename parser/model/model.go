package model

import (
	"fmt"
	"go/ast"
	"go/token"
	"path/filepath"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/routepattern"
	"github.com/romshark/routelint/usage"
)

type Project struct {
	Fset *token.FileSet

	// Package is the import path of the analyzed package.
	Package string
	Name    string
	Dir     string

	// Files are the absolute paths of the package's Go files.
	Files []string

	// Routes are ordered by document and offset.
	Routes []*Route
}

type Route struct {
	// Expr is the host token: a string expression or a route comment.
	Expr ast.Node

	// Document is the absolute path of the file.
	Document string

	// Offset is the byte offset of Expr in Document.
	Offset int

	// Text is the decoded pattern with raw spans as byte offsets
	// in Document. A method prefix is not part of Text.
	Text     routepattern.Text
	Location usage.Location

	Method  string
	Handler *Handler // Nullable.

	Usage       usage.Context
	Tree        *routepattern.Tree
	Diagnostics []analysis.Diagnostic
}

// Pattern returns the analyzed pattern text.
func (r *Route) Pattern() string { return r.Text.String() }

type Handler struct {
	Expr ast.Node // Nullable.
	Name string

	Facts *usage.HostFacts
}

// Position returns the position of a raw byte offset in the
// route's document.
func (p *Project) Position(r *Route, offset int) token.Position {
	f := p.Fset.File(r.Expr.Pos())
	if f == nil || offset < 0 || offset > f.Size() {
		return p.Fset.Position(r.Expr.Pos())
	}
	return f.Position(f.Pos(offset))
}

// Count returns the number of route diagnostics at or above threshold.
func (p *Project) Count(threshold analysis.Severity) int {
	n := 0
	for _, r := range p.Routes {
		for _, d := range r.Diagnostics {
			if d.Severity >= threshold {
				n++
			}
		}
	}
	return n
}

// Report flattens the project into an analysis report.
func (p *Project) Report() *analysis.Report {
	rep := analysis.NewReport(p.Package)
	for _, r := range p.Routes {
		rr := analysis.RouteReport{
			Pos:     shortPos(p.Position(r, r.Offset)),
			Pattern: r.Pattern(),
			Usage:   r.Usage.Type.String(),
			Method:  r.Method,
		}
		if names := r.Tree.ParameterNames(); len(names) > 0 {
			rr.Parameters = names
		}
		for _, d := range r.Diagnostics {
			pos := p.Position(r, d.RawSpan.Start)
			if d.HostPos.IsValid() {
				pos = p.Fset.Position(d.HostPos)
			}
			rr.Diagnostics = append(rr.Diagnostics, analysis.ReportDiagnostic{
				Code:     d.Code.ID(),
				Severity: d.Severity.String(),
				Message:  d.Message,
				Pos:      shortPos(pos),
				Start:    d.RawSpan.Start - r.Offset,
				End:      d.RawSpan.End - r.Offset,
			})
		}
		rep.Routes = append(rep.Routes, rr)
	}
	return rep
}

func shortPos(p token.Position) string {
	return fmt.Sprintf("%s:%d:%d", filepath.Base(p.Filename), p.Line, p.Column)
}
