// Package analysis provides the consumers of parsed route patterns:
// diagnostics, completion, brace matching and highlighting.
package analysis

import (
	"fmt"
	"go/token"
	"slices"

	"github.com/romshark/routelint/routepattern"
	"github.com/romshark/routelint/usage"
)

// Diagnostic is a reportable problem in a route pattern.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string

	// Span is the logical span in the pattern.
	Span routepattern.Span

	// RawSpan is the span in the host token.
	RawSpan routepattern.Span

	// HostPos is set for diagnostics about the handler rather than the pattern.
	HostPos token.Pos
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code.ID(), d.Message)
}

// Diagnose returns the tree's syntax diagnostics followed by usage
// checks, ordered by position.
func Diagnose(tree *routepattern.Tree, u usage.Context) []Diagnostic {
	if tree == nil {
		return nil
	}
	out := make([]Diagnostic, 0, len(tree.Diagnostics))
	for _, d := range tree.Diagnostics {
		out = append(out, Diagnostic{
			Severity: SevError,
			Code:     CodeOf(d),
			Message:  d.Message,
			Span:     d.Span,
			RawSpan:  tree.RawSpan(d.Span),
		})
	}

	c := checker{tree: tree, usage: u}
	c.checkConstraints()
	c.checkBindings()
	out = append(out, c.out...)

	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return a.Span.Start - b.Span.Start
	})
	return out
}

// MaxSeverity returns the highest severity in ds and false if ds is empty.
func MaxSeverity(ds []Diagnostic) (Severity, bool) {
	if len(ds) == 0 {
		return 0, false
	}
	m := SevInfo
	for _, d := range ds {
		m = max(m, d.Severity)
	}
	return m, true
}

type checker struct {
	tree  *routepattern.Tree
	usage usage.Context
	out   []Diagnostic
}

func (c *checker) report(
	span routepattern.Span, sev Severity, code Code, format string, args ...any,
) {
	c.out = append(c.out, Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
		RawSpan:  c.tree.RawSpan(span),
	})
}

func (c *checker) checkConstraints() {
	if c.tree.Options.ServeMux {
		return
	}
	for p := range c.tree.AllParameters() {
		i := 0
		for n := range p.Node.ChildNodes() {
			if n.Kind != routepattern.KindPolicyParameterPart {
				continue
			}
			c.checkConstraint(p.Policies[i], n.Span())
			i++
		}
	}
}

func (c *checker) checkConstraint(p routepattern.Policy, span routepattern.Span) {
	if p.Name == "" {
		// Reported by the parser.
		return
	}
	con, ok := LookupConstraint(p.Name)
	if !ok {
		if s := closestConstraint(p.Name); s != "" {
			c.report(span, SevWarning, UseUnknownConstraint,
				"Unknown route constraint '%s'. Did you mean '%s'?", p.Name, s)
			return
		}
		c.report(span, SevWarning, UseUnknownConstraint,
			"Unknown route constraint '%s'.", p.Name)
		return
	}
	if !c.usage.AllowsConstraint(con.Name) {
		c.report(span, SevError, UseConstraintNotAllowed,
			"The constraint '%s' cannot be used in a page route.", con.Name)
		return
	}
	if !p.HasArgs && con.MinArgs == 0 {
		return
	}
	n := len(p.Args)
	switch {
	case con.MinArgs == 0 && p.HasArgs:
		c.report(span, SevError, UseConstraintArity,
			"The constraint '%s' does not take arguments.", con.Name)
	case n < con.MinArgs || n > con.MaxArgs:
		c.report(span, SevError, UseConstraintArity,
			"The constraint '%s' takes %s, but %d %s given.",
			con.Name, arity(con), n, plural(n, "was", "were"))
	}
}

func arity(con Constraint) string {
	if con.MinArgs == con.MaxArgs {
		return fmt.Sprintf("%d %s", con.MinArgs, plural(con.MinArgs, "argument", "arguments"))
	}
	return fmt.Sprintf("%d to %d arguments", con.MinArgs, con.MaxArgs)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func (c *checker) checkBindings() {
	u := c.usage
	if !u.HasHandler {
		return
	}
	eligible := u.Eligible()
	onlyPathValues := len(eligible) > 0 && !slices.ContainsFunc(eligible,
		func(p usage.ResolvedParameter) bool { return p.Source != usage.SourcePathValue })
	if len(eligible) == 0 && !u.HasParameterObject {
		return
	}

	for p := range c.tree.AllParameters() {
		if p.Name == "" {
			continue
		}
		nameSpan := parameterNameSpan(p.Node)
		bound, ok := u.Lookup(p.Name)
		switch {
		case !ok && onlyPathValues:
			c.report(nameSpan, SevInfo, UseUnboundParameter,
				"Route parameter '%s' is never read by the handler.", p.Name)
		case !ok:
			c.report(nameSpan, SevWarning, UseUnboundParameter,
				"Route parameter '%s' is not bound to any handler parameter.", p.Name)
		case !bound.BindingEligible:
			c.report(nameSpan, SevWarning, UseNotBindable,
				"Route parameter '%s' is bound to handler parameter '%s' of type %s, "+
					"which cannot be bound from a route value.",
				p.Name, bound.Name, bound.TypeName)
		}
	}

	whole := routepattern.Span{End: len(c.tree.Text)}
	for _, r := range eligible {
		if _, ok := c.tree.Parameter(r.Name); ok {
			continue
		}
		d := Diagnostic{
			Severity: SevInfo,
			Code:     UseMissingRouteParameter,
			Message: fmt.Sprintf(
				"Handler parameter '%s' does not match any route parameter.", r.Name),
			Span:    whole,
			RawSpan: c.tree.RawSpan(whole),
			HostPos: r.Pos,
		}
		if r.Source == usage.SourcePathValue {
			d.Severity = SevWarning
			d.Code = UsePathValueNotInRoute
			d.Message = fmt.Sprintf(
				"PathValue(%q) reads a name that is not a route parameter.", r.Name)
		}
		c.out = append(c.out, d)
	}
}

// parameterNameSpan returns the span of the parameter's name or of the
// whole parameter when the name is missing.
func parameterNameSpan(n *routepattern.Node) routepattern.Span {
	if name := n.FirstChild(routepattern.KindNameParameterPart); name != nil &&
		!name.Span().Empty() {
		return name.Span()
	}
	return n.Span()
}
