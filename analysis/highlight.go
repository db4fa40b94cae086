package analysis

import (
	"go/token"
	"strings"

	"github.com/romshark/routelint/routepattern"
	"github.com/romshark/routelint/usage"
)

// Class is the highlighting class of a span.
type Class uint8

const (
	_ Class = iota
	ClassLiteral
	ClassDelimiter
	ClassParameterName
	ClassPolicy
	ClassDefaultValue
	ClassReplacement
	ClassEscape
)

func (c Class) String() string {
	switch c {
	case ClassLiteral:
		return "literal"
	case ClassDelimiter:
		return "delimiter"
	case ClassParameterName:
		return "parameter"
	case ClassPolicy:
		return "policy"
	case ClassDefaultValue:
		return "default"
	case ClassReplacement:
		return "replacement"
	case ClassEscape:
		return "escape"
	}
	return "unknown"
}

// ClassifiedSpan is a classified logical span.
type ClassifiedSpan struct {
	Span  routepattern.Span
	Class Class
}

// Classify classifies every present token of the tree in source order.
func Classify(tree *routepattern.Tree) []ClassifiedSpan {
	if tree == nil {
		return nil
	}
	var out []ClassifiedSpan
	var visit func(n *routepattern.Node)
	visit = func(n *routepattern.Node) {
		for _, c := range n.Children() {
			if c.IsNode() {
				visit(c.Node())
				continue
			}
			t := c.Token()
			if t.IsMissing || len(t.Chars) == 0 {
				continue
			}
			switch t.Kind {
			case routepattern.TokenLiteral:
				if n.Kind == routepattern.KindOptionalSeparator {
					out = append(out, ClassifiedSpan{t.Span(), ClassDelimiter})
					continue
				}
				out = appendEscaped(out, t, ClassLiteral, tree.Options.SupportTokenReplacement)
			case routepattern.TokenParameterName:
				out = append(out, ClassifiedSpan{t.Span(), ClassParameterName})
			case routepattern.TokenPolicyFragment:
				out = append(out, ClassifiedSpan{t.Span(), ClassPolicy})
			case routepattern.TokenDefaultValue:
				out = append(out, ClassifiedSpan{t.Span(), ClassDefaultValue})
			case routepattern.TokenReplacementText:
				out = appendEscaped(out, t, ClassReplacement, true)
			default:
				out = append(out, ClassifiedSpan{t.Span(), ClassDelimiter})
			}
		}
	}
	visit(tree.Root)
	return out
}

// appendEscaped splits t into runs of class and doubled-delimiter escapes.
func appendEscaped(
	out []ClassifiedSpan, t routepattern.Token, class Class, brackets bool,
) []ClassifiedSpan {
	chars := t.Chars
	start := chars[0].Span.Start
	for i := 0; i < len(chars); i++ {
		if i+1 >= len(chars) || chars[i].Value != chars[i+1].Value ||
			!isDoubled(chars[i].Value, brackets) {
			continue
		}
		if s := chars[i].Span.Start; s > start {
			out = append(out, ClassifiedSpan{routepattern.Span{Start: start, End: s}, class})
		}
		esc := routepattern.Span{Start: chars[i].Span.Start, End: chars[i+1].Span.End}
		out = append(out, ClassifiedSpan{esc, ClassEscape})
		start = esc.End
		i++
	}
	if end := chars[len(chars)-1].Span.End; end > start {
		out = append(out, ClassifiedSpan{routepattern.Span{Start: start, End: end}, class})
	}
	return out
}

func isDoubled(r rune, brackets bool) bool {
	switch r {
	case '{', '}':
		return true
	case '[', ']':
		return brackets
	}
	return false
}

// ReferenceKind tells a route parameter reference from a handler one.
type ReferenceKind uint8

const (
	_ ReferenceKind = iota
	RefRouteParameter
	RefHandlerParameter
)

// Reference is an occurrence of a parameter name.
// Span is set for RefRouteParameter, HostPos for RefHandlerParameter.
type Reference struct {
	Kind    ReferenceKind
	Span    routepattern.Span
	HostPos token.Pos
}

// References returns all occurrences of the parameter name at pos:
// every route parameter of the same name and the handler parameter
// it binds to.
func References(tree *routepattern.Tree, u usage.Context, pos int) []Reference {
	if tree == nil {
		return nil
	}
	name, ok := nameAt(tree, pos)
	if !ok {
		return nil
	}
	var out []Reference
	for t := range tree.Root.Tokens() {
		if t.Kind == routepattern.TokenParameterName && !t.IsMissing &&
			strings.EqualFold(t.Value(), name) {
			out = append(out, Reference{Kind: RefRouteParameter, Span: t.Span()})
		}
	}
	if r, ok := u.Lookup(name); ok && r.Pos.IsValid() {
		out = append(out, Reference{Kind: RefHandlerParameter, HostPos: r.Pos})
	}
	return out
}

func nameAt(tree *routepattern.Tree, pos int) (string, bool) {
	for t := range tree.Root.Tokens() {
		if t.Kind != routepattern.TokenParameterName || t.IsMissing {
			continue
		}
		if s := t.Span(); s.Start <= pos && pos <= s.End {
			return t.Value(), true
		}
	}
	return "", false
}
