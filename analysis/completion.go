package analysis

import (
	"slices"
	"strings"

	"github.com/romshark/routelint/routepattern"
	"github.com/romshark/routelint/usage"
)

// CompletionKind is the kind of a completion item.
type CompletionKind uint8

const (
	_ CompletionKind = iota
	CompleteConstraint
	CompleteParameter
	CompleteReplacement
)

func (k CompletionKind) String() string {
	switch k {
	case CompleteConstraint:
		return "constraint"
	case CompleteParameter:
		return "parameter"
	case CompleteReplacement:
		return "replacement"
	}
	return "unknown"
}

// CompletionItem is a single completion proposal.
type CompletionItem struct {
	Label  string
	Detail string
	Kind   CompletionKind

	// Replace is the logical span the label replaces.
	Replace routepattern.Span
}

// ReplacementTokens are the names allowed inside [...].
var ReplacementTokens = []string{"controller", "action", "area"}

// Complete returns completion items for the logical position pos.
func Complete(tree *routepattern.Tree, u usage.Context, pos int) []CompletionItem {
	if tree == nil || pos < 0 || pos > len(tree.Text) {
		return nil
	}
	var toks []routepattern.Token
	for t := range tree.Root.Tokens() {
		if t.IsMissing || t.Kind == routepattern.TokenEndOfFile {
			continue
		}
		toks = append(toks, t)
	}
	i := slices.IndexFunc(toks, func(t routepattern.Token) bool {
		s := t.Span()
		return s.Start < pos && pos <= s.End
	})
	if i < 0 {
		return nil
	}
	at := toks[i]
	var prev routepattern.Token
	if i > 0 {
		prev = toks[i-1]
	}

	switch at.Kind {
	case routepattern.TokenColon:
		return completeConstraints(u, "", routepattern.Span{Start: pos, End: pos})
	case routepattern.TokenPolicyFragment:
		if prev.Kind != routepattern.TokenColon {
			return nil
		}
		return completeConstraints(u, prefixOf(at, pos), at.Span())
	case routepattern.TokenOpenBrace, routepattern.TokenAsterisk:
		return completeParameters(tree, u, "", routepattern.Span{Start: pos, End: pos})
	case routepattern.TokenParameterName:
		return completeParameters(tree, u, prefixOf(at, pos), at.Span())
	case routepattern.TokenOpenBracket:
		return completeReplacements("", routepattern.Span{Start: pos, End: pos})
	case routepattern.TokenReplacementText:
		return completeReplacements(prefixOf(at, pos), at.Span())
	}
	return nil
}

// prefixOf returns the token text before pos.
func prefixOf(t routepattern.Token, pos int) string {
	var b strings.Builder
	for _, c := range t.Chars {
		if c.Span.Start >= pos {
			break
		}
		b.WriteRune(c.Value)
	}
	return b.String()
}

func completeConstraints(u usage.Context, prefix string, replace routepattern.Span) []CompletionItem {
	var names []string
	for _, c := range Constraints {
		if u.AllowsConstraint(c.Name) {
			names = append(names, c.Name)
		}
	}
	var out []CompletionItem
	for _, n := range rankNames(prefix, names) {
		c, _ := LookupConstraint(n)
		out = append(out, CompletionItem{
			Label:   n,
			Detail:  c.Description,
			Kind:    CompleteConstraint,
			Replace: replace,
		})
	}
	return out
}

func completeParameters(
	tree *routepattern.Tree, u usage.Context, prefix string, replace routepattern.Span,
) []CompletionItem {
	var (
		names  []string
		detail = map[string]string{}
	)
	for _, p := range u.Eligible() {
		if _, used := tree.Parameter(p.Name); used && !strings.EqualFold(p.Name, prefix) {
			continue
		}
		if slices.Contains(names, p.Name) {
			continue
		}
		names = append(names, p.Name)
		detail[p.Name] = p.TypeName
	}
	var out []CompletionItem
	for _, n := range rankNames(prefix, names) {
		out = append(out, CompletionItem{
			Label:   n,
			Detail:  detail[n],
			Kind:    CompleteParameter,
			Replace: replace,
		})
	}
	return out
}

func completeReplacements(prefix string, replace routepattern.Span) []CompletionItem {
	var out []CompletionItem
	for _, n := range rankNames(prefix, ReplacementTokens) {
		out = append(out, CompletionItem{
			Label:   n,
			Kind:    CompleteReplacement,
			Replace: replace,
		})
	}
	return out
}
