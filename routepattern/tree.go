package routepattern

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Tree is a parsed route pattern. A tree is immutable and safe for
// concurrent use by multiple goroutines.
type Tree struct {
	Text        Text
	Root        *Node
	Diagnostics []Diagnostic

	// Parameters indexes parameters with a present name by their
	// lower-cased name. On duplicates the last parameter wins.
	Parameters map[string]ParameterInfo

	Options Options
}

// ParameterInfo describes a route parameter.
type ParameterInfo struct {
	Name          string
	IsCatchAll    bool
	EncodeSlashes bool
	IsOptional    bool

	// IsEndAnchor is set for "{$}" in ServeMux patterns.
	IsEndAnchor bool

	HasDefault   bool
	DefaultValue string
	Policies     []Policy
	Node         *Node
}

// Policy is one ":policy" of a parameter.
type Policy struct {
	// Text is the policy as written, including the leading colon.
	Text string

	// Name is the text before the first argument list.
	Name string

	HasArgs bool
	Args    []string
}

// ParameterInfoOf returns the description of parameter node n
// parsed without ServeMux wildcards.
func ParameterInfoOf(n *Node) ParameterInfo { return parameterInfo(n, false) }

// ParameterInfo returns the description of parameter node n
// according to the options t was parsed with.
func (t *Tree) ParameterInfo(n *Node) ParameterInfo {
	return parameterInfo(n, t.Options.ServeMux)
}

func parameterInfo(n *Node, serveMux bool) ParameterInfo {
	info := ParameterInfo{Node: n, EncodeSlashes: true}
	if n == nil || n.Kind != KindParameter {
		return info
	}
	for c := range n.ChildNodes() {
		switch c.Kind {
		case KindCatchAllParameterPart:
			info.IsCatchAll = true
			if t, ok := c.TokenOf(TokenAsterisk); ok && len(t.Chars) == 2 {
				info.EncodeSlashes = false
			}
		case KindNameParameterPart:
			// Names keep doubled braces so that "{2}}" is indexed as "2}}".
			if t, ok := c.TokenOf(TokenParameterName); ok && !t.IsMissing {
				info.Name = t.Text()
			}
		case KindPolicyParameterPart:
			info.Policies = append(info.Policies, policyOf(c))
		case KindDefaultValueParameterPart:
			info.HasDefault = true
			if t, ok := c.TokenOf(TokenDefaultValue); ok && !t.IsMissing {
				info.DefaultValue = t.Value()
			}
		case KindOptionalParameterPart:
			info.IsOptional = true
		}
	}
	if serveMux {
		switch {
		case info.Name == "$":
			info.Name, info.IsEndAnchor = "", true
		case !info.IsCatchAll && strings.HasSuffix(info.Name, "...") && len(info.Name) > 3:
			info.Name, info.IsCatchAll = strings.TrimSuffix(info.Name, "..."), true
		}
	}
	return info
}

func policyOf(n *Node) Policy {
	p := Policy{Text: n.Text()}
	for c := range n.ChildNodes() {
		switch c.Kind {
		case KindPolicyFragment:
			if !p.HasArgs {
				t, _ := c.TokenOf(TokenPolicyFragment)
				p.Name += t.Value()
			}
		case KindPolicyFragmentEscaped:
			if p.HasArgs {
				continue
			}
			p.HasArgs = true
			if t, ok := c.TokenOf(TokenPolicyFragment); ok && len(t.Chars) > 0 {
				p.Args = splitArgs(t.Value())
			}
		}
	}
	return p
}

// splitArgs splits s on commas outside of nested parentheses.
func splitArgs(s string) []string {
	var (
		args  []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && (s[i+1] == '(' || s[i+1] == ')') {
				i++
			}
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	return append(args, s[start:])
}

// Parameter looks up a parameter by name, ignoring case.
func (t *Tree) Parameter(name string) (ParameterInfo, bool) {
	p, ok := t.Parameters[strings.ToLower(name)]
	return p, ok
}

// ParameterNames returns the indexed parameter names sorted.
func (t *Tree) ParameterNames() []string {
	names := make([]string, 0, len(t.Parameters))
	for _, p := range t.Parameters {
		names = append(names, p.Name)
	}
	slices.Sort(names)
	return names
}

// AllParameters iterates over every parameter node in source order,
// duplicates and parameters without a name included.
func (t *Tree) AllParameters() iter.Seq[ParameterInfo] {
	return func(yield func(ParameterInfo) bool) {
		if t.Root == nil {
			return
		}
		stop := false
		t.Root.Walk(func(n *Node) bool {
			if stop {
				return false
			}
			if n.Kind == KindParameter {
				stop = !yield(t.ParameterInfo(n))
				return false
			}
			return true
		})
	}
}

// HasErrors reports whether the tree has any diagnostics.
func (t *Tree) HasErrors() bool { return len(t.Diagnostics) > 0 }

// FindCharAt returns the virtual char at logical position pos.
func (t *Tree) FindCharAt(pos int) (VirtualChar, bool) {
	c, ok := t.Text.At(pos)
	if !ok && debug {
		panic(fmt.Sprintf("routepattern: position %d out of range [0, %d)", pos, len(t.Text)))
	}
	return c, ok
}

// FindNodeContaining returns the deepest node containing ch for which
// pred returns true. A nil pred matches any node.
func (t *Tree) FindNodeContaining(ch VirtualChar, pred func(*Node) bool) *Node {
	pos := ch.Span.Start
	if pos < 0 || pos >= len(t.Text) {
		if debug {
			panic(fmt.Sprintf("routepattern: char at %d not in tree text", pos))
		}
		return nil
	}
	var found *Node
	t.Root.Walk(func(n *Node) bool {
		if !n.Span().Contains(pos) {
			return false
		}
		if pred == nil || pred(n) {
			found = n
		}
		return true
	})
	return found
}

// TokenAt returns the present token containing logical position pos.
func (t *Tree) TokenAt(pos int) (Token, bool) {
	for tok := range t.Root.Tokens() {
		if tok.Span().Contains(pos) {
			return tok, true
		}
	}
	return Token{}, false
}

// RawSpan maps a logical span onto the host source.
func (t *Tree) RawSpan(s Span) Span { return t.Text.RawSpan(s) }
