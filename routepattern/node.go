package routepattern

import "iter"

// NodeKind identifies the syntactic construct a node represents.
type NodeKind int8

const (
	_ NodeKind = iota
	KindCompilationUnit
	KindSegment
	KindSegmentSeparator
	KindLiteral
	KindParameter
	KindNameParameterPart
	KindPolicyParameterPart
	KindPolicyFragment
	KindPolicyFragmentEscaped
	KindOptionalParameterPart
	KindDefaultValueParameterPart
	KindCatchAllParameterPart
	KindReplacement
	KindOptionalSeparator
)

func (k NodeKind) String() string {
	switch k {
	case KindCompilationUnit:
		return "CompilationUnit"
	case KindSegment:
		return "Segment"
	case KindSegmentSeparator:
		return "SegmentSeparator"
	case KindLiteral:
		return "Literal"
	case KindParameter:
		return "Parameter"
	case KindNameParameterPart:
		return "NameParameterPart"
	case KindPolicyParameterPart:
		return "PolicyParameterPart"
	case KindPolicyFragment:
		return "PolicyFragment"
	case KindPolicyFragmentEscaped:
		return "PolicyFragmentEscaped"
	case KindOptionalParameterPart:
		return "OptionalParameterPart"
	case KindDefaultValueParameterPart:
		return "DefaultValueParameterPart"
	case KindCatchAllParameterPart:
		return "CatchAllParameterPart"
	case KindReplacement:
		return "Replacement"
	case KindOptionalSeparator:
		return "OptionalSeparator"
	}
	return "InvalidNode"
}

// IsSegmentPart reports whether nodes of this kind appear directly
// inside a segment.
func (k NodeKind) IsSegmentPart() bool {
	switch k {
	case KindLiteral, KindParameter, KindReplacement, KindOptionalSeparator:
		return true
	}
	return false
}

// Child is either a node or a token, never both.
type Child struct {
	node  *Node
	token *Token
}

func nodeChild(n *Node) Child { return Child{node: n} }

func tokenChild(t Token) Child { return Child{token: &t} }

// IsNode reports whether c holds a node.
func (c Child) IsNode() bool { return c.node != nil }

// Node returns the node held by c, or nil.
func (c Child) Node() *Node { return c.node }

// IsToken reports whether c holds a token.
func (c Child) IsToken() bool { return c.token != nil }

// Token returns the token held by c, or the zero token if c holds a node.
func (c Child) Token() Token {
	if c.token == nil {
		return Token{}
	}
	return *c.token
}

// Span returns the logical extent of the child.
func (c Child) Span() Span {
	if c.node != nil {
		return c.node.Span()
	}
	if c.token != nil {
		return c.token.Span()
	}
	return Span{}
}

// Node is an immutable tree node. Each node exclusively owns its children.
type Node struct {
	Kind     NodeKind
	children []Child
	span     Span
}

func newNode(kind NodeKind, children ...Child) *Node {
	n := &Node{Kind: kind, children: children}
	n.span = computeSpan(children)
	return n
}

// computeSpan unions the spans of all non-missing descendant tokens.
// A node with only missing tokens gets the empty span of the first one.
func computeSpan(children []Child) Span {
	var (
		s         Span
		found     bool
		anchor    Span
		hasAnchor bool
	)
	for _, c := range children {
		var cs Span
		var missing bool
		switch {
		case c.node != nil:
			cs = c.node.span
			missing = !c.node.hasPresentToken()
		case c.token != nil:
			cs = c.token.Span()
			missing = c.token.IsMissing || len(c.token.Chars) == 0
		default:
			continue
		}
		if missing {
			if !hasAnchor {
				anchor, hasAnchor = cs, true
			}
			continue
		}
		if !found {
			s, found = cs, true
			continue
		}
		s = s.Cover(cs)
	}
	if found {
		return s
	}
	return Span{Start: anchor.Start, End: anchor.Start}
}

func (n *Node) hasPresentToken() bool {
	for t := range n.Tokens() {
		if !t.IsMissing && len(t.Chars) > 0 {
			return true
		}
	}
	return false
}

// Span returns the logical extent of the node.
func (n *Node) Span() Span { return n.span }

// Children returns the node's children in source order.
func (n *Node) Children() []Child { return n.children }

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// ChildNodes iterates over the direct child nodes.
func (n *Node) ChildNodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, c := range n.children {
			if c.node != nil && !yield(c.node) {
				return
			}
		}
	}
}

// FirstChild returns the first direct child node of the given kind.
func (n *Node) FirstChild(kind NodeKind) *Node {
	for c := range n.ChildNodes() {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// TokenOf returns the first direct child token of the given kind.
func (n *Node) TokenOf(kind TokenKind) (Token, bool) {
	for _, c := range n.children {
		if c.token != nil && c.token.Kind == kind {
			return *c.token, true
		}
	}
	return Token{}, false
}

// Tokens iterates over all descendant tokens in source order.
func (n *Node) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		n.tokens(yield)
	}
}

func (n *Node) tokens(yield func(Token) bool) bool {
	for _, c := range n.children {
		switch {
		case c.token != nil:
			if !yield(*c.token) {
				return false
			}
		case c.node != nil:
			if !c.node.tokens(yield) {
				return false
			}
		}
	}
	return true
}

// Walk visits n and its descendants depth-first in source order.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for c := range n.ChildNodes() {
		c.Walk(fn)
	}
}

// Text returns the node's source text as written.
func (n *Node) Text() string {
	var s []rune
	for t := range n.Tokens() {
		for _, c := range t.Chars {
			s = append(s, c.Value)
		}
	}
	return string(s)
}
