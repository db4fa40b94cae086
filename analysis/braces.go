package analysis

import "github.com/romshark/routelint/routepattern"

// BracePair is a matched pair of delimiters.
type BracePair struct {
	Open  routepattern.Span
	Close routepattern.Span
}

var bracePairs = []struct {
	node        routepattern.NodeKind
	open, close routepattern.TokenKind
}{
	{routepattern.KindParameter, routepattern.TokenOpenBrace, routepattern.TokenCloseBrace},
	{routepattern.KindPolicyFragmentEscaped, routepattern.TokenOpenParen, routepattern.TokenCloseParen},
	{routepattern.KindReplacement, routepattern.TokenOpenBracket, routepattern.TokenCloseBracket},
}

// MatchBraces returns the brace pairs with a delimiter touching pos,
// either directly after or directly before it. Pairs with a missing
// delimiter are not matched.
func MatchBraces(tree *routepattern.Tree, pos int) []BracePair {
	if tree == nil {
		return nil
	}
	var out []BracePair
	tree.Root.Walk(func(n *routepattern.Node) bool {
		s := n.Span()
		if pos < s.Start || pos > s.End {
			return false
		}
		for _, bp := range bracePairs {
			if n.Kind != bp.node {
				continue
			}
			open, ok1 := n.TokenOf(bp.open)
			closing, ok2 := n.TokenOf(bp.close)
			if !ok1 || !ok2 || open.IsMissing || closing.IsMissing {
				continue
			}
			if touches(open.Span(), pos) || touches(closing.Span(), pos) {
				out = append(out, BracePair{Open: open.Span(), Close: closing.Span()})
			}
		}
		return true
	})
	return out
}

func touches(s routepattern.Span, pos int) bool {
	return pos == s.Start || pos == s.End
}
