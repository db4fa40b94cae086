package routepattern

import "strings"

// TokenKind identifies the lexical class of a token.
type TokenKind int8

const (
	_ TokenKind = iota
	TokenEndOfFile
	TokenLiteral
	TokenOpenBrace
	TokenCloseBrace
	TokenOpenBracket
	TokenCloseBracket
	TokenSlash
	TokenColon
	TokenEquals
	TokenQuestionMark
	TokenAsterisk
	TokenOpenParen
	TokenCloseParen
	TokenParameterName
	TokenPolicyFragment
	TokenReplacementText
	TokenDefaultValue
)

func (k TokenKind) String() string {
	switch k {
	case TokenEndOfFile:
		return "EndOfFile"
	case TokenLiteral:
		return "LiteralToken"
	case TokenOpenBrace:
		return "OpenBraceToken"
	case TokenCloseBrace:
		return "CloseBraceToken"
	case TokenOpenBracket:
		return "OpenBracketToken"
	case TokenCloseBracket:
		return "CloseBracketToken"
	case TokenSlash:
		return "SlashToken"
	case TokenColon:
		return "ColonToken"
	case TokenEquals:
		return "EqualsToken"
	case TokenQuestionMark:
		return "QuestionMarkToken"
	case TokenAsterisk:
		return "AsteriskToken"
	case TokenOpenParen:
		return "OpenParenToken"
	case TokenCloseParen:
		return "CloseParenToken"
	case TokenParameterName:
		return "ParameterNameToken"
	case TokenPolicyFragment:
		return "PolicyFragmentToken"
	case TokenReplacementText:
		return "ReplacementTextToken"
	case TokenDefaultValue:
		return "DefaultValueToken"
	}
	return "InvalidToken"
}

// Token is a run of virtual chars with a kind.
// Missing tokens carry no chars and are anchored at pos.
type Token struct {
	Kind      TokenKind
	Chars     Text
	IsMissing bool

	value string
	pos   int
}

func missingToken(kind TokenKind, pos int) Token {
	return Token{Kind: kind, IsMissing: true, pos: pos}
}

// Span returns the logical extent of the token.
func (t Token) Span() Span {
	if len(t.Chars) == 0 {
		return Span{Start: t.pos, End: t.pos}
	}
	return Span{
		Start: t.Chars[0].Span.Start,
		End:   t.Chars[len(t.Chars)-1].Span.End,
	}
}

// Text returns the token's chars as written, escapes included.
func (t Token) Text() string { return t.Chars.String() }

// Value returns the token text with doubled delimiters collapsed.
func (t Token) Value() string { return t.value }

// unescapeDoubled collapses "{{", "}}" and, when brackets is set,
// "[[" and "]]" into single characters.
func unescapeDoubled(s string, brackets bool) string {
	if !strings.ContainsAny(s, "{}[]") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		b.WriteByte(c)
		if i+1 < len(s) && s[i+1] == c && isDoubleEscapable(c, brackets) {
			i++
		}
	}
	return b.String()
}

func isDoubleEscapable(c byte, brackets bool) bool {
	switch c {
	case '{', '}':
		return true
	case '[', ']':
		return brackets
	}
	return false
}
