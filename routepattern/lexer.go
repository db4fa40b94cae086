package routepattern

// eofRune is returned by peek functions past the end of the text.
const eofRune rune = -1

// lexer is a modal scanner over virtual chars. The parser selects the
// scanning mode for each token. No scan function ever fails: malformed
// input yields best-effort tokens and the parser reports errors.
type lexer struct {
	text        Text
	pos         int
	replacement bool
}

func newLexer(text Text, replacement bool) *lexer {
	return &lexer{text: text, replacement: replacement}
}

func (l *lexer) eof() bool { return l.pos >= len(l.text) }

func (l *lexer) peek() rune { return l.peekAt(l.pos) }

func (l *lexer) peekAt(i int) rune {
	if i < 0 || i >= len(l.text) {
		return eofRune
	}
	return l.text[i].Value
}

// doubledAt reports whether the char at i is an escapable delimiter
// immediately followed by itself.
func (l *lexer) doubledAt(i int) bool {
	r := l.peekAt(i)
	return l.escapable(r) && l.peekAt(i+1) == r
}

// singleAt reports whether the char at i is r and not the start of an
// escape pair.
func (l *lexer) singleAt(i int, r rune) bool {
	return l.peekAt(i) == r && !l.doubledAt(i)
}

func (l *lexer) escapable(r rune) bool {
	switch r {
	case '{', '}':
		return true
	case '[', ']':
		return l.replacement
	}
	return false
}

// optionalCloseAt reports whether i starts "?}" where the brace closes
// the parameter.
func (l *lexer) optionalCloseAt(i int) bool {
	return l.peekAt(i) == '?' && l.singleAt(i+1, '}')
}

func (l *lexer) token(kind TokenKind, start, end int) Token {
	chars := l.text[start:end:end]
	return Token{
		Kind:  kind,
		Chars: chars,
		value: unescapeDoubled(chars.String(), l.replacement && kind == TokenLiteral),
		pos:   start,
	}
}

// bump consumes one char as a token of the given kind.
func (l *lexer) bump(kind TokenKind) Token {
	start := l.pos
	if !l.eof() {
		l.pos++
	}
	return l.token(kind, start, l.pos)
}

// scan consumes chars until stop reports true, consuming escape pairs
// as a unit.
func (l *lexer) scan(kind TokenKind, stop func(i int) bool) Token {
	start := l.pos
	for !l.eof() && !stop(l.pos) {
		if l.doubledAt(l.pos) {
			l.pos += 2
			continue
		}
		l.pos++
	}
	return l.token(kind, start, l.pos)
}

func (l *lexer) scanLiteral() Token {
	return l.scan(TokenLiteral, func(i int) bool {
		switch l.peekAt(i) {
		case '/':
			return true
		case '{':
			return !l.doubledAt(i)
		case '[':
			return l.replacement && !l.doubledAt(i)
		}
		return false
	})
}

func (l *lexer) scanParameterName() Token {
	return l.scan(TokenParameterName, func(i int) bool {
		switch l.peekAt(i) {
		case ':', '=':
			return true
		case '?':
			return l.optionalCloseAt(i)
		case '}':
			return !l.doubledAt(i)
		}
		return false
	})
}

func (l *lexer) scanPolicyFragment() Token {
	return l.scan(TokenPolicyFragment, func(i int) bool {
		switch l.peekAt(i) {
		case '(', ':', '=':
			return true
		case '?':
			return l.optionalCloseAt(i)
		case '}':
			return !l.doubledAt(i)
		}
		return false
	})
}

func (l *lexer) scanDefaultValue() Token {
	return l.scan(TokenDefaultValue, func(i int) bool {
		switch l.peekAt(i) {
		case '?':
			return l.optionalCloseAt(i)
		case '}':
			return !l.doubledAt(i)
		}
		return false
	})
}

func (l *lexer) scanReplacementText() Token {
	return l.scan(TokenReplacementText, func(i int) bool {
		switch l.peekAt(i) {
		case '/':
			return true
		case ']', '[', '{':
			return !l.doubledAt(i)
		}
		return false
	})
}

// scanPolicyArgument consumes the text of a parenthesized policy argument,
// stopping before the ')' that balances the already consumed '('.
// Escaped "\(" and "\)" do not count towards the balance.
// Without a balancing ')' the argument ends before the parameter's
// closing brace.
func (l *lexer) scanPolicyArgument() Token {
	start := l.pos
	end := l.argumentEnd()
	l.pos = end
	return Token{
		Kind:  TokenPolicyFragment,
		Chars: l.text[start:end:end],
		value: unescapeDoubled(l.text[start:end].String(), false),
		pos:   start,
	}
}

func (l *lexer) argumentEnd() int {
	depth := 0
	for i := l.pos; i < len(l.text); i++ {
		switch l.text[i].Value {
		case '\\':
			if n := l.peekAt(i + 1); n == '(' || n == ')' {
				i++
			}
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	for i := l.pos; i < len(l.text); i++ {
		if l.text[i].Value != '}' {
			continue
		}
		if l.doubledAt(i) {
			i++
			continue
		}
		return i
	}
	return len(l.text)
}
