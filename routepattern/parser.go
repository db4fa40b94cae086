package routepattern

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"strings"
	"unicode"
)

// Options control the grammar accepted by Parse.
type Options struct {
	// SupportTokenReplacement enables "[token]" replacements
	// as used by attribute routes. Without it brackets are literal text.
	SupportTokenReplacement bool

	// ServeMux accepts the net/http wildcard forms "{name...}"
	// and "{$}" in addition to the catch-all prefix.
	ServeMux bool
}

type parser struct {
	lex   *lexer
	text  Text
	opts  Options
	diags []Diagnostic
}

// Parse parses text into a tree. Parse never fails: malformed input yields
// a tree with diagnostics.
func Parse(text Text, opts Options) *Tree {
	p := &parser{
		lex:  newLexer(text, opts.SupportTokenReplacement),
		text: text,
		opts: opts,
	}
	root := p.parseCompilationUnit()
	params := p.checkPattern(root)
	slices.SortStableFunc(p.diags, func(a, b Diagnostic) int {
		return cmp.Compare(a.Span.Start, b.Span.Start)
	})
	return &Tree{
		Text:        text,
		Root:        root,
		Diagnostics: p.diags,
		Parameters:  params,
		Options:     opts,
	}
}

// ParseString is a shorthand for Parse(TextFromString(s), opts).
func ParseString(s string, opts Options) *Tree {
	return Parse(TextFromString(s), opts)
}

// ParseContext is like Parse but returns ctx.Err() without parsing
// if ctx is already done.
func ParseContext(ctx context.Context, text Text, opts Options) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(text, opts), nil
}

// Tokenize returns the tokens of text in source order, including missing
// tokens synthesized during recovery and the final EndOfFile token.
func Tokenize(text Text, opts Options) []Token {
	return slices.Collect(Parse(text, opts).Root.Tokens())
}

func (p *parser) info(n *Node) ParameterInfo {
	return parameterInfo(n, p.opts.ServeMux)
}

func (p *parser) report(span Span, kind error, format string, args ...any) {
	p.diags = append(p.diags, newDiagnostic(span, kind, format, args...))
}

func (p *parser) parseCompilationUnit() *Node {
	var (
		children []Child
		prevSep  bool
	)
	for !p.lex.eof() {
		if p.lex.peek() == '/' {
			sep := newNode(KindSegmentSeparator, tokenChild(p.lex.bump(TokenSlash)))
			if prevSep {
				p.report(sep.Span(), ErrConsecutiveSeparators, msgConsecutiveSeparators)
			}
			prevSep = true
			children = append(children, nodeChild(sep))
			continue
		}
		prevSep = false
		children = append(children, nodeChild(p.parseSegment()))
	}
	eof := Token{Kind: TokenEndOfFile, pos: len(p.text)}
	children = append(children, tokenChild(eof))
	return newNode(KindCompilationUnit, children...)
}

func (p *parser) parseSegment() *Node {
	l := p.lex
	var parts []*Node
	for !l.eof() && l.peek() != '/' {
		switch {
		case l.singleAt(l.pos, '{'):
			parts = append(parts, p.parseParameter())
		case p.opts.SupportTokenReplacement && l.singleAt(l.pos, '['):
			parts = append(parts, p.parseReplacement())
		default:
			parts = append(parts, p.parseLiteral())
		}
	}
	p.checkSegment(parts)
	children := make([]Child, len(parts))
	for i, n := range parts {
		children[i] = nodeChild(n)
	}
	return newNode(KindSegment, children...)
}

func (p *parser) parseLiteral() *Node {
	tok := p.lex.scanLiteral()
	n := newNode(KindLiteral, tokenChild(tok))
	if strings.ContainsRune(tok.Value(), '?') {
		p.report(n.Span(), ErrLiteralQuestionMark, msgLiteralQuestionMark, tok.Value())
	}
	if unpaired(tok.Chars, '}') {
		p.report(n.Span(), ErrIncompleteParameter, msgIncompleteParameter)
	}
	if p.opts.SupportTokenReplacement && unpaired(tok.Chars, ']') {
		p.report(n.Span(), ErrUnmatchedCloseBracket, msgUnmatchedCloseBracket)
	}
	return n
}

func (p *parser) parseParameter() *Node {
	l := p.lex
	children := []Child{tokenChild(l.bump(TokenOpenBrace))}

	if l.peek() == '*' {
		start := l.pos
		l.pos++
		if l.peek() == '*' {
			l.pos++
		}
		asterisk := l.token(TokenAsterisk, start, l.pos)
		children = append(children,
			nodeChild(newNode(KindCatchAllParameterPart, tokenChild(asterisk))))
	}

	name := l.scanParameterName()
	if len(name.Chars) == 0 {
		name = missingToken(TokenParameterName, l.pos)
	}
	children = append(children, nodeChild(newNode(KindNameParameterPart, tokenChild(name))))

	for l.peek() == ':' {
		children = append(children, nodeChild(p.parsePolicy()))
	}
	if l.peek() == '=' {
		children = append(children, nodeChild(p.parseDefaultValue()))
	}
	if l.optionalCloseAt(l.pos) {
		q := l.bump(TokenQuestionMark)
		children = append(children, nodeChild(newNode(KindOptionalParameterPart, tokenChild(q))))
	}

	closed := l.singleAt(l.pos, '}')
	if closed {
		children = append(children, tokenChild(l.bump(TokenCloseBrace)))
	} else {
		children = append(children, tokenChild(missingToken(TokenCloseBrace, l.pos)))
		p.report(Span{Start: l.pos, End: l.pos}, ErrIncompleteParameter, msgIncompleteParameter)
	}

	n := newNode(KindParameter, children...)
	p.checkParameter(n, closed)
	return n
}

func (p *parser) parsePolicy() *Node {
	l := p.lex
	colon := l.bump(TokenColon)
	children := []Child{tokenChild(colon)}
	for {
		if l.peek() == '(' {
			children = append(children, nodeChild(p.parseEscapedFragment()))
			continue
		}
		frag := l.scanPolicyFragment()
		if len(frag.Chars) == 0 {
			break
		}
		if unmatchedCloseParen(frag.Chars) {
			p.report(frag.Span(), ErrUnbalancedPolicyParen, msgUnbalancedPolicyParen)
		}
		children = append(children, nodeChild(newNode(KindPolicyFragment, tokenChild(frag))))
	}
	switch {
	case len(children) == 1:
		missing := missingToken(TokenPolicyFragment, l.pos)
		children = append(children, nodeChild(newNode(KindPolicyFragment, tokenChild(missing))))
		p.report(colon.Span(), ErrEmptyPolicy, msgEmptyPolicy)
	case children[1].Node().Kind == KindPolicyFragmentEscaped:
		// An argument list without a policy name.
		p.report(colon.Span(), ErrEmptyPolicy, msgEmptyPolicy)
	}
	return newNode(KindPolicyParameterPart, children...)
}

func (p *parser) parseEscapedFragment() *Node {
	l := p.lex
	children := []Child{
		tokenChild(l.bump(TokenOpenParen)),
		tokenChild(l.scanPolicyArgument()),
	}
	closed := l.peek() == ')'
	if closed {
		children = append(children, tokenChild(l.bump(TokenCloseParen)))
	} else {
		children = append(children, tokenChild(missingToken(TokenCloseParen, l.pos)))
	}
	n := newNode(KindPolicyFragmentEscaped, children...)
	if !closed {
		p.report(n.Span(), ErrUnclosedPolicyArgument, msgUnclosedPolicyArgument)
	}
	return n
}

func (p *parser) parseDefaultValue() *Node {
	l := p.lex
	eq := l.bump(TokenEquals)
	v := l.scanDefaultValue()
	if len(v.Chars) == 0 {
		v = missingToken(TokenDefaultValue, l.pos)
		p.report(eq.Span(), ErrEmptyDefaultValue, msgEmptyDefaultValue)
	}
	return newNode(KindDefaultValueParameterPart, tokenChild(eq), tokenChild(v))
}

func (p *parser) parseReplacement() *Node {
	l := p.lex
	open := l.bump(TokenOpenBracket)
	txt := l.scanReplacementText()
	if len(txt.Chars) == 0 {
		txt = missingToken(TokenReplacementText, l.pos)
	}
	children := []Child{tokenChild(open), tokenChild(txt)}
	closed := l.singleAt(l.pos, ']')
	if closed {
		children = append(children, tokenChild(l.bump(TokenCloseBracket)))
	} else {
		children = append(children, tokenChild(missingToken(TokenCloseBracket, l.pos)))
	}
	n := newNode(KindReplacement, children...)
	switch {
	case !closed:
		p.report(n.Span(), ErrReplacementNotClosed, msgReplacementNotClosed)
	case txt.IsMissing:
		p.report(n.Span(), ErrReplacementEmpty, msgReplacementEmpty)
	case !isIdentifier(txt.Value()):
		p.report(txt.Span(), ErrReplacementInvalid, msgReplacementInvalid, txt.Value())
	}
	return n
}

// checkParameter reports errors local to a single parameter.
func (p *parser) checkParameter(n *Node, closed bool) {
	info := p.info(n)
	namePart := n.FirstChild(KindNameParameterPart)
	name, _ := namePart.TokenOf(TokenParameterName)

	switch {
	case info.IsEndAnchor:
	case name.IsMissing:
		if closed {
			p.report(tokenAfter(n, namePart), ErrInvalidParameterName, msgInvalidParameterName, "")
		}
	case unpaired(name.Chars, '{') || unpaired(name.Chars, '}'):
		p.report(name.Span(), ErrUnescapedBrace, msgUnescapedBrace)
	case strings.ContainsAny(info.Name, "{}/?*"):
		p.report(name.Span(), ErrInvalidParameterName, msgInvalidParameterName, info.Name)
	case !isIdentifier(info.Name):
		p.report(name.Span(), ErrInvalidParameterName, msgParameterNameShape, info.Name)
	}

	for c := range n.ChildNodes() {
		switch c.Kind {
		case KindPolicyParameterPart:
			c.Walk(func(f *Node) bool {
				if t, ok := f.TokenOf(TokenPolicyFragment); ok && hasUnpairedBrace(t) {
					p.report(t.Span(), ErrUnescapedBrace, msgUnescapedBrace)
				}
				return true
			})
		case KindDefaultValueParameterPart:
			if t, ok := c.TokenOf(TokenDefaultValue); ok && hasUnpairedBrace(t) {
				p.report(t.Span(), ErrUnescapedBrace, msgUnescapedBrace)
			}
		}
	}

	if info.IsCatchAll && info.IsOptional {
		p.report(n.Span(), ErrCatchAllOptional, msgCatchAllOptional)
	}
	if info.IsCatchAll && info.HasDefault {
		p.report(n.Span(), ErrCatchAllDefault, msgCatchAllDefault)
	}
	if info.IsOptional && info.HasDefault {
		p.report(n.Span(), ErrOptionalWithDefault, msgOptionalWithDefault)
	}
}

// checkSegment reports errors that depend on a parameter's neighbors
// and turns a "." literal before an optional parameter into
// an optional separator.
func (p *parser) checkSegment(parts []*Node) {
	for i, part := range parts {
		if part.Kind != KindParameter {
			continue
		}
		info := p.info(part)
		if info.IsCatchAll && len(parts) > 1 {
			p.report(part.Span(), ErrCatchAllComplexSegment, msgCatchAllComplexSegment)
		}
		if info.IsOptional {
			if i < len(parts)-1 {
				p.report(part.Span(), ErrOptionalNotLast, msgOptionalNotLast,
					partsText(parts), info.Name, parts[i+1].Text())
			}
			if i > 0 {
				prev := parts[i-1]
				if prev.Kind == KindLiteral && literalValue(prev) == "." {
					prev.Kind = KindOptionalSeparator
				} else {
					p.report(part.Span(), ErrOptionalPrecededBy, msgOptionalPrecededBy,
						partsText(parts), info.Name, prev.Text())
				}
			}
			continue
		}
		if i > 0 && parts[i-1].Kind == KindParameter {
			p.report(part.Span(), ErrConsecutiveParameters, msgConsecutiveParameters)
		}
	}
}

// checkPattern reports pattern-wide errors and builds the parameter index.
func (p *parser) checkPattern(root *Node) map[string]ParameterInfo {
	var segments []*Node
	for n := range root.ChildNodes() {
		if n.Kind == KindSegment {
			segments = append(segments, n)
		}
	}

	params := make(map[string]ParameterInfo)
	for i, seg := range segments {
		for part := range seg.ChildNodes() {
			if part.Kind != KindParameter {
				continue
			}
			info := p.info(part)
			if info.IsCatchAll && i < len(segments)-1 {
				p.report(part.Span(), ErrCatchAllNotLast, msgCatchAllNotLast)
			}
			if info.IsEndAnchor && (i < len(segments)-1 || part != lastNode(seg)) {
				p.report(part.Span(), ErrEndAnchorNotLast, msgEndAnchorNotLast)
			}
			if info.Name == "" {
				continue
			}
			key := strings.ToLower(info.Name)
			if _, dup := params[key]; dup {
				p.report(part.Span(), ErrDuplicateParameter, msgDuplicateParameter, info.Name)
			}
			params[key] = info
		}
	}

	if len(p.text) > 0 && p.text[0].Value == '~' &&
		(len(p.text) == 1 || p.text[1].Value != '/') {
		span := p.text[0].Span
		if len(segments) > 0 {
			span = segments[0].Children()[0].Span()
		}
		p.report(span, ErrTildeStart, msgTildeStart)
	}
	return params
}

// tokenAfter returns the span of the first present token following
// the child after inside n, or an empty span at the end of n.
func tokenAfter(n, after *Node) Span {
	seen := false
	for _, c := range n.Children() {
		if c.Node() == after {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		for t := range childTokens(c) {
			if !t.IsMissing && len(t.Chars) > 0 {
				return t.Span()
			}
		}
	}
	end := n.Span().End
	return Span{Start: end, End: end}
}

func childTokens(c Child) iter.Seq[Token] {
	if c.IsNode() {
		return c.Node().Tokens()
	}
	return func(yield func(Token) bool) { yield(c.Token()) }
}

func lastNode(n *Node) *Node {
	var last *Node
	for c := range n.ChildNodes() {
		last = c
	}
	return last
}

func literalValue(n *Node) string {
	t, _ := n.TokenOf(TokenLiteral)
	return t.Value()
}

func partsText(parts []*Node) string {
	var b strings.Builder
	for _, n := range parts {
		b.WriteString(n.Text())
	}
	return b.String()
}

// unpaired reports whether chars contain r not doubled as an escape pair.
func unpaired(chars Text, r rune) bool {
	for i := 0; i < len(chars); i++ {
		if chars[i].Value != r {
			continue
		}
		if i+1 < len(chars) && chars[i+1].Value == r {
			i++
			continue
		}
		return true
	}
	return false
}

// unmatchedCloseParen reports whether chars hold a ')' not escaped
// as "\)". Balanced argument lists never reach a policy fragment.
func unmatchedCloseParen(chars Text) bool {
	for i := 0; i < len(chars); i++ {
		switch chars[i].Value {
		case '\\':
			i++
		case ')':
			return true
		}
	}
	return false
}

func hasUnpairedBrace(t Token) bool {
	return !t.IsMissing && (unpaired(t.Chars, '{') || unpaired(t.Chars, '}'))
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
