// Package strlit decodes Go string expressions into route pattern text
// with raw spans pointing back into the source file.
package strlit

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strconv"
	"unicode/utf8"

	"github.com/romshark/routelint/routepattern"
)

// Decode decodes the Go string literal lit (quotes included) found at
// byte offset base. It returns false if lit is malformed or decodes to
// bytes that are not valid UTF-8.
func Decode(lit string, base int) (routepattern.Text, bool) {
	if len(lit) < 2 {
		return nil, false
	}
	switch q := lit[0]; {
	case q == '`' && lit[len(lit)-1] == '`':
		return decodeRaw(lit, base)
	case q == '"' && lit[len(lit)-1] == '"':
		return decodeInterpreted(lit, base)
	}
	return nil, false
}

func decodeRaw(lit string, base int) (routepattern.Text, bool) {
	body := lit[1 : len(lit)-1]
	if !utf8.ValidString(body) {
		return nil, false
	}
	t := make(routepattern.Text, 0, len(body))
	for i, r := range body {
		if r == '\r' {
			// Carriage returns are dropped from raw string values.
			continue
		}
		start := base + 1 + i
		t = t.Append(r, routepattern.Span{Start: start, End: start + utf8.RuneLen(r)})
	}
	return t, true
}

func decodeInterpreted(lit string, base int) (routepattern.Text, bool) {
	s := lit[1 : len(lit)-1]
	t := make(routepattern.Text, 0, len(s))
	off := base + 1
	for len(s) > 0 {
		v, multibyte, tail, err := strconv.UnquoteChar(s, '"')
		if err != nil {
			return nil, false
		}
		if !multibyte && v >= utf8.RuneSelf {
			// A single byte escape above ASCII is not a rune.
			return nil, false
		}
		n := len(s) - len(tail)
		t = t.Append(v, routepattern.Span{Start: off, End: off + n})
		off += n
		s = tail
	}
	return t, true
}

// FromExpr decodes a string-typed expression. String literals and
// their concatenation map char by char. Other constant expressions map
// onto the whole expression. Non-constant expressions are not
// analyzable and yield false.
func FromExpr(fset *token.FileSet, info *types.Info, e ast.Expr) (routepattern.Text, bool) {
	switch e := e.(type) {
	case *ast.BasicLit:
		if e.Kind != token.STRING {
			return nil, false
		}
		return Decode(e.Value, fset.Position(e.Pos()).Offset)
	case *ast.ParenExpr:
		return FromExpr(fset, info, e.X)
	case *ast.BinaryExpr:
		if e.Op != token.ADD || !isConstString(info, e) {
			return nil, false
		}
		x, ok := FromExpr(fset, info, e.X)
		if !ok {
			return nil, false
		}
		y, ok := FromExpr(fset, info, e.Y)
		if !ok {
			return nil, false
		}
		return routepattern.Concat(x, y), true
	}
	if !isConstString(info, e) {
		return nil, false
	}
	v := constant.StringVal(info.Types[e].Value)
	raw := routepattern.Span{
		Start: fset.Position(e.Pos()).Offset,
		End:   fset.Position(e.End()).Offset,
	}
	return routepattern.TextFromOpaque(v, raw), true
}

func isConstString(info *types.Info, e ast.Expr) bool {
	if info == nil {
		// Without type information only literals are analyzable.
		_, ok := e.(*ast.BinaryExpr)
		return ok
	}
	tv, ok := info.Types[e]
	return ok && tv.Value != nil && tv.Value.Kind() == constant.String
}
