package strlit_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/romshark/routelint/parser/internal/strlit"
	"github.com/romshark/routelint/routepattern"

	"github.com/stretchr/testify/require"
)

func rawSpans(t routepattern.Text) []routepattern.Span {
	out := make([]routepattern.Span, len(t))
	for i, c := range t {
		out[i] = c.RawSpan
	}
	return out
}

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		lit    string
		base   int
		expect string
		raw    []routepattern.Span
	}{
		"plain": {
			lit: `"/a"`, base: 10, expect: "/a",
			raw: []routepattern.Span{{Start: 11, End: 12}, {Start: 12, End: 13}},
		},
		"hex escape": {
			lit: `"\x7bi}"`, expect: "{i}",
			raw: []routepattern.Span{{Start: 1, End: 5}, {Start: 5, End: 6}, {Start: 6, End: 7}},
		},
		"unicode escape": {
			lit: `"\u00e9"`, expect: "é",
			raw: []routepattern.Span{{Start: 1, End: 7}},
		},
		"verbatim multibyte": {
			lit: `"é/"`, expect: "é/",
			raw: []routepattern.Span{{Start: 1, End: 3}, {Start: 3, End: 4}},
		},
		"escaped quote": {
			lit: `"\""`, expect: `"`,
			raw: []routepattern.Span{{Start: 1, End: 3}},
		},
		"raw string": {
			lit: "`a\\b`", expect: `a\b`,
			raw: []routepattern.Span{{Start: 1, End: 2}, {Start: 2, End: 3}, {Start: 3, End: 4}},
		},
		"raw string drops carriage returns": {
			lit: "`a\r\nb`", expect: "a\nb",
			raw: []routepattern.Span{{Start: 1, End: 2}, {Start: 3, End: 4}, {Start: 4, End: 5}},
		},
		"empty": {lit: `""`, expect: "", raw: []routepattern.Span{}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			text, ok := strlit.Decode(tt.lit, tt.base)
			require.True(t, ok)
			require.Equal(t, tt.expect, text.String())
			require.Equal(t, tt.raw, rawSpans(text))
			require.True(t, text.Valid())
		})
	}
}

func TestDecodeNotAnalyzable(t *testing.T) {
	for _, lit := range []string{`"\xff"`, `"\377"`, `"abc`, `x`, `'a'`, `"\q"`} {
		_, ok := strlit.Decode(lit, 0)
		require.False(t, ok, lit)
	}
}

const src = `package p

const prefix = "/api"

func dyn() string { return "" }

var (
	concat   = "/users/" + "{id}"
	named    = prefix + "/{id}"
	paren    = ("/x")
	dynamic  = dyn()
	mixed    = dyn() + "/x"
	constant = prefix
)
`

func TestFromExpr(t *testing.T) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", src, 0)
	require.NoError(t, err)
	info := &types.Info{Types: map[ast.Expr]types.TypeAndValue{}}
	_, err = (&types.Config{}).Check("p", fset, []*ast.File{f}, info)
	require.NoError(t, err)

	exprs := map[string]ast.Expr{}
	ast.Inspect(f, func(n ast.Node) bool {
		if vs, ok := n.(*ast.ValueSpec); ok && len(vs.Values) == 1 {
			exprs[vs.Names[0].Name] = vs.Values[0]
		}
		return true
	})
	offset := func(e ast.Expr) int { return fset.Position(e.Pos()).Offset }

	t.Run("concat", func(t *testing.T) {
		e := exprs["concat"].(*ast.BinaryExpr)
		text, ok := strlit.FromExpr(fset, info, e)
		require.True(t, ok)
		require.Equal(t, "/users/{id}", text.String())
		require.True(t, text.Valid())
		require.Equal(t, offset(e.X)+1, text[0].RawSpan.Start)
		require.Equal(t, offset(e.Y)+1, text[7].RawSpan.Start)
	})
	t.Run("named constant", func(t *testing.T) {
		e := exprs["named"].(*ast.BinaryExpr)
		text, ok := strlit.FromExpr(fset, info, e)
		require.True(t, ok)
		require.Equal(t, "/api/{id}", text.String())
		require.True(t, text.Valid())
		ident := routepattern.Span{Start: offset(e.X), End: offset(e.X) + len("prefix")}
		require.Equal(t, ident, text.RawSpan(routepattern.Span{Start: 0, End: 4}))
	})
	t.Run("paren", func(t *testing.T) {
		text, ok := strlit.FromExpr(fset, info, exprs["paren"])
		require.True(t, ok)
		require.Equal(t, "/x", text.String())
	})
	t.Run("constant", func(t *testing.T) {
		text, ok := strlit.FromExpr(fset, info, exprs["constant"])
		require.True(t, ok)
		require.Equal(t, "/api", text.String())
	})
	t.Run("dynamic", func(t *testing.T) {
		_, ok := strlit.FromExpr(fset, info, exprs["dynamic"])
		require.False(t, ok)
		_, ok = strlit.FromExpr(fset, info, exprs["mixed"])
		require.False(t, ok)
	})
	t.Run("without type info", func(t *testing.T) {
		text, ok := strlit.FromExpr(fset, nil, exprs["concat"])
		require.True(t, ok)
		require.Equal(t, "/users/{id}", text.String())
		_, ok = strlit.FromExpr(fset, nil, exprs["constant"])
		require.False(t, ok)
	})
}

func FuzzDecode(f *testing.F) {
	for _, s := range []string{`"/a"`, `"\x7b"`, "`a\r`", `"é{x}"`, `"\\"`} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, lit string) {
		text, ok := strlit.Decode(lit, 0)
		if !ok {
			return
		}
		if !text.Valid() {
			t.Fatalf("%q: invalid text", lit)
		}
		for _, c := range text {
			if c.RawSpan.End > len(lit) {
				t.Fatalf("%q: raw span %v out of range", lit, c.RawSpan)
			}
		}
	})
}
