package routepattern_test

import (
	"testing"

	"github.com/romshark/routelint/routepattern"

	"github.com/stretchr/testify/require"
)

func TestTextFromString(t *testing.T) {
	text := routepattern.TextFromStringAt("aé/😀", 10)
	require := require.New(t)
	require.Len(text, 4)
	require.Equal("aé/😀", text.String())
	require.True(text.Valid())

	raw := make([]routepattern.Span, len(text))
	for i, c := range text.All() {
		require.Equal(routepattern.Span{Start: i, End: i + 1}, c.Span)
		raw[i] = c.RawSpan
	}
	require.Equal([]routepattern.Span{
		{Start: 10, End: 11},
		{Start: 11, End: 13},
		{Start: 13, End: 14},
		{Start: 14, End: 18},
	}, raw)
}

func TestTextConcat(t *testing.T) {
	// Two host fragments "/a" at 0 and "{b}" at 20, as in `"/a" + "{b}"`.
	text := routepattern.Concat(
		routepattern.TextFromStringAt("/a", 1),
		routepattern.TextFromStringAt("{b}", 20),
	)
	require := require.New(t)
	require.Equal("/a{b}", text.String())
	require.True(text.Valid())
	require.Equal(routepattern.Span{Start: 2, End: 3}, text[2].Span)
	require.Equal(routepattern.Span{Start: 20, End: 21}, text[2].RawSpan)

	require.Equal(routepattern.Span{Start: 1, End: 23}, text.RawSpan(routepattern.Span{Start: 0, End: 5}))
	require.Equal(routepattern.Span{Start: 20, End: 20}, text.RawSpan(routepattern.Span{Start: 2, End: 2}))
	require.Equal(routepattern.Span{Start: 23, End: 23}, text.RawSpan(routepattern.Span{Start: 5, End: 5}))

	tree := routepattern.Parse(text, routepattern.Options{})
	require.Empty(tree.Diagnostics)
	p, ok := tree.Parameter("b")
	require.True(ok)
	require.Equal(routepattern.Span{Start: 20, End: 23}, tree.RawSpan(p.Node.Span()))
}

func TestTextAppendEscapes(t *testing.T) {
	// Decoding the Go literal "\x7bid}" yields "{id}" with the first
	// char spanning four raw bytes.
	var text routepattern.Text
	text = text.Append('{', routepattern.Span{Start: 1, End: 5})
	text = text.Append('i', routepattern.Span{Start: 5, End: 6})
	text = text.Append('d', routepattern.Span{Start: 6, End: 7})
	text = text.Append('}', routepattern.Span{Start: 7, End: 8})
	require.True(t, text.Valid())

	tree := routepattern.Parse(text, routepattern.Options{})
	require.Empty(t, tree.Diagnostics)
	require.Equal(t, routepattern.Span{Start: 1, End: 8}, tree.RawSpan(tree.Root.Span()))
}

func TestTextIndexAtRaw(t *testing.T) {
	var text routepattern.Text
	text = text.Append('{', routepattern.Span{Start: 1, End: 5})
	text = text.Append('a', routepattern.Span{Start: 5, End: 6})
	text = text.Append('}', routepattern.Span{Start: 6, End: 7})

	tests := map[string]struct {
		raw    int
		expect int
		ok     bool
	}{
		"before":          {raw: 0},
		"escape start":    {raw: 1, expect: 0, ok: true},
		"inside escape":   {raw: 3, expect: 0, ok: true},
		"plain char":      {raw: 5, expect: 1, ok: true},
		"last char":       {raw: 6, expect: 2, ok: true},
		"end of text":     {raw: 7, expect: 3, ok: true},
		"past end":        {raw: 8},
		"negative offset": {raw: -1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			i, ok := text.IndexAtRaw(tt.raw)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.expect, i)
			}
		})
	}

	_, ok := routepattern.Text(nil).IndexAtRaw(0)
	require.False(t, ok)
}

func TestTextValid(t *testing.T) {
	var text routepattern.Text
	text = text.Append('a', routepattern.Span{Start: 3, End: 4})
	text = text.Append('b', routepattern.Span{Start: 2, End: 3})
	require.False(t, text.Valid(), "raw spans must not decrease")

	text = routepattern.TextFromString("ab")
	text[1].Span = routepattern.Span{Start: 5, End: 6}
	require.False(t, text.Valid(), "logical spans must be sequential")
}

func TestSpan(t *testing.T) {
	s := routepattern.Span{Start: 2, End: 5}
	require.Equal(t, 3, s.Len())
	require.False(t, s.Empty())
	require.True(t, s.Contains(2))
	require.False(t, s.Contains(5))
	require.Equal(t, routepattern.Span{Start: 0, End: 5}, s.Cover(routepattern.Span{Start: 0, End: 1}))
	require.True(t, routepattern.Span{Start: 4, End: 4}.Empty())
}

func TestTextFromOpaque(t *testing.T) {
	text := routepattern.TextFromOpaque("/{id}", routepattern.Span{Start: 40, End: 46})
	require.Equal(t, "/{id}", text.String())
	require.True(t, text.Valid())
	require.Equal(t, routepattern.Span{Start: 40, End: 46}, text.RawSpan(routepattern.Span{Start: 0, End: 5}))
	require.Equal(t, routepattern.Span{Start: 40, End: 40}, text.RawSpan(routepattern.Span{Start: 1, End: 3}))
	require.Empty(t, routepattern.TextFromOpaque("", routepattern.Span{Start: 1, End: 3}))
}

func TestTextSlice(t *testing.T) {
	// "GET /{id}" with the method prefix cut off.
	text := routepattern.TextFromStringAt("GET /{id}", 100).Slice(4, 9)
	require.Equal(t, "/{id}", text.String())
	require.True(t, text.Valid())
	require.Equal(t, routepattern.Span{Start: 0, End: 1}, text[0].Span)
	require.Equal(t, routepattern.Span{Start: 104, End: 105}, text[0].RawSpan)

	require.Empty(t, text.Slice(3, 1))
	require.Equal(t, "/{id}", text.Slice(-1, 99).String())
}
