package routepattern_test

import (
	"testing"
	"unicode/utf8"

	"github.com/romshark/routelint/routepattern"
)

// FuzzParse checks that parsing never panics, that tokens cover the
// input without gaps and that node spans stay within the text.
func FuzzParse(f *testing.F) {
	for _, s := range corpus {
		f.Add(s, false)
		f.Add(s, true)
	}
	f.Add("{{}}[[]]{*}{**}{?}{=}{:}{(}{)}", true)
	f.Add(`{a:b(\(\)(()))c(d}`, false)
	f.Add("/{a}/{b?}.{c?}/{*d}", false)
	f.Add("~~/~{x}", true)

	f.Fuzz(func(t *testing.T, pattern string, replacement bool) {
		if !utf8.ValidString(pattern) || len(pattern) > 256 {
			t.Skip()
		}
		opts := routepattern.Options{SupportTokenReplacement: replacement}
		tree := routepattern.ParseString(pattern, opts)

		requireRoundTrip(t, pattern, tree)

		n := len(tree.Text)
		tree.Root.Walk(func(node *routepattern.Node) bool {
			s := node.Span()
			if s.Start < 0 || s.End > n || s.Start > s.End {
				t.Fatalf("%q: node %s has span %v outside [0, %d]", pattern, node.Kind, s, n)
			}
			return true
		})
		for _, d := range tree.Diagnostics {
			if d.Span.Start < 0 || d.Span.End > n || d.Err == nil || d.Message == "" {
				t.Fatalf("%q: malformed diagnostic %#v", pattern, d)
			}
		}
		for key, p := range tree.Parameters {
			if p.Name == "" || p.Node == nil {
				t.Fatalf("%q: malformed parameter %q: %#v", pattern, key, p)
			}
		}
		for i := range n {
			c, ok := tree.FindCharAt(i)
			if !ok {
				t.Fatalf("%q: no char at %d", pattern, i)
			}
			if tree.FindNodeContaining(c, nil) == nil {
				t.Fatalf("%q: no node contains char %d", pattern, i)
			}
		}
		_ = tree.Dump()
	})
}
