package parser_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/cache"
	"github.com/romshark/routelint/parser"
	"github.com/romshark/routelint/parser/internal/paramvalidation"
	"github.com/romshark/routelint/parser/model"
	"github.com/romshark/routelint/usage"

	"github.com/stretchr/testify/require"
)

func TestParse_ServeMux(t *testing.T) {
	proj, errs := parse(t, "servemux")
	requireParseErrors(t, errs /*none*/)
	require := require.New(t)

	require.Equal("routelinttest/fixture/servemux", proj.Package)
	require.Equal("app", proj.Name)
	requirePatterns(t, proj,
		"/users/{id}",
		"/users/{id}/{name}",
		"/api/files/{path...}",
		"/orders/{id}",
		"/health",
	)

	{
		r := proj.Routes[0]
		require.Equal("GET", r.Method)
		require.Equal(usage.RegistrationCall, r.Location.Kind)
		require.Equal("HandleFunc", r.Location.Func)
		require.True(r.Location.ServeMux)
		require.True(r.Usage.ServeMux)
		require.True(r.Usage.HasHandler)
		require.NotNil(r.Handler)
		require.Len(r.Handler.Facts.PathValues, 1)
		require.Equal("id", r.Handler.Facts.PathValues[0].Name)
		requireDiagnostics(t, r /*none*/)
	}
	{
		r := proj.Routes[1]
		require.Equal("POST", r.Method)
		require.Equal("showUser", r.Handler.Name)
		requireDiagnostics(t, r,
			"INFO RPU2004: Route parameter 'name' is never read by the handler.")
	}
	{
		r := proj.Routes[2]
		require.Equal("", r.Method)
		require.Equal("http.HandlerFunc(serveFile)", r.Handler.Name)
		require.Equal([]string{"path"}, r.Tree.ParameterNames())
		requireDiagnostics(t, r /*none*/)
	}
	{
		r := proj.Routes[3]
		requireDiagnostics(t, r,
			`WARNING RPU2007: PathValue("order") reads a name that is not a route parameter.`,
			"INFO RPU2004: Route parameter 'id' is never read by the handler.",
		)
	}
	{
		r := proj.Routes[4]
		require.Equal("", r.Method)
		require.Equal("HandleFunc", r.Location.Func)
		requireDiagnostics(t, r /*none*/)
	}
}

func TestParse_Framework(t *testing.T) {
	proj, errs := parse(t, "framework")
	requireParseErrors(t, errs /*none*/)
	require := require.New(t)

	requirePatterns(t, proj,
		"/admin",
		"/users/{id:int}/{when}",
		"/orders/{id:itn}",
		"/items/{slug}",
		"/things/{item}",
	)

	{
		r := proj.Routes[0]
		require.Equal("Route", r.Location.Func)
		require.False(r.Location.ServeMux)
		require.Nil(r.Handler)
		require.False(r.Usage.HasHandler)
		requireDiagnostics(t, r /*none*/)
	}
	{
		r := proj.Routes[1]
		require.Equal("GET", r.Method)
		require.Equal(usage.Http, r.Usage.Type)
		params := r.Handler.Facts.Parameters
		require.Len(params, 3)
		require.Equal("routelinttest/fixture/framework.UserID", params[0].TypeName)
		require.Equal("int64", params[0].Underlying)
		require.Contains(params[1].Implements, "encoding.TextUnmarshaler")
		require.Equal("[]string", params[2].TypeName)
		requireDiagnostics(t, r /*none*/)
	}
	{
		r := proj.Routes[2]
		requireDiagnostics(t, r,
			"WARNING RPU2001: Unknown route constraint 'itn'. Did you mean 'int'?")
	}
	{
		r := proj.Routes[3]
		require.True(r.Usage.HasParameterObject)
		requireDiagnostics(t, r,
			"INFO RPU2006: Handler parameter 'Page' does not match any route parameter.")
	}
	{
		r := proj.Routes[4]
		require.Equal("ItemHandler{}", r.Handler.Name)
		require.NotNil(r.Handler.Facts)
		requireDiagnostics(t, r /*none*/)
	}
}

func TestParse_Pages(t *testing.T) {
	proj, errs := parse(t, "pages")
	requireParseErrors(t, errs,
		parser.ErrRouteCommentInvalid,
		parser.ErrRouteCommentMissingGap,
		parser.ErrPageMissingRouteComment,
		paramvalidation.ErrPathFieldUnexported,
	)
	requireErrorAt(t, errs, 0, "app.go", 32, 6)
	requireErrorAt(t, errs, 1, "app.go", 36, 6)
	requireErrorAt(t, errs, 2, "app.go", 38, 6)
	requireErrorAt(t, errs, 3, "app.go", 43, 43)

	require := require.New(t)
	requirePatterns(t, proj,
		"/",
		"/users/{id:length(3)}",
		"/users/{id}/rename",
		"/[controller]/{id}",
		"/nogap",
		"/bad/{id}",
	)

	{
		r := proj.Routes[0]
		require.Equal(usage.TypeComment, r.Location.Kind)
		require.Equal("PageIndex", r.Location.Func)
		require.Equal(usage.Component, r.Usage.Type)
		require.Equal("GET", r.Method)
		require.Equal("PageIndex.GET", r.Handler.Name)
		requireDiagnostics(t, r /*none*/)
	}
	{
		r := proj.Routes[1]
		require.Equal(usage.Component, r.Usage.Type)
		require.True(r.Usage.HasParameterObject)
		requireDiagnostics(t, r,
			"ERROR RPU2003: The constraint 'length' cannot be used in a page route.")
		requireRawText(t, r, r.Diagnostics[0], ":length(3)")
	}
	{
		r := proj.Routes[2]
		require.Equal(usage.MethodComment, r.Location.Kind)
		require.Equal("PageUser.POSTRename", r.Location.Func)
		require.True(r.Usage.IsAttributeRoute)
		require.Equal("POST", r.Method)
		requireDiagnostics(t, r /*none*/)
	}
	{
		r := proj.Routes[3]
		require.Equal("PUT", r.Method)
		require.True(r.Usage.SupportTokenReplacement)
		require.False(r.Tree.HasErrors())
		requireDiagnostics(t, r /*none*/)
	}
	{
		r := proj.Routes[4]
		require.Equal("PageNoGap", r.Location.Func)
		require.Nil(r.Handler)
	}
	{
		r := proj.Routes[5]
		require.Equal("PATCH", r.Method)
		requireDiagnostics(t, r /*none*/)
	}
}

func TestParse_TypeError(t *testing.T) {
	proj, errs := parse(t, "typeerror")
	require := require.New(t)

	require.NotZero(errs.Len())
	_, err := errs.Entry(0)
	require.ErrorContains(err, "undefinedThing")

	require.NotNil(proj)
	requirePatterns(t, proj, "/users/{id")
	r := proj.Routes[0]
	require.True(r.Tree.HasErrors())
	require.NotEmpty(r.Diagnostics)
	require.Equal(analysis.SevError, r.Diagnostics[0].Severity)
}

func TestParse_NotFound(t *testing.T) {
	p := parser.New(parser.WithLogger(discardLogger()))
	proj, errs := p.Parse(filepath.Join("testdata", "does-not-exist"))
	require.Nil(t, proj)
	require.NotZero(t, errs.Len())
}

func TestParse_RawSpans(t *testing.T) {
	proj, errs := parse(t, "servemux")
	requireParseErrors(t, errs /*none*/)

	tests := map[string]struct {
		route    int
		char     int
		expected string
	}{
		"method prefix trimmed":  {0, 0, "/users/{id}"},
		"after method":           {1, 1, "users/{id}/{name}"},
		"no prefix":              {3, 0, "/orders/{id}"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := proj.Routes[tt.route]
			c, ok := r.Text.At(tt.char)
			require.True(t, ok)
			src := readSource(t, r.Document)
			require.True(t, strings.HasPrefix(src[c.RawSpan.Start:], tt.expected),
				"raw offset %d points at %q", c.RawSpan.Start, src[c.RawSpan.Start:])
		})
	}
}

func TestProjectReport(t *testing.T) {
	proj, errs := parse(t, "servemux")
	requireParseErrors(t, errs /*none*/)
	require := require.New(t)

	rep := proj.Report()
	require.Equal("routelinttest/fixture/servemux", rep.Package)
	require.Len(rep.Routes, 5)
	require.Equal(3, rep.Count(analysis.SevInfo))
	require.Equal(1, rep.Count(analysis.SevWarning))
	require.Equal(proj.Count(analysis.SevInfo), rep.Count(analysis.SevInfo))

	orders := rep.Routes[3]
	require.Equal("app.go:16:17", orders.Pos)
	require.Equal("/orders/{id}", orders.Pattern)
	require.Equal("Http", orders.Usage)
	require.Equal([]string{"id"}, orders.Parameters)
	require.Equal([]analysis.ReportDiagnostic{
		{
			Code:     "RPU2007",
			Severity: "WARNING",
			Message:  `PathValue("order") reads a name that is not a route parameter.`,
			Pos:      "app.go:17:19",
			Start:    1,
			End:      13,
		},
		{
			Code:     "RPU2004",
			Severity: "INFO",
			Message:  "Route parameter 'id' is never read by the handler.",
			Pos:      "app.go:16:27",
			Start:    10,
			End:      12,
		},
	}, orders.Diagnostics)
}

type endpointPlugin struct{ parser.BasePlugin }

func (endpointPlugin) OnCall(ctx *parser.CallContext) (parser.CallMatch, bool) {
	if ctx.FuncName != "Endpoint" {
		return parser.CallMatch{}, false
	}
	return parser.CallMatch{PatternArg: 1, HandlerArg: 2, Method: "GET"}, true
}

type extraParamPlugin struct{ parser.BasePlugin }

func (extraParamPlugin) OnHandlerFacts(ctx *parser.FactsContext) {
	if ctx.Facts == nil || ctx.Route.Pattern() != "/plugin/{id}" {
		return
	}
	f := *ctx.Facts
	f.Parameters = append(f.Parameters[:len(f.Parameters):len(f.Parameters)],
		usage.HostParameter{Name: "extra", TypeName: "string", Underlying: "string"})
	ctx.Facts = &f
}

func TestParse_Plugins(t *testing.T) {
	t.Run("without", func(t *testing.T) {
		proj, errs := parse(t, "framework")
		requireParseErrors(t, errs /*none*/)
		require.Nil(t, findRoute(proj, "/plugin/{id}"))
	})

	t.Run("call", func(t *testing.T) {
		proj, errs := parse(t, "framework", parser.WithPlugins(endpointPlugin{}))
		requireParseErrors(t, errs /*none*/)
		r := findRoute(proj, "/plugin/{id}")
		require.NotNil(t, r)
		require.Equal(t, "GET", r.Method)
		require.Equal(t, "Endpoint", r.Location.Func)
		require.Len(t, proj.Routes, 6)
		requireDiagnostics(t, r /*none*/)
	})

	t.Run("facts", func(t *testing.T) {
		proj, errs := parse(t, "framework",
			parser.WithPlugins(endpointPlugin{}, extraParamPlugin{}))
		requireParseErrors(t, errs /*none*/)
		r := findRoute(proj, "/plugin/{id}")
		require.NotNil(t, r)
		requireDiagnostics(t, r,
			"INFO RPU2006: Handler parameter 'extra' does not match any route parameter.")
		require.False(t, r.Diagnostics[0].HostPos.IsValid())
	})
}

func TestParse_Options(t *testing.T) {
	t.Run("registration funcs", func(t *testing.T) {
		proj, errs := parse(t, "servemux", parser.WithRegistrationFuncs("HandleFunc"))
		requireParseErrors(t, errs /*none*/)
		requirePatterns(t, proj,
			"/users/{id}",
			"/users/{id}/{name}",
			"/orders/{id}",
			"/health",
		)
	})

	t.Run("page type prefix", func(t *testing.T) {
		proj, errs := parse(t, "pages", parser.WithPageTypePrefix("View"))
		requireParseErrors(t, errs, paramvalidation.ErrPathFieldUnexported)
		requirePatterns(t, proj,
			"/users/{id}/rename",
			"/[controller]/{id}",
			"/bad/{id}",
		)
	})

	t.Run("method prefixes", func(t *testing.T) {
		proj, errs := parse(t, "pages", parser.WithMethodPrefixes("POST"))
		requireParseErrors(t, errs,
			parser.ErrRouteCommentInvalid,
			parser.ErrRouteCommentMissingGap,
			parser.ErrPageMissingRouteComment,
		)
		requirePatterns(t, proj,
			"/",
			"/users/{id:length(3)}",
			"/users/{id}/rename",
			"/nogap",
		)
	})

	t.Run("non-bindable types", func(t *testing.T) {
		proj, errs := parse(t, "framework",
			parser.WithNonBindableTypes("routelinttest/fixture/framework.UserID"))
		requireParseErrors(t, errs /*none*/)
		r := findRoute(proj, "/users/{id:int}/{when}")
		require.NotNil(t, r)
		requireDiagnostics(t, r,
			"WARNING RPU2004: Route parameter 'id' is not bound to any handler parameter.")
	})
}

func TestParse_Cache(t *testing.T) {
	c := cache.New(discardLogger())
	p := parser.New(parser.WithLogger(discardLogger()), parser.WithCache(c))
	dir := filepath.Join("testdata", "servemux")
	ctx := context.Background()

	// Without versions nothing is cached.
	proj, errs := p.ParseContext(ctx, dir, nil)
	requireParseErrors(t, errs /*none*/)
	require.Zero(t, c.Builds())
	doc := proj.Routes[0].Document

	ov := &parser.Overlay{Versions: map[string]int32{doc: 1}}
	proj, errs = p.ParseContext(ctx, dir, ov)
	requireParseErrors(t, errs /*none*/)
	require.Equal(t, int64(len(proj.Routes)), c.Builds())

	_, errs = p.ParseContext(ctx, dir, ov)
	requireParseErrors(t, errs /*none*/)
	require.Equal(t, int64(len(proj.Routes)), c.Builds())

	ov.Versions[doc] = 2
	_, errs = p.ParseContext(ctx, dir, ov)
	requireParseErrors(t, errs /*none*/)
	require.Equal(t, int64(2*len(proj.Routes)), c.Builds())
}

func TestParse_Overlay(t *testing.T) {
	proj, errs := parse(t, "servemux")
	requireParseErrors(t, errs /*none*/)
	doc := proj.Routes[0].Document

	src := readSource(t, doc)
	edited := strings.Replace(src, `"POST /users/{id}/{name}"`, `"POST /users/{id}/{name"`, 1)
	require.NotEqual(t, src, edited)

	p := parser.New(parser.WithLogger(discardLogger()))
	proj, errs = p.ParseContext(context.Background(),
		filepath.Join("testdata", "servemux"),
		&parser.Overlay{Files: map[string][]byte{doc: []byte(edited)}})
	requireParseErrors(t, errs /*none*/)
	r := findRoute(proj, "/users/{id}/{name")
	require.NotNil(t, r)
	require.True(t, r.Tree.HasErrors())
}

func TestParse_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := parser.New(parser.WithLogger(discardLogger()))
	proj, errs := p.ParseContext(ctx, filepath.Join("testdata", "servemux"), nil)
	require.Nil(t, proj)
	require.NotZero(t, errs.Len())
}

func TestList(t *testing.T) {
	pkgs, err := parser.List(context.Background(), filepath.Join("testdata", "servemux"))
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	require.Equal(t, "routelinttest/fixture/servemux", pkgs[0].Path)
	require.Equal(t, "servemux", filepath.Base(pkgs[0].Dir))
	require.Len(t, pkgs[0].GoFiles, 1)
	require.Equal(t, "app.go", filepath.Base(pkgs[0].GoFiles[0]))
}

func parse(
	t *testing.T, fixture string, opts ...parser.Option,
) (*model.Project, parser.Errors) {
	t.Helper()
	opts = append([]parser.Option{parser.WithLogger(discardLogger())}, opts...)
	return parser.New(opts...).Parse(filepath.Join("testdata", fixture))
}

func requireParseErrors(t *testing.T, errs parser.Errors, expect ...error) {
	t.Helper()
	var actual []error
	for _, err := range errs.All() {
		actual = append(actual, err)
	}
	if len(actual) != len(expect) {
		t.Fatalf("expected %d errors, got %d: %v", len(expect), len(actual), actual)
	}
	for i, want := range expect {
		if !errors.Is(actual[i], want) {
			t.Errorf("error %d: expected %v, got %v", i, want, actual[i])
		}
	}
}

func requireErrorAt(
	t *testing.T, errs parser.Errors, index int, file string, line, col int,
) {
	t.Helper()
	pos, err := errs.Entry(index)
	require.NotNil(t, err)
	require.Equal(t, file, filepath.Base(pos.Filename), "file of error %d", index)
	require.Equal(t, line, pos.Line, "line of error %d", index)
	require.Equal(t, col, pos.Column, "column of error %d", index)
}

func requirePatterns(t *testing.T, proj *model.Project, expect ...string) {
	t.Helper()
	require.NotNil(t, proj)
	actual := make([]string, len(proj.Routes))
	for i, r := range proj.Routes {
		actual[i] = r.Pattern()
	}
	require.Equal(t, expect, actual)
}

func requireDiagnostics(t *testing.T, r *model.Route, expect ...string) {
	t.Helper()
	var actual []string
	for _, d := range r.Diagnostics {
		actual = append(actual, d.String())
	}
	require.Equal(t, expect, actual, "diagnostics of %q", r.Pattern())
}

func requireRawText(t *testing.T, r *model.Route, d analysis.Diagnostic, expect string) {
	t.Helper()
	src := readSource(t, r.Document)
	require.Equal(t, expect, src[d.RawSpan.Start:d.RawSpan.End])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func readSource(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func findRoute(proj *model.Project, pattern string) *model.Route {
	for _, r := range proj.Routes {
		if r.Pattern() == pattern {
			return r
		}
	}
	return nil
}
