package usage_test

import (
	"sync"
	"testing"

	"github.com/romshark/routelint/usage"

	"github.com/stretchr/testify/require"
)

func TestDetectType(t *testing.T) {
	tests := map[string]struct {
		loc         usage.Location
		expectType  usage.Type
		attribute   bool
		replacement bool
	}{
		"registration call": {
			loc:        usage.Location{Kind: usage.RegistrationCall, Func: "HandleFunc"},
			expectType: usage.Http,
		},
		"method comment": {
			loc:         usage.Location{Kind: usage.MethodComment, Func: "GETUser"},
			expectType:  usage.Http,
			attribute:   true,
			replacement: true,
		},
		"type comment": {
			loc:        usage.Location{Kind: usage.TypeComment, Func: "PageUser"},
			expectType: usage.Component,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := usage.Detect(tt.loc, nil, nil)
			require.Equal(t, tt.expectType, c.Type)
			require.Equal(t, tt.attribute, c.IsAttributeRoute)
			require.Equal(t, tt.replacement, c.SupportTokenReplacement)
			require.Equal(t, tt.replacement, c.Options().SupportTokenReplacement)
			require.False(t, c.HasHandler)
			require.Empty(t, c.ResolvedParameters)
		})
	}
}

func TestDetectServeMux(t *testing.T) {
	c := usage.Detect(usage.Location{
		Kind: usage.RegistrationCall, Func: "HandleFunc", ServeMux: true,
	}, nil, nil)
	require.True(t, c.Options().ServeMux)
}

func TestDetectResolvedParameters(t *testing.T) {
	wk := usage.NewWellKnownTypes()
	facts := &usage.HostFacts{
		Method: "GET",
		Parameters: []usage.HostParameter{
			{Name: "w", TypeName: "net/http.ResponseWriter"},
			{Name: "r", TypeName: "*net/http.Request"},
			{Name: "ctx", TypeName: "context.Context"},
			{Name: "id", TypeName: "int", Underlying: "int"},
			{Name: "filter", TypeName: "[]string", Underlying: "[]string"},
			{Name: "query", TypeName: "struct{Q string}"},
			{Name: "sess", TypeName: "example.com/app.Session"},
			{Name: "logger", TypeName: "example.com/app.Log", Implements: []string{"io.Reader"}},
			{Name: "_", TypeName: "string"},
			{
				Name:     "path",
				TypeName: `struct{Slug string "path:\"slug\""; Page int}`,
				Fields: []usage.HostParameter{
					{Name: "Slug", Tag: `path:"slug"`, TypeName: "string", Underlying: "string"},
					{Name: "Page", TypeName: "int", Underlying: "int"},
					{Name: "Token", Tag: `header:"X-Token"`, TypeName: "string"},
				},
			},
			{
				Name: "in", Expand: true,
				Fields: []usage.HostParameter{
					{Name: "When", TypeName: "time.Time", Implements: []string{"encoding.TextUnmarshaler"}},
					{Name: "Body", Tag: `json:"body"`, TypeName: "string"},
					{Name: "Svc", Tag: `service:""`, TypeName: "*example.com/app.Service"},
				},
			},
		},
		PathValues: []usage.PathValue{{Name: "raw"}, {Name: "raw"}},
	}

	c := usage.Detect(usage.Location{Kind: usage.RegistrationCall, Func: "Get"}, facts, wk)
	require.True(t, c.HasHandler)
	require.True(t, c.HasParameterObject)
	require.Equal(t, "GET", c.Method)

	type resolved struct {
		name     string
		eligible bool
		source   usage.Source
	}
	var got []resolved
	for _, p := range c.ResolvedParameters {
		got = append(got, resolved{p.Name, p.BindingEligible, p.Source})
	}
	require.Equal(t, []resolved{
		{"id", true, usage.SourceRoute},
		{"filter", false, usage.SourceRoute},
		{"slug", true, usage.SourceRoute},
		{"Page", true, usage.SourceRoute},
		{"When", true, usage.SourceRoute},
		{"raw", true, usage.SourcePathValue},
	}, got)

	var eligible []string
	for _, p := range c.Eligible() {
		eligible = append(eligible, p.Name)
	}
	require.Equal(t, []string{"id", "slug", "Page", "When", "raw"}, eligible)

	p, ok := c.Lookup("SLUG")
	require.True(t, ok)
	require.Equal(t, "string", p.TypeName)
	_, ok = c.Lookup("query")
	require.False(t, ok)
}

func TestAllowsConstraint(t *testing.T) {
	component := usage.Detect(usage.Location{Kind: usage.TypeComment}, nil, nil)
	http := usage.Detect(usage.Location{Kind: usage.RegistrationCall}, nil, nil)

	for _, name := range []string{
		"length", "minlength", "maxlength", "regex", "range",
		"min", "max", "alpha", "required", "file", "Regex",
	} {
		require.False(t, component.AllowsConstraint(name), name)
		require.True(t, http.AllowsConstraint(name), name)
	}
	require.True(t, component.AllowsConstraint("int"))
	require.True(t, component.AllowsConstraint("guid"))
}

func TestSourceOf(t *testing.T) {
	tests := map[string]struct {
		param  usage.HostParameter
		expect usage.Source
	}{
		"plain":         {param: usage.HostParameter{Name: "id"}, expect: usage.SourceRoute},
		"query tag":     {param: usage.HostParameter{Name: "q", Tag: `query:"q"`}, expect: usage.SourceQuery},
		"json tag":      {param: usage.HostParameter{Name: "b", Tag: `json:"b"`}, expect: usage.SourceBody},
		"form tag":      {param: usage.HostParameter{Name: "f", Tag: `form:"f"`}, expect: usage.SourceForm},
		"header tag":    {param: usage.HostParameter{Name: "h", Tag: `header:"h"`}, expect: usage.SourceHeader},
		"service tag":   {param: usage.HostParameter{Name: "s", Tag: `service:""`}, expect: usage.SourceService},
		"signals name":  {param: usage.HostParameter{Name: "signals"}, expect: usage.SourceBody},
		"path tag":      {param: usage.HostParameter{Name: "x", Tag: `path:"x"`}, expect: usage.SourceRoute},
		"query by name": {param: usage.HostParameter{Name: "query"}, expect: usage.SourceQuery},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.expect, usage.SourceOf(tt.param))
		})
	}
}

func TestWellKnownTypes(t *testing.T) {
	wk := usage.NewWellKnownTypes("example.com/app.Deps")
	require.True(t, wk.IsSpecial(usage.HostParameter{TypeName: "example.com/app.Deps"}))
	require.True(t, wk.IsSpecial(usage.HostParameter{TypeName: "*example.com/auth.Session"}))
	require.True(t, wk.IsSpecial(usage.HostParameter{TypeName: "*mime/multipart.FileHeader"}))
	require.True(t, wk.IsSpecial(usage.HostParameter{
		TypeName: "example.com/app.Claims", Implements: []string{"github.com/golang-jwt/jwt/v5.Claims"},
	}))
	require.False(t, wk.IsSpecial(usage.HostParameter{TypeName: "string"}))
	require.Contains(t, wk.Interfaces(), "encoding.TextUnmarshaler")

	require.True(t, wk.IsBindable(usage.HostParameter{}))
	require.True(t, wk.IsBindable(usage.HostParameter{TypeName: "example.com/app.ID", Underlying: "int64"}))
	require.False(t, wk.IsBindable(usage.HostParameter{TypeName: "map[string]int", Underlying: "map[string]int"}))

	// A session set is shared between concurrent analyses.
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				require.True(t, wk.IsSpecial(usage.HostParameter{TypeName: "context.Context"}))
			}
		})
	}
	wg.Wait()
}

func TestStrings(t *testing.T) {
	require.Equal(t, "Http", usage.Http.String())
	require.Equal(t, "Component", usage.Component.String())
	require.Equal(t, "Unknown", usage.Type(0).String())
	require.Equal(t, "pathvalue", usage.SourcePathValue.String())
	require.Equal(t, "unknown", usage.Source(0).String())
}
