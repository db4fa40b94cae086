package parser_test

import (
	"fmt"
	"path/filepath"

	"github.com/romshark/routelint/parser"
	"github.com/romshark/routelint/usage"
)

// EndpointPlugin recognizes Endpoint(method, pattern, handler) calls
// and declares the handler's "tenant" parameter as framework provided.
type EndpointPlugin struct {
	parser.BasePlugin
}

func (EndpointPlugin) OnCall(ctx *parser.CallContext) (parser.CallMatch, bool) {
	if ctx.FuncName != "Endpoint" || len(ctx.Call.Args) != 3 {
		return parser.CallMatch{}, false
	}
	return parser.CallMatch{PatternArg: 1, HandlerArg: 2, Method: "GET"}, true
}

func (EndpointPlugin) OnHandlerFacts(ctx *parser.FactsContext) {
	if ctx.Facts == nil {
		return
	}
	f := *ctx.Facts
	f.Parameters = nil
	for _, p := range ctx.Facts.Parameters {
		if p.Name == "tenant" {
			p.Tag = `service:""`
		}
		f.Parameters = append(f.Parameters, p)
	}
	ctx.Facts = &f
}

var _ parser.Plugin = EndpointPlugin{}

func ExamplePlugin() {
	p := parser.New(
		parser.WithLogger(discardLogger()),
		parser.WithPlugins(EndpointPlugin{}),
	)
	proj, errs := p.Parse(filepath.Join("testdata", "framework"))
	if errs.Len() > 0 {
		fmt.Println(errs.Error())
		return
	}
	for _, r := range proj.Routes {
		if r.Location.Kind != usage.RegistrationCall || r.Location.Func != "Endpoint" {
			continue
		}
		fmt.Println(r.Method, r.Pattern(), len(r.Diagnostics))
	}
	// Output:
	// GET /plugin/{id} 0
}
