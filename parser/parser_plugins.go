package parser

import (
	"go/ast"
	"go/types"

	"github.com/romshark/routelint/parser/model"
	"github.com/romshark/routelint/usage"
)

// matchCallPlugins asks the registered plugins to recognize a call.
// The first plugin to match wins.
func (p *Parser) matchCallPlugins(
	call *ast.CallExpr, name string, info *types.Info,
) (CallMatch, bool) {
	if len(p.plugins) == 0 {
		return CallMatch{}, false
	}

	ctx := &CallContext{
		Call:      call,
		FuncName:  name,
		TypesInfo: info,
	}
	for _, plugin := range p.plugins {
		m, ok := plugin.OnCall(ctx)
		if !ok {
			continue
		}
		if m.PatternArg < 0 || m.PatternArg >= len(call.Args) {
			p.log.Debug("plugin call match out of range",
				"func", name, "patternArg", m.PatternArg)
			continue
		}
		if m.HandlerArg >= len(call.Args) {
			m.HandlerArg = -1
		}
		return m, true
	}
	return CallMatch{}, false
}

// applyFactsPlugins invokes all registered plugins for the
// handler facts of a route.
func (p *Parser) applyFactsPlugins(
	r *model.Route, facts *usage.HostFacts, info *types.Info,
) *usage.HostFacts {
	if len(p.plugins) == 0 {
		return facts
	}

	ctx := &FactsContext{
		Route:     r,
		Facts:     facts,
		TypesInfo: info,
	}
	for _, plugin := range p.plugins {
		plugin.OnHandlerFacts(ctx)
	}
	return ctx.Facts
}
