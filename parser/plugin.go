package parser

import (
	"go/ast"
	"go/types"

	"github.com/romshark/routelint/parser/model"
	"github.com/romshark/routelint/usage"
)

// Plugin defines the interface for parser plugins that can
// recognize additional registration calls and rewrite the
// handler facts of a route.
type Plugin interface {
	// OnCall is called for every call expression that is not
	// a registration call by name.
	// Returning true registers the call as a route.
	OnCall(ctx *CallContext) (CallMatch, bool)

	// OnHandlerFacts is called after the handler facts of a route
	// are collected and before its usage is detected.
	// It may modify or replace ctx.Facts.
	OnHandlerFacts(ctx *FactsContext)
}

// CallContext provides context to plugins when inspecting calls.
type CallContext struct {
	Call *ast.CallExpr

	// FuncName is the called function or method name.
	FuncName string

	// TypesInfo provides type information from the Go type checker.
	TypesInfo *types.Info
}

// CallMatch describes a registration call recognized by a plugin.
type CallMatch struct {
	// PatternArg is the index of the pattern argument.
	PatternArg int

	// HandlerArg is the index of the handler argument, or -1.
	HandlerArg int

	Method   string
	ServeMux bool
}

// FactsContext provides context to plugins when processing handlers.
type FactsContext struct {
	Route *model.Route

	// Facts is nil when the handler is unknown.
	Facts *usage.HostFacts

	// TypesInfo provides type information from the Go type checker.
	TypesInfo *types.Info
}

// BasePlugin provides a default implementation of the Plugin interface
// with no-op methods. Embed this in your plugin to only implement
// the hooks you need.
type BasePlugin struct{}

func (BasePlugin) OnCall(*CallContext) (CallMatch, bool) { return CallMatch{}, false }
func (BasePlugin) OnHandlerFacts(*FactsContext)          {}
