// Package usage detects how a route pattern is used by its host code
// and which handler parameters can bind to its route parameters.
package usage

import (
	"go/token"
	"reflect"
	"slices"
	"strings"

	"github.com/romshark/routelint/routepattern"
)

// Type is the kind of route a pattern declares.
type Type int8

const (
	_ Type = iota

	// Http is a free route passed to a registration call
	// or declared on a handler method.
	Http

	// Component is a page route declared on a page type.
	Component
)

func (t Type) String() string {
	switch t {
	case Http:
		return "Http"
	case Component:
		return "Component"
	}
	return "Unknown"
}

// ContainerKind is the host construct a pattern was found in.
type ContainerKind int8

const (
	_ ContainerKind = iota

	// RegistrationCall is a string argument of a call like mux.HandleFunc.
	RegistrationCall

	// MethodComment is a route doc comment on a handler method (GETX is ...).
	MethodComment

	// TypeComment is a route doc comment on a page type (PageX is ...).
	TypeComment
)

// Location describes where a pattern was found.
type Location struct {
	Kind ContainerKind

	// Func is the registration function, method or type name.
	Func string

	// ServeMux is set when the pattern is handed to net/http.ServeMux
	// and follows its wildcard dialect.
	ServeMux bool
}

// Source is where a handler parameter takes its value from.
type Source int8

const (
	_ Source = iota
	SourceRoute
	SourceSpecial
	SourceQuery
	SourceBody
	SourceForm
	SourceHeader
	SourceService
	SourcePathValue
)

func (s Source) String() string {
	switch s {
	case SourceRoute:
		return "route"
	case SourceSpecial:
		return "special"
	case SourceQuery:
		return "query"
	case SourceBody:
		return "body"
	case SourceForm:
		return "form"
	case SourceHeader:
		return "header"
	case SourceService:
		return "service"
	case SourcePathValue:
		return "pathvalue"
	}
	return "unknown"
}

// HostParameter is a handler parameter or a field of a parameter object
// as seen by the host adapter.
type HostParameter struct {
	Name string

	// Tag is the raw struct tag of a parameter object field.
	Tag string

	// TypeName is the fully qualified type, e.g. "*net/http.Request".
	TypeName string

	// Underlying is the fully qualified underlying type.
	Underlying string

	// Implements lists the well-known interfaces the type implements.
	Implements []string

	// Expand marks a parameter object to be flattened one level.
	Expand bool

	Fields []HostParameter
	Pos    token.Pos
}

// HostFacts is what the host adapter knows about the handler of a route.
type HostFacts struct {
	// Method is the HTTP method, if known.
	Method     string
	Parameters []HostParameter

	// PathValues are the names read through r.PathValue("name").
	PathValues []PathValue
}

// PathValue is a r.PathValue("name") read inside a handler body.
type PathValue struct {
	Name string
	Pos  token.Pos
}

// ResolvedParameter is a handler parameter a route parameter may bind to.
type ResolvedParameter struct {
	Name            string
	TypeName        string
	BindingEligible bool
	Source          Source
	Pos             token.Pos
}

// Context is the usage of a single route pattern.
type Context struct {
	Type                    Type
	IsAttributeRoute        bool
	SupportTokenReplacement bool
	ServeMux                bool
	Method                  string

	// HasHandler is false when nothing is known about the handler.
	HasHandler bool

	// HasParameterObject is set when a parameter object was flattened.
	HasParameterObject bool

	ResolvedParameters []ResolvedParameter
}

// componentDisallowed are the constraints that have no meaning
// for page routes.
var componentDisallowed = map[string]struct{}{
	"length":    {},
	"minlength": {},
	"maxlength": {},
	"regex":     {},
	"range":     {},
	"min":       {},
	"max":       {},
	"alpha":     {},
	"required":  {},
	"file":      {},
}

// Options returns the parser options for a pattern with this usage.
func (c Context) Options() routepattern.Options {
	return routepattern.Options{
		SupportTokenReplacement: c.SupportTokenReplacement,
		ServeMux:                c.ServeMux,
	}
}

// AllowsConstraint reports whether the named constraint is allowed.
func (c Context) AllowsConstraint(name string) bool {
	if c.Type != Component {
		return true
	}
	_, ok := componentDisallowed[strings.ToLower(name)]
	return !ok
}

// Eligible returns the parameters a route parameter can bind to.
func (c Context) Eligible() []ResolvedParameter {
	var out []ResolvedParameter
	for _, p := range c.ResolvedParameters {
		if p.BindingEligible {
			out = append(out, p)
		}
	}
	return out
}

// Lookup finds a resolved parameter by case-insensitive name.
func (c Context) Lookup(name string) (ResolvedParameter, bool) {
	for _, p := range c.ResolvedParameters {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return ResolvedParameter{}, false
}

// Detect determines the usage context of a pattern found at loc.
// facts may be nil when the handler is unknown.
func Detect(loc Location, facts *HostFacts, wk *WellKnownTypes) Context {
	c := Context{Type: Http, ServeMux: loc.ServeMux}
	switch loc.Kind {
	case TypeComment:
		c.Type = Component
	case MethodComment:
		c.IsAttributeRoute = true
		c.SupportTokenReplacement = true
	}
	if facts == nil {
		return c
	}
	if wk == nil {
		wk = NewWellKnownTypes()
	}
	c.HasHandler = true
	c.Method = facts.Method

	for _, p := range facts.Parameters {
		if p.Name == "path" || p.Expand {
			c.HasParameterObject = true
			for _, f := range p.Fields {
				if r, ok := resolve(f, fieldName(f), wk); ok {
					c.ResolvedParameters = append(c.ResolvedParameters, r)
				}
			}
			continue
		}
		if r, ok := resolve(p, p.Name, wk); ok {
			c.ResolvedParameters = append(c.ResolvedParameters, r)
		}
	}

	for _, v := range facts.PathValues {
		if slices.ContainsFunc(c.ResolvedParameters, func(r ResolvedParameter) bool {
			return r.Source == SourcePathValue && r.Name == v.Name
		}) {
			continue
		}
		c.ResolvedParameters = append(c.ResolvedParameters, ResolvedParameter{
			Name:            v.Name,
			TypeName:        "string",
			BindingEligible: true,
			Source:          SourcePathValue,
			Pos:             v.Pos,
		})
	}
	return c
}

// resolve returns false for parameters that are not taken from the route.
func resolve(p HostParameter, name string, wk *WellKnownTypes) (ResolvedParameter, bool) {
	if name == "" || name == "_" {
		return ResolvedParameter{}, false
	}
	if s := SourceOf(p); s != SourceRoute {
		return ResolvedParameter{}, false
	}
	if wk.IsSpecial(p) {
		return ResolvedParameter{}, false
	}
	return ResolvedParameter{
		Name:            name,
		TypeName:        p.TypeName,
		BindingEligible: wk.IsBindable(p),
		Source:          SourceRoute,
		Pos:             p.Pos,
	}, true
}

// SourceOf returns the binding source declared by the parameter's name
// or struct tag. Special types are not considered.
func SourceOf(p HostParameter) Source {
	tag := reflect.StructTag(p.Tag)
	for _, k := range [...]struct {
		key string
		src Source
	}{
		{"query", SourceQuery},
		{"json", SourceBody},
		{"body", SourceBody},
		{"form", SourceForm},
		{"header", SourceHeader},
		{"service", SourceService},
	} {
		if _, ok := tag.Lookup(k.key); ok {
			return k.src
		}
	}
	switch p.Name {
	case "query":
		return SourceQuery
	case "body", "signals":
		return SourceBody
	case "form":
		return SourceForm
	case "header", "headers":
		return SourceHeader
	}
	return SourceRoute
}

// fieldName returns the route name of a parameter object field,
// taken from its path tag when present.
func fieldName(f HostParameter) string {
	if v, ok := reflect.StructTag(f.Tag).Lookup("path"); ok {
		if name, _, _ := strings.Cut(v, ","); name != "" {
			return name
		}
	}
	return f.Name
}
