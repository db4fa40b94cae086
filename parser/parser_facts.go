package parser

import (
	"go/ast"
	"go/constant"
	"go/types"

	"github.com/romshark/routelint/parser/internal/paramvalidation"
	"github.com/romshark/routelint/parser/internal/structinspect"
	"github.com/romshark/routelint/parser/internal/structtag"
	"github.com/romshark/routelint/parser/internal/typecheck"
	"github.com/romshark/routelint/parser/model"
	"github.com/romshark/routelint/usage"
)

// maxExpandDepth bounds nested `routelint:"expand"` fields.
const maxExpandDepth = 4

// handlerOf collects the facts of a handler argument: a func literal,
// a func or method value, a conversion like http.HandlerFunc(fn)
// or a value with a ServeHTTP method.
// Facts stay nil if nothing is known about the handler.
func (p *Parser) handlerOf(
	pc *parseCtx, errs *Errors, e ast.Expr, method string,
) *model.Handler {
	e = ast.Unparen(e)
	h := &model.Handler{Expr: e, Name: types.ExprString(e)}

	switch x := e.(type) {
	case *ast.FuncLit:
		h.Facts = p.factsOfFunc(pc, errs, x.Type, x.Body, h.Name, method)
		return h
	case *ast.CallExpr:
		if tv, ok := pc.info.Types[x.Fun]; ok && tv.IsType() && len(x.Args) == 1 {
			inner := p.handlerOf(pc, errs, x.Args[0], method)
			inner.Expr = e
			return inner
		}
	}

	if fd := pc.declOf(e); fd != nil {
		h.Facts = p.factsOfFunc(pc, errs, fd.Type, fd.Body, h.Name, method)
		return h
	}

	t := pc.info.TypeOf(e)
	if sig, ok := typecheck.Signature(t); ok {
		h.Facts = p.factsOfSignature(pc, errs, sig, h.Name, method)
		return h
	}
	if fd := pc.serveHTTPOf(t); fd != nil {
		h.Facts = p.factsOfFunc(pc, errs, fd.Type, fd.Body, h.Name, method)
	}
	return h
}

// handlerOfDecl collects the facts of a handler method.
func (p *Parser) handlerOfDecl(
	pc *parseCtx, errs *Errors, fd *ast.FuncDecl, name, method string,
) *model.Handler {
	return &model.Handler{
		Expr:  fd.Name,
		Name:  name,
		Facts: p.factsOfFunc(pc, errs, fd.Type, fd.Body, name, method),
	}
}

// declOf returns the declaration of a func or method value.
func (pc *parseCtx) declOf(e ast.Expr) *ast.FuncDecl {
	var obj types.Object
	switch x := e.(type) {
	case *ast.Ident:
		obj = pc.info.Uses[x]
	case *ast.SelectorExpr:
		if sel := pc.info.Selections[x]; sel != nil {
			obj = sel.Obj()
		} else {
			obj = pc.info.Uses[x.Sel]
		}
	}
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil
	}
	return pc.funcDecls[fn.Origin()]
}

// serveHTTPOf returns the declaration of t's ServeHTTP method.
func (pc *parseCtx) serveHTTPOf(t types.Type) *ast.FuncDecl {
	if t == nil {
		return nil
	}
	obj, _, _ := types.LookupFieldOrMethod(t, true, pc.pkg.Types, "ServeHTTP")
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil
	}
	return pc.funcDecls[fn.Origin()]
}

func (p *Parser) factsOfFunc(
	pc *parseCtx, errs *Errors,
	ft *ast.FuncType, body *ast.BlockStmt, fn, method string,
) *usage.HostFacts {
	if f, ok := pc.facts[ft]; ok {
		return withMethod(f, method)
	}

	f := &usage.HostFacts{}
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			if len(field.Names) == 0 {
				t := pc.info.TypeOf(field.Type)
				f.Parameters = append(f.Parameters,
					p.hostParam(pc, errs, "", t, field.Type, fn))
				continue
			}
			for _, id := range field.Names {
				obj := pc.info.Defs[id]
				if obj == nil {
					continue
				}
				f.Parameters = append(f.Parameters,
					p.hostParam(pc, errs, id.Name, obj.Type(), id, fn))
			}
		}
	}
	f.PathValues = pathValues(pc.info, body)
	pc.facts[ft] = f
	return withMethod(f, method)
}

func (p *Parser) factsOfSignature(
	pc *parseCtx, errs *Errors, sig *types.Signature, fn, method string,
) *usage.HostFacts {
	f := &usage.HostFacts{Method: method}
	for v := range sig.Params().Variables() {
		hp := p.hostParam(pc, errs, v.Name(), v.Type(), nil, fn)
		hp.Pos = v.Pos()
		f.Parameters = append(f.Parameters, hp)
	}
	return f
}

func withMethod(f *usage.HostFacts, method string) *usage.HostFacts {
	c := *f
	c.Method = method
	return &c
}

// hostParam converts a handler parameter. at positions it
// and may be nil.
func (p *Parser) hostParam(
	pc *parseCtx, errs *Errors, name string, t types.Type, at ast.Node, fn string,
) usage.HostParameter {
	hp := p.hostType(pc, name, t)
	if at != nil {
		hp.Pos = at.Pos()
	}

	if paramvalidation.IsPathParam(name) {
		if err := paramvalidation.ValidatePathStruct(t, fn); err != nil {
			errs.ErrAt(pc.fset.Position(hp.Pos), err)
		}
		hp.Fields = p.fieldsOf(pc, t, true, 0)
		return hp
	}
	// A struct with path tagged fields is a parameter object too.
	if fields := p.fieldsOf(pc, t, false, 0); len(fields) > 0 {
		hp.Expand = true
		hp.Fields = fields
	}
	return hp
}

func (p *Parser) hostType(pc *parseCtx, name string, t types.Type) usage.HostParameter {
	return usage.HostParameter{
		Name:       name,
		TypeName:   typecheck.TypeName(t),
		Underlying: typecheck.UnderlyingName(t),
		Implements: typecheck.Implemented(t, pc.ifaces),
	}
}

// fieldsOf returns the fields of a parameter object. Unless all is set
// only fields with a path tag are included. Fields tagged
// `routelint:"expand"` are flattened.
func (p *Parser) fieldsOf(
	pc *parseCtx, t types.Type, all bool, depth int,
) []usage.HostParameter {
	st, ok := typecheck.StructOf(t)
	if !ok || depth > maxExpandDepth {
		return nil
	}
	var out []usage.HostParameter
	for _, f := range structinspect.Fields(st) {
		if structtag.IsExpand(f.Tag) {
			out = append(out, p.fieldsOf(pc, f.Var.Type(), true, depth+1)...)
			continue
		}
		if !all {
			if _, ok := structtag.Lookup(f.Tag, "path"); !ok {
				continue
			}
		}
		hp := p.hostType(pc, f.Var.Name(), f.Var.Type())
		hp.Tag = f.Tag
		hp.Pos = f.Var.Pos()
		out = append(out, hp)
	}
	return out
}

// pathValues finds r.PathValue("name") reads with a constant name.
func pathValues(info *types.Info, body *ast.BlockStmt) []usage.PathValue {
	if body == nil {
		return nil
	}
	var out []usage.PathValue
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || len(call.Args) != 1 {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "PathValue" ||
			!typecheck.IsPtrToNetHTTPReq(sel.X, info) {
			return true
		}
		tv := info.Types[call.Args[0]]
		if tv.Value == nil || tv.Value.Kind() != constant.String {
			return true
		}
		out = append(out, usage.PathValue{
			Name: constant.StringVal(tv.Value),
			Pos:  call.Args[0].Pos(),
		})
		return true
	})
	return out
}
