package parser

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/cache"
	"github.com/romshark/routelint/parser/internal/methodkind"
	"github.com/romshark/routelint/parser/internal/strlit"
	"github.com/romshark/routelint/parser/internal/structinspect"
	"github.com/romshark/routelint/parser/internal/typecheck"
	"github.com/romshark/routelint/parser/model"
	"github.com/romshark/routelint/routepattern"
	"github.com/romshark/routelint/usage"
)

// groupFuncs register a route prefix with a router callback
// instead of a handler.
var groupFuncs = map[string]struct{}{"Route": {}, "Group": {}}

func recvName(fd *ast.FuncDecl) string {
	return structinspect.ReceiverTypeName(fd.Recv.List[0].Type)
}

// passTypeComments finds page types declared by "// PageX is /route".
func (p *Parser) passTypeComments(ctx context.Context, pc *parseCtx, errs *Errors) {
	typeNames := make([]string, 0, len(pc.typeSpecByName))
	for name := range pc.typeSpecByName {
		typeNames = append(typeNames, name)
	}
	slices.Sort(typeNames)

	for _, name := range typeNames {
		if !p.isPageTypeName(name) {
			continue
		}
		ts := pc.typeSpecByName[name]
		typePos := pc.fset.Position(ts.Name.Pos())
		get := pc.methodsByRecv[name]["GET"]

		c, text, found, err := parseRouteComment(
			pc.fset, name, pickDoc(name, pc.docByType, pc.genDocByType),
		)
		if !found {
			if get != nil {
				errs.ErrAt(typePos, fmt.Errorf("%w: %s", ErrPageMissingRouteComment, name))
			}
			continue
		}
		if err != nil {
			errs.ErrAt(typePos, fmt.Errorf("%w: %s", err, name))
		}
		if text == nil {
			continue
		}

		r := p.newCommentRoute(pc, c, text, usage.Location{
			Kind: usage.TypeComment,
			Func: name,
		})
		r.Method = methodkind.GET.HTTPMethod()
		if get != nil {
			r.Handler = p.handlerOfDecl(pc, errs, get, name+".GET", r.Method)
		}
		p.finishRoute(ctx, pc, r)
	}
}

// isPageTypeName reports whether name is the page prefix
// followed by an upper case letter, like PageIndex.
func (p *Parser) isPageTypeName(name string) bool {
	rest, ok := strings.CutPrefix(name, p.pageTypePrefix)
	if !ok || rest == "" {
		return false
	}
	return unicode.IsUpper([]rune(rest)[0])
}

// passMethodComments finds attribute routes declared by
// "// GETX is /route" on handler methods.
func (p *Parser) passMethodComments(ctx context.Context, pc *parseCtx, errs *Errors) {
	for _, f := range pc.pkg.Syntax {
		for _, d := range f.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
				continue
			}
			kind, _ := methodkind.Classify(fd.Name.Name)
			if kind == 0 {
				continue
			}
			if _, ok := p.methodPrefixes[kind.HTTPMethod()]; !ok {
				continue
			}

			recv := recvName(fd)
			fn := recv + "." + fd.Name.Name
			c, text, found, err := parseRouteComment(pc.fset, fd.Name.Name, fd.Doc)
			if !found {
				continue
			}
			if err != nil {
				errs.ErrAt(pc.fset.Position(fd.Name.Pos()), fmt.Errorf("%w: %s", err, fn))
			}
			if text == nil {
				continue
			}

			r := p.newCommentRoute(pc, c, text, usage.Location{
				Kind: usage.MethodComment,
				Func: fn,
			})
			r.Method = kind.HTTPMethod()
			r.Handler = p.handlerOfDecl(pc, errs, fd, fn, r.Method)
			p.finishRoute(ctx, pc, r)
		}
	}
}

func (p *Parser) newCommentRoute(
	pc *parseCtx, c *ast.Comment, text routepattern.Text, loc usage.Location,
) *model.Route {
	pos := pc.fset.Position(c.Slash)
	return &model.Route{
		Expr:     c,
		Document: pos.Filename,
		Offset:   pos.Offset,
		Text:     text,
		Location: loc,
	}
}

// parseRouteComment parses "// Symbol is /route" from the first line
// of cg. found is true once the line starts with the symbol.
// text is set for every route that could be read, even if err != nil.
func parseRouteComment(
	fset *token.FileSet, symbol string, cg *ast.CommentGroup,
) (c *ast.Comment, text routepattern.Text, found bool, err error) {
	if cg == nil || len(cg.List) == 0 {
		return nil, nil, false, nil
	}

	// The definition MUST be on the first line.
	c = cg.List[0]
	body, ok := strings.CutPrefix(c.Text, "//")
	if !ok {
		return c, nil, false, nil
	}
	body = strings.TrimLeft(body, " \t")
	if !strings.HasPrefix(body, symbol+" ") {
		return c, nil, false, nil
	}

	// We *will* return found=true from here on.
	rest, ok := strings.CutPrefix(body, symbol+" is ")
	if !ok {
		return c, nil, true, ErrRouteCommentInvalid
	}
	trimmed := strings.TrimLeft(rest, " \t")
	route := strings.TrimRight(trimmed, " \t\r")
	if route == "" || strings.IndexFunc(route, unicode.IsSpace) >= 0 {
		return c, nil, true, ErrRouteCommentInvalid
	}

	off := fset.Position(c.Slash).Offset + len(c.Text) - len(trimmed)
	text = routepattern.TextFromStringAt(route, off)

	// The empty // line between the route and the description is mandatory.
	if len(cg.List) > 1 {
		second := strings.TrimSpace(strings.TrimPrefix(cg.List[1].Text, "//"))
		if second != "" {
			return c, text, true, ErrRouteCommentMissingGap
		}
	}
	return c, text, true, nil
}

// passRegistrationCalls finds patterns passed to registration calls.
func (p *Parser) passRegistrationCalls(ctx context.Context, pc *parseCtx, errs *Errors) {
	for _, f := range pc.pkg.Syntax {
		ast.Inspect(f, func(n ast.Node) bool {
			if ctx.Err() != nil {
				return false
			}
			if call, ok := n.(*ast.CallExpr); ok {
				p.registrationCall(ctx, pc, errs, call)
			}
			return true
		})
	}
}

func (p *Parser) registrationCall(
	ctx context.Context, pc *parseCtx, errs *Errors, call *ast.CallExpr,
) {
	name, obj := calleeOf(call.Fun, pc.info)
	if name == "" {
		return
	}

	m, ok := p.matchRegistration(pc, call, name, obj)
	if !ok {
		if m, ok = p.matchCallPlugins(call, name, pc.info); !ok {
			return
		}
	}

	arg := call.Args[m.PatternArg]
	text, ok := strlit.FromExpr(pc.fset, pc.info, arg)
	if !ok {
		p.log.Debug("skipping non-constant pattern",
			slog.String("func", name),
			slog.String("pos", pc.fset.Position(arg.Pos()).String()))
		return
	}

	method := m.Method
	if m.ServeMux {
		text, method = trimServeMuxPrefix(text, method)
	}

	pos := pc.fset.Position(arg.Pos())
	r := &model.Route{
		Expr:     arg,
		Document: pos.Filename,
		Offset:   pos.Offset,
		Text:     text,
		Location: usage.Location{
			Kind:     usage.RegistrationCall,
			Func:     name,
			ServeMux: m.ServeMux,
		},
		Method: method,
	}
	if m.HandlerArg >= 0 {
		r.Handler = p.handlerOf(pc, errs, call.Args[m.HandlerArg], method)
	}
	p.finishRoute(ctx, pc, r)
}

// matchRegistration recognizes calls by name. Standard library calls
// other than net/http.ServeMux registrations never match,
// which rules out http.Get or Header.Get.
func (p *Parser) matchRegistration(
	pc *parseCtx, call *ast.CallExpr, name string, obj types.Object,
) (CallMatch, bool) {
	if _, ok := p.registrationFuncs[name]; !ok {
		return CallMatch{}, false
	}
	m := CallMatch{
		PatternArg: -1,
		HandlerArg: -1,
		ServeMux:   isServeMuxRegistration(obj),
		Method:     methodOfFunc(name),
	}
	if !m.ServeMux && pc.isStd(obj) {
		return m, false
	}
	for i, a := range call.Args {
		if typecheck.IsString(pc.info.TypeOf(a)) {
			m.PatternArg = i
			break
		}
	}
	if m.PatternArg < 0 {
		return m, false
	}
	if _, group := groupFuncs[name]; group {
		return m, true
	}
	if m.PatternArg == len(call.Args)-1 {
		// Getters like cfg.Get("key") have no handler.
		return m, false
	}
	m.HandlerArg = len(call.Args) - 1
	return m, true
}

// calleeOf returns the called function or method name and its object.
func calleeOf(fun ast.Expr, info *types.Info) (string, types.Object) {
	switch f := ast.Unparen(fun).(type) {
	case *ast.Ident:
		return f.Name, info.Uses[f]
	case *ast.SelectorExpr:
		return f.Sel.Name, info.Uses[f.Sel]
	case *ast.IndexExpr:
		return calleeOf(f.X, info)
	case *ast.IndexListExpr:
		return calleeOf(f.X, info)
	}
	return "", nil
}

// isServeMuxRegistration reports whether obj is a method of
// net/http.ServeMux or the package-level http.Handle/HandleFunc.
func isServeMuxRegistration(obj types.Object) bool {
	fn, ok := obj.(*types.Func)
	if !ok {
		return false
	}
	if recv := fn.Signature().Recv(); recv != nil {
		return typecheck.IsNetHTTPServeMux(recv.Type())
	}
	return typecheck.IsNetHTTPObject(fn) &&
		(fn.Name() == "Handle" || fn.Name() == "HandleFunc")
}

// methodOfFunc returns the HTTP method implied by a registration
// function name like Get or MapPost.
func methodOfFunc(name string) string {
	switch m := strings.TrimPrefix(name, "Map"); m {
	case "Get", "Post", "Put", "Patch", "Delete",
		"Head", "Options", "Connect", "Trace":
		return strings.ToUpper(m)
	}
	return ""
}

// trimServeMuxPrefix strips "[METHOD ][HOST]" from a ServeMux pattern.
// Raw spans of the remaining chars are kept.
func trimServeMuxPrefix(
	text routepattern.Text, method string,
) (routepattern.Text, string) {
	if m, start, ok := methodkind.SplitMethodPrefix(text.String()); ok {
		// Method prefixes are ASCII so byte and char indexes agree.
		method = m
		text = text.Slice(start, len(text))
	}
	if len(text) > 0 && text[0].Value != '/' {
		i := slices.IndexFunc(text, func(c routepattern.VirtualChar) bool {
			return c.Value == '/'
		})
		if i > 0 {
			text = text.Slice(i, len(text))
		}
	}
	return text, method
}

// finishRoute detects the usage, parses and diagnoses r
// and adds it to the project.
func (p *Parser) finishRoute(ctx context.Context, pc *parseCtx, r *model.Route) {
	var facts *usage.HostFacts
	if r.Handler != nil {
		facts = r.Handler.Facts
	}
	facts = p.applyFactsPlugins(r, facts, pc.info)
	switch {
	case r.Handler != nil:
		r.Handler.Facts = facts
	case facts != nil:
		r.Handler = &model.Handler{Facts: facts}
	}

	build := func(ctx context.Context) (*routepattern.Tree, usage.Context, error) {
		u := usage.Detect(r.Location, facts, p.wk)
		if u.Method == "" {
			u.Method = r.Method
		}
		tree, err := routepattern.ParseContext(ctx, r.Text, u.Options())
		return tree, u, err
	}

	var (
		tree *routepattern.Tree
		u    usage.Context
		err  error
	)
	if v, ok := pc.version(r.Document); ok && p.cache != nil {
		key := cache.Key{Document: r.Document, Version: v, Offset: r.Offset}
		tree, u, err = p.cache.GetOrBuild(ctx, key, build)
	} else {
		tree, u, err = build(ctx)
	}
	if err != nil {
		p.log.Debug("route not analyzed",
			slog.String("document", r.Document),
			slog.Int("offset", r.Offset),
			slog.Any("err", err))
		return
	}

	r.Tree, r.Usage = tree, u
	r.Diagnostics = analysis.Diagnose(tree, u)
	pc.proj.Routes = append(pc.proj.Routes, r)
}
