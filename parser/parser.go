// Package parser finds route patterns in a Go package, collects what
// is known about their handlers and analyzes them.
package parser

import (
	"cmp"
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/romshark/routelint/cache"
	"github.com/romshark/routelint/parser/internal/typecheck"
	"github.com/romshark/routelint/parser/model"
	"github.com/romshark/routelint/usage"

	"golang.org/x/tools/go/packages"
)

// DefaultRegistrationFuncs are the function and method names whose
// first string argument is a route pattern.
var DefaultRegistrationFuncs = []string{
	"Handle", "HandleFunc",
	"Get", "Post", "Put", "Patch", "Delete",
	"Head", "Options", "Connect", "Trace",
	"Route", "Group",
	"MapGet", "MapPost", "MapPut", "MapDelete", "MapPatch",
}

// DefaultMethodPrefixes are the handler method name prefixes
// that declare attribute routes in doc comments.
var DefaultMethodPrefixes = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// DefaultPageTypePrefix is the name prefix of page types.
const DefaultPageTypePrefix = "Page"

type Parser struct {
	log               *slog.Logger
	registrationFuncs map[string]struct{}
	methodPrefixes    map[string]struct{}
	pageTypePrefix    string
	wk                *usage.WellKnownTypes
	cache             *cache.Cache
	plugins           []Plugin
}

type Option func(*Parser)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// WithRegistrationFuncs replaces DefaultRegistrationFuncs.
func WithRegistrationFuncs(names ...string) Option {
	return func(p *Parser) { p.registrationFuncs = setOf(names) }
}

// WithMethodPrefixes replaces DefaultMethodPrefixes.
func WithMethodPrefixes(prefixes ...string) Option {
	return func(p *Parser) { p.methodPrefixes = setOf(prefixes) }
}

// WithPageTypePrefix replaces DefaultPageTypePrefix.
func WithPageTypePrefix(prefix string) Option {
	return func(p *Parser) { p.pageTypePrefix = prefix }
}

// WithNonBindableTypes adds fully qualified type names that are
// provided by the framework and never bound from the route.
func WithNonBindableTypes(typeNames ...string) Option {
	return func(p *Parser) { p.wk = usage.NewWellKnownTypes(typeNames...) }
}

// WithCache memoizes route trees of versioned documents,
// see Overlay.Versions.
func WithCache(c *cache.Cache) Option {
	return func(p *Parser) { p.cache = c }
}

// WithPlugins registers plugins in the order given.
func WithPlugins(plugins ...Plugin) Option {
	return func(p *Parser) { p.plugins = append(p.plugins, plugins...) }
}

// New creates a parser. A Parser is safe for concurrent use.
func New(opts ...Option) *Parser {
	p := &Parser{
		log:               slog.Default(),
		registrationFuncs: setOf(DefaultRegistrationFuncs),
		methodPrefixes:    setOf(DefaultMethodPrefixes),
		pageTypePrefix:    DefaultPageTypePrefix,
	}
	for _, o := range opts {
		o(p)
	}
	if p.wk == nil {
		p.wk = usage.NewWellKnownTypes()
	}
	return p
}

func setOf(s []string) map[string]struct{} {
	m := make(map[string]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	return m
}

// Overlay overrides files for a single parse.
type Overlay struct {
	// Files maps absolute file paths to unsaved contents.
	Files map[string][]byte

	// Versions maps absolute file paths to document versions.
	// Routes in versioned files are memoized if the parser has a cache.
	Versions map[string]int32
}

// Parse loads and analyzes the package in directory or import path
// patternOrDir.
func (p *Parser) Parse(patternOrDir string) (*model.Project, Errors) {
	return p.ParseContext(context.Background(), patternOrDir, nil)
}

// ParseContext is like Parse. ov may be nil.
func (p *Parser) ParseContext(
	ctx context.Context, patternOrDir string, ov *Overlay,
) (proj *model.Project, errs Errors) {
	defer sortErrors(&errs)

	pkg, err := loadPackage(ctx, patternOrDir, ov)
	if err != nil {
		errs.Err(err)
		return nil, errs
	}

	for _, pe := range pkg.Errors {
		errs.ErrAt(posFromPackagesError(pe), pe)
	}
	if pkg.Types == nil || pkg.TypesInfo == nil || len(pkg.Syntax) == 0 {
		errs.ErrAt(earliestPkgPos(pkg), ErrMissingTypeInfo)
		return nil, errs
	}

	pc := newParseCtx(pkg, ov)
	indexDecls(&pc)
	p.resolveInterfaces(&pc)
	p.passTypeComments(ctx, &pc, &errs)
	p.passMethodComments(ctx, &pc, &errs)
	p.passRegistrationCalls(ctx, &pc, &errs)

	if err := ctx.Err(); err != nil {
		errs.Err(err)
		return nil, errs
	}

	slices.SortFunc(pc.proj.Routes, func(a, b *model.Route) int {
		return cmp.Or(
			strings.Compare(a.Document, b.Document),
			cmp.Compare(a.Offset, b.Offset),
		)
	})
	p.log.Debug("parsed package",
		slog.String("package", pkg.PkgPath),
		slog.Int("routes", len(pc.proj.Routes)))
	return pc.proj, errs
}

type parseCtx struct {
	pkg  *packages.Package
	fset *token.FileSet
	info *types.Info
	ov   *Overlay

	typeSpecByName map[string]*ast.TypeSpec
	docByType      map[string]*ast.CommentGroup
	genDocByType   map[string]*ast.CommentGroup

	// recv type name -> method name -> decl
	methodsByRecv map[string]map[string]*ast.FuncDecl
	funcDecls     map[types.Object]*ast.FuncDecl

	// Handler facts by function type, shared by routes with the same handler.
	facts map[*ast.FuncType]*usage.HostFacts

	// Well-known interfaces resolved in the dependency graph.
	ifaces map[string]*types.Interface

	// Standard library packages in the dependency graph.
	std map[string]bool

	proj *model.Project
}

func newParseCtx(pkg *packages.Package, ov *Overlay) parseCtx {
	proj := &model.Project{
		Fset:    pkg.Fset,
		Package: pkg.PkgPath,
		Name:    pkg.Name,
		Files:   pkg.GoFiles,
	}
	if len(pkg.GoFiles) > 0 {
		proj.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	return parseCtx{
		pkg:            pkg,
		fset:           pkg.Fset,
		info:           pkg.TypesInfo,
		ov:             ov,
		typeSpecByName: map[string]*ast.TypeSpec{},
		docByType:      map[string]*ast.CommentGroup{},
		genDocByType:   map[string]*ast.CommentGroup{},
		methodsByRecv:  map[string]map[string]*ast.FuncDecl{},
		funcDecls:      map[types.Object]*ast.FuncDecl{},
		facts:          map[*ast.FuncType]*usage.HostFacts{},
		ifaces:         map[string]*types.Interface{},
		std:            map[string]bool{},
		proj:           proj,
	}
}

func indexDecls(pc *parseCtx) {
	for _, f := range pc.pkg.Syntax {
		for _, d := range f.Decls {
			switch d := d.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, s := range d.Specs {
					ts, ok := s.(*ast.TypeSpec)
					if !ok {
						continue
					}
					name := ts.Name.Name
					pc.typeSpecByName[name] = ts
					if ts.Doc != nil {
						pc.docByType[name] = ts.Doc
					} else if d.Doc != nil {
						pc.genDocByType[name] = d.Doc
					}
				}
			case *ast.FuncDecl:
				if obj := pc.info.Defs[d.Name]; obj != nil {
					pc.funcDecls[obj] = d
				}
				if d.Recv == nil || len(d.Recv.List) == 0 {
					continue
				}
				recv := recvName(d)
				if pc.methodsByRecv[recv] == nil {
					pc.methodsByRecv[recv] = map[string]*ast.FuncDecl{}
				}
				pc.methodsByRecv[recv][d.Name.Name] = d
			}
		}
	}
}

// resolveInterfaces finds the well-known interfaces in the
// dependency graph and records which packages are standard library.
func (p *Parser) resolveInterfaces(pc *parseCtx) {
	want := map[string][]string{} // package path -> qualified names
	for _, q := range p.wk.Interfaces() {
		path, _, ok := typecheck.SplitQualified(q)
		if ok {
			want[path] = append(want[path], q)
		}
	}

	packages.Visit([]*packages.Package{pc.pkg}, func(dep *packages.Package) bool {
		if dep != pc.pkg && dep.Module == nil {
			pc.std[dep.PkgPath] = true
		}
		if dep.Types == nil {
			return true
		}
		for _, q := range want[dep.PkgPath] {
			_, name, _ := typecheck.SplitQualified(q)
			obj, ok := dep.Types.Scope().Lookup(name).(*types.TypeName)
			if !ok {
				continue
			}
			if iface, ok := obj.Type().Underlying().(*types.Interface); ok {
				pc.ifaces[q] = iface
			}
		}
		return true
	}, nil)

	const textUnmarshaler = "encoding.TextUnmarshaler"
	if _, ok := pc.ifaces[textUnmarshaler]; !ok {
		pc.ifaces[textUnmarshaler] = typecheck.TextUnmarshaler()
	}
}

// isStd reports whether obj is declared in the standard library.
func (pc *parseCtx) isStd(obj types.Object) bool {
	return obj != nil && obj.Pkg() != nil && pc.std[obj.Pkg().Path()]
}

// version returns the document version of a file from the overlay.
func (pc *parseCtx) version(file string) (int32, bool) {
	if pc.ov == nil {
		return 0, false
	}
	v, ok := pc.ov.Versions[file]
	return v, ok
}

func loadPackage(
	ctx context.Context, patternOrDir string, ov *Overlay,
) (*packages.Package, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedDeps |
			packages.NeedTypes |
			packages.NeedTypesInfo |
			packages.NeedSyntax |
			packages.NeedModule,
	}
	if ov != nil {
		cfg.Overlay = ov.Files
	}

	// Accept either an import path/pattern or a directory.
	pattern := patternOrDir
	if st, err := os.Stat(patternOrDir); err == nil && st.IsDir() {
		cfg.Dir, pattern = patternOrDir, "."
	} else if filepath.IsAbs(patternOrDir) {
		// go list doesn't like absolute patterns;
		// fall back to the file's directory if possible.
		dir := filepath.Dir(patternOrDir)
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			cfg.Dir, pattern = dir, "."
		}
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, err
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("%w, got %d", ErrExpectedOnePkg, len(pkgs))
	}
	return pkgs[0], nil
}

// ListedPackage is a package matched by List.
type ListedPackage struct {
	Path    string
	Dir     string
	GoFiles []string
}

// List resolves package patterns like "./..." relative to dir
// without type checking. Packages without Go files are skipped.
func List(ctx context.Context, dir string, patterns ...string) ([]ListedPackage, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    packages.NeedName | packages.NeedFiles,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, err
	}
	out := make([]ListedPackage, 0, len(pkgs))
	for _, pkg := range pkgs {
		if len(pkg.GoFiles) == 0 {
			continue
		}
		out = append(out, ListedPackage{
			Path:    pkg.PkgPath,
			Dir:     filepath.Dir(pkg.GoFiles[0]),
			GoFiles: pkg.GoFiles,
		})
	}
	slices.SortFunc(out, func(a, b ListedPackage) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out, nil
}

func pickDoc(
	typeName string, docByType, genDocByType map[string]*ast.CommentGroup,
) *ast.CommentGroup {
	if d := docByType[typeName]; d != nil {
		return d
	}
	return genDocByType[typeName]
}
