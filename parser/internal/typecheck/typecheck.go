// Package typecheck provides type-checking predicates for
// registration calls and handler signatures.
package typecheck

import (
	"go/ast"
	"go/token"
	"go/types"
	"slices"
	"strings"
)

// IsString reports whether t's underlying type is string.
func IsString(t types.Type) bool {
	if t == nil {
		return false
	}
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsString != 0
}

// IsPtrToNetHTTPReq reports whether expr resolves to
// *net/http.Request.
func IsPtrToNetHTTPReq(
	expr ast.Expr, info *types.Info,
) bool {
	t := info.TypeOf(expr)
	if t == nil {
		return false
	}
	ptr, ok := t.(*types.Pointer)
	if !ok {
		return false
	}
	return isNamed(ptr.Elem(), "net/http", "Request")
}

// IsNetHTTPServeMux reports whether t is net/http.ServeMux
// or a pointer to it.
func IsNetHTTPServeMux(t types.Type) bool {
	if t == nil {
		return false
	}
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	return isNamed(t, "net/http", "ServeMux")
}

// IsNetHTTPObject reports whether obj is declared in package net/http.
func IsNetHTTPObject(obj types.Object) bool {
	return obj != nil && obj.Pkg() != nil && obj.Pkg().Path() == "net/http"
}

func isNamed(t types.Type, pkgPath, name string) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	if obj == nil || obj.Pkg() == nil {
		return false
	}
	return obj.Pkg().Path() == pkgPath && obj.Name() == name
}

// TypeName returns the fully qualified name of t,
// e.g. "*net/http.Request".
func TypeName(t types.Type) string {
	if t == nil {
		return ""
	}
	return types.TypeString(t, nil)
}

// UnderlyingName returns the fully qualified name of the
// underlying type of t. Pointers are followed one level.
func UnderlyingName(t types.Type) string {
	if t == nil {
		return ""
	}
	if ptr, ok := t.(*types.Pointer); ok {
		return "*" + types.TypeString(ptr.Elem().Underlying(), nil)
	}
	return types.TypeString(t.Underlying(), nil)
}

// Signature returns the function signature of t, if any.
func Signature(t types.Type) (*types.Signature, bool) {
	if t == nil {
		return nil, false
	}
	sig, ok := t.Underlying().(*types.Signature)
	return sig, ok
}

// StructOf returns the struct underlying t, following one pointer.
func StructOf(t types.Type) (*types.Struct, bool) {
	if t == nil {
		return nil, false
	}
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	st, ok := t.Underlying().(*types.Struct)
	return st, ok
}

// Implemented returns the names of the interfaces in ifaces that t
// implements, either directly or through its pointer.
// The result is sorted.
func Implemented(t types.Type, ifaces map[string]*types.Interface) []string {
	if t == nil || len(ifaces) == 0 {
		return nil
	}
	var ptr types.Type
	switch t.Underlying().(type) {
	case *types.Pointer, *types.Interface:
	default:
		ptr = types.NewPointer(t)
	}
	var out []string
	for name, iface := range ifaces {
		if types.Implements(t, iface) ||
			(ptr != nil && types.Implements(ptr, iface)) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// SplitQualified splits "encoding.TextUnmarshaler" or
// "io/fs.File" into package path and name.
func SplitQualified(qualified string) (pkgPath, name string, ok bool) {
	i := strings.LastIndexByte(qualified, '.')
	if i < 1 || i == len(qualified)-1 {
		return "", "", false
	}
	if strings.IndexByte(qualified[i:], '/') >= 0 {
		return "", "", false
	}
	return qualified[:i], qualified[i+1:], true
}

// TextUnmarshaler returns an interface equivalent to
// encoding.TextUnmarshaler for packages that don't import encoding.
func TextUnmarshaler() *types.Interface {
	byteSlice := types.NewSlice(types.Typ[types.Byte])
	errType := types.Universe.Lookup("error").Type()
	sig := types.NewSignatureType(nil, nil, nil,
		types.NewTuple(types.NewParam(token.NoPos, nil, "text", byteSlice)),
		types.NewTuple(types.NewParam(token.NoPos, nil, "", errType)),
		false,
	)
	return types.NewInterfaceType([]*types.Func{
		types.NewFunc(token.NoPos, nil, "UnmarshalText", sig),
	}, nil).Complete()
}
