// Package structinspect provides helpers for inspecting
// Go struct types and method receivers.
package structinspect

import (
	"go/ast"
	"go/types"
)

// ReceiverTypeName extracts the type name from a method
// receiver expression, handling T, *T and generic T[P] forms.
func ReceiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return ReceiverTypeName(t.X)
	case *ast.IndexExpr:
		return ReceiverTypeName(t.X)
	case *ast.IndexListExpr:
		return ReceiverTypeName(t.X)
	case *ast.ParenExpr:
		return ReceiverTypeName(t.X)
	}
	return ""
}

// Field is a struct field together with its tag.
type Field struct {
	Var *types.Var
	Tag string
}

// Fields returns the fields of st. Fields of embedded structs
// are promoted in declaration order unless the embedded field
// carries a tag, in which case it is kept as is.
func Fields(st *types.Struct) []Field {
	var out []Field
	collectFields(st, &out, map[*types.Struct]bool{})
	return out
}

func collectFields(st *types.Struct, out *[]Field, seen map[*types.Struct]bool) {
	if st == nil || seen[st] {
		return
	}
	seen[st] = true
	for i := range st.NumFields() {
		f, tag := st.Field(i), st.Tag(i)
		if f.Embedded() && tag == "" {
			t := f.Type()
			if ptr, ok := t.(*types.Pointer); ok {
				t = ptr.Elem()
			}
			if inner, ok := t.Underlying().(*types.Struct); ok {
				collectFields(inner, out, seen)
				continue
			}
		}
		*out = append(*out, Field{Var: f, Tag: tag})
	}
}
