// Package paramvalidation validates handler parameter objects
// that bind route parameters: a parameter named "path" or a
// struct marked `routelint:"expand"`.
package paramvalidation

import (
	"errors"
	"fmt"
	"go/types"
	"strings"

	"github.com/romshark/routelint/parser/internal/structinspect"
	"github.com/romshark/routelint/parser/internal/structtag"
	"github.com/romshark/routelint/parser/internal/typecheck"
)

// Path parameter errors.
var (
	ErrPathParamNotStruct = errors.New(
		"path parameter must be a struct",
	)
	ErrPathFieldUnexported = errors.New(
		"path struct field must be exported",
	)
	ErrPathFieldEmptyTag = errors.New(
		`path struct field has an empty path:"" tag`,
	)
	ErrPathFieldDuplicate = errors.New(
		"path struct fields bind the same route parameter",
	)
)

// IsPathParam reports whether a handler parameter is
// a path object by its name.
func IsPathParam(name string) bool { return name == "path" }

// FieldName returns the route parameter name a path object
// field binds to: its path tag, or the field name.
func FieldName(f structinspect.Field) string {
	if v, ok := structtag.Lookup(f.Tag, "path"); ok {
		name, _, _ := strings.Cut(v, ",")
		return name
	}
	return f.Var.Name()
}

// ValidatePathStruct validates that a path object of type t
// is a struct whose fields are exported and bind distinct
// route parameters. fn names the handler for error messages.
func ValidatePathStruct(t types.Type, fn string) error {
	st, ok := typecheck.StructOf(t)
	if !ok {
		return fmt.Errorf("%w in %s", ErrPathParamNotStruct, fn)
	}

	seen := map[string]string{}
	for _, f := range structinspect.Fields(st) {
		if !f.Var.Exported() {
			return fmt.Errorf(
				"%w: field %s in %s",
				ErrPathFieldUnexported, f.Var.Name(), fn,
			)
		}
		if v, ok := structtag.Lookup(f.Tag, "path"); ok && v == "" {
			return fmt.Errorf(
				"%w: field %s in %s",
				ErrPathFieldEmptyTag, f.Var.Name(), fn,
			)
		}
		name := strings.ToLower(FieldName(f))
		if prev, ok := seen[name]; ok {
			return fmt.Errorf(
				"%w: fields %s and %s in %s",
				ErrPathFieldDuplicate, prev, f.Var.Name(), fn,
			)
		}
		seen[name] = f.Var.Name()
	}
	return nil
}
