// Package methodkind classifies handler method names and
// route pattern method prefixes into HTTP methods.
package methodkind

import (
	"strings"
	"unicode"
)

// Kind represents the HTTP method a handler method declares.
type Kind int8

const (
	_ Kind = iota
	GET
	POST
	PUT
	DELETE
	PATCH
)

var names = [...]string{
	GET:    "GET",
	POST:   "POST",
	PUT:    "PUT",
	DELETE: "DELETE",
	PATCH:  "PATCH",
}

// HTTPMethod returns the HTTP method string for the kind.
func (k Kind) HTTPMethod() string {
	if k <= 0 || int(k) >= len(names) {
		return ""
	}
	return names[k]
}

// Classify determines the kind and name suffix of a handler
// method name like GETUser or POSTComment.
// Returns zero Kind for unrecognized names.
func Classify(name string) (kind Kind, suffix string) {
	if name == "" {
		return 0, ""
	}
	// Only exported identifiers declare routes,
	// which keeps getUser / postX etc. normal methods.
	if name[0] < 'A' || name[0] > 'Z' {
		return 0, ""
	}
	for k := GET; k <= PATCH; k++ {
		m := names[k]
		if !strings.HasPrefix(name, m) {
			continue
		}
		suffix = name[len(m):]
		if suffix != "" && !unicode.IsUpper(rune(suffix[0])) && suffix[0] != '_' {
			// GETaway is not a GET handler.
			return 0, ""
		}
		return k, suffix
	}
	return 0, ""
}

// knownMethods are the methods net/http.ServeMux patterns accept as prefix.
var knownMethods = map[string]struct{}{
	"GET": {}, "HEAD": {}, "POST": {}, "PUT": {}, "PATCH": {},
	"DELETE": {}, "CONNECT": {}, "OPTIONS": {}, "TRACE": {},
}

// SplitMethodPrefix splits a ServeMux pattern like "GET /users/{id}"
// into its method and the byte offset where the path begins.
// ok is false when s has no method prefix.
func SplitMethodPrefix(s string) (method string, pathStart int, ok bool) {
	i := strings.IndexAny(s, " \t")
	if i < 1 {
		return "", 0, false
	}
	m := s[:i]
	if _, known := knownMethods[m]; !known {
		return "", 0, false
	}
	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	return m, j, true
}
