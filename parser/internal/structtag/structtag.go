// Package structtag provides struct tag value extraction for
// handler parameter objects.
package structtag

import "strings"

// ExpandKey is the tag key that marks a parameter object field
// to be flattened: `routelint:"expand"`.
const ExpandKey = "routelint"

// Value extracts the value of key from a struct tag,
// stripping options like ",omitempty".
func Value(tag, key string) string {
	v, _ := Lookup(tag, key)
	if k := strings.IndexByte(v, ','); k >= 0 {
		v = v[:k]
	}
	return v
}

// Lookup returns the raw value of key from a struct tag.
// Unlike reflect.StructTag it tolerates malformed tags
// by skipping what it can't read.
func Lookup(tag, key string) (string, bool) {
	for tag != "" {
		tag = strings.TrimLeft(tag, " ")
		name, rest, ok := strings.Cut(tag, `:"`)
		if !ok {
			return "", false
		}
		end := closingQuote(rest)
		if end < 0 {
			return "", false
		}
		if name == key {
			return rest[:end], true
		}
		tag = rest[end+1:]
	}
	return "", false
}

func closingQuote(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// PathTagValue extracts the value from a `path:"value"`
// struct tag.
func PathTagValue(tag string) string { return Value(tag, "path") }

// IsExpand reports whether tag carries the expand marker.
func IsExpand(tag string) bool {
	v, ok := Lookup(tag, ExpandKey)
	if !ok {
		return false
	}
	for opt := range strings.SplitSeq(v, ",") {
		if opt == "expand" {
			return true
		}
	}
	return false
}
