package methodkind_test

import (
	"testing"

	"github.com/romshark/routelint/parser/internal/methodkind"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := map[string]struct {
		kind   methodkind.Kind
		suffix string
	}{
		"GET":          {methodkind.GET, ""},
		"GETUser":      {methodkind.GET, "User"},
		"POSTComment":  {methodkind.POST, "Comment"},
		"PUTItem":      {methodkind.PUT, "Item"},
		"DELETEItem":   {methodkind.DELETE, "Item"},
		"PATCHItem":    {methodkind.PATCH, "Item"},
		"GET_internal": {methodkind.GET, "_internal"},
		"GETaway":      {0, ""},
		"getUser":      {0, ""},
		"Render":       {0, ""},
		"":             {0, ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			kind, suffix := methodkind.Classify(name)
			require.Equal(t, tt.kind, kind)
			require.Equal(t, tt.suffix, suffix)
		})
	}
}

func TestHTTPMethod(t *testing.T) {
	require.Equal(t, "PATCH", methodkind.PATCH.HTTPMethod())
	require.Equal(t, "", methodkind.Kind(0).HTTPMethod())
	require.Equal(t, "", methodkind.Kind(42).HTTPMethod())
}

func TestSplitMethodPrefix(t *testing.T) {
	tests := map[string]struct {
		method string
		start  int
		ok     bool
	}{
		"GET /users/{id}":   {"GET", 4, true},
		"POST  /x":          {"POST", 6, true},
		"DELETE\t/x":        {"DELETE", 7, true},
		"/users/{id}":       {"", 0, false},
		"example.com/x":     {"", 0, false},
		"FETCH /x":          {"", 0, false},
		" GET /x":           {"", 0, false},
		"GET example.com/x": {"GET", 4, true},
	}
	for input, tt := range tests {
		t.Run(input, func(t *testing.T) {
			method, start, ok := methodkind.SplitMethodPrefix(input)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.method, method)
			require.Equal(t, tt.start, start)
		})
	}
}
