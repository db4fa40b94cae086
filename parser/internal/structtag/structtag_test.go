package structtag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	tests := map[string]struct {
		tag  string
		key  string
		want string
	}{
		"simple":          {`json:"name"`, "json", "name"},
		"omitempty":       {`json:"name,omitempty"`, "json", "name"},
		"comma only":      {`json:","`, "json", ""},
		"empty value":     {`json:""`, "json", ""},
		"wrong key":       {`query:"x"`, "json", ""},
		"empty string":    {"", "json", ""},
		"unclosed quote":  {`json:"name`, "json", ""},
		"multi-tag":       {`json:"x" path:"slug"`, "path", "slug"},
		"key suffix":      {`xpath:"a" path:"b"`, "path", "b"},
		"escaped quote":   {`json:"a\"b" path:"c"`, "path", "c"},
		"extra spaces":    {`json:"x"   path:"y"`, "path", "y"},
		"missing in many": {`json:"x" query:"y"`, "path", ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, Value(tt.tag, tt.key))
		})
	}
}

func TestPathTagValue(t *testing.T) {
	tests := map[string]struct {
		tag  string
		want string
	}{
		"simple":         {`path:"id"`, "id"},
		"multi-tag":      {`json:"x" path:"slug"`, "slug"},
		"wrong prefix":   {`json:"x"`, ""},
		"empty string":   {"", ""},
		"unclosed quote": {`path:"id`, ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, PathTagValue(tt.tag))
		})
	}
}

func TestIsExpand(t *testing.T) {
	tests := map[string]struct {
		tag  string
		want bool
	}{
		"marker":        {`routelint:"expand"`, true},
		"with options":  {`routelint:"skip,expand"`, true},
		"other options": {`routelint:"skip"`, false},
		"no marker":     {`path:"expand"`, false},
		"empty":         {"", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, IsExpand(tt.tag))
		})
	}
}
