package parser

import (
	"errors"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

func TestPosFromPackagesError(t *testing.T) {
	tests := map[string]struct {
		pos    string
		expect token.Position
	}{
		"empty":     {"", token.Position{}},
		"dash":      {"-", token.Position{}},
		"full":      {"/a/b/main.go:12:3", token.Position{Filename: "main.go", Line: 12, Column: 3}},
		"line only": {"/a/b/main.go:12", token.Position{Filename: "main.go", Line: 12}},
		"file only": {"main.go", token.Position{Filename: "main.go"}},
		"windows": {
			`C:\x\y\z.go:7:9`,
			token.Position{Filename: `C:\x\y\z.go`, Line: 7, Column: 9},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := posFromPackagesError(packages.Error{Pos: tt.pos})
			if name == "windows" {
				// filepath.Base is OS dependent, compare line and column only.
				require.Equal(t, tt.expect.Line, got.Line)
				require.Equal(t, tt.expect.Column, got.Column)
				return
			}
			require.Equal(t, tt.expect, got)
		})
	}
}

func TestSortErrors(t *testing.T) {
	errA, errB, errC, errD := errors.New("a"), errors.New("b"),
		errors.New("c"), errors.New("d")

	var errs Errors
	errs.Err(errA)
	errs.ErrAt(token.Position{Filename: "/x/b.go", Line: 1, Column: 1}, errB)
	errs.ErrAt(token.Position{Filename: "/x/a.go", Line: 9, Column: 2}, errC)
	errs.ErrAt(token.Position{Filename: "/x/a.go", Line: 9, Column: 2}, errD)
	errs.ErrAt(token.Position{}, nil)
	sortErrors(&errs)

	require.Equal(t, 4, errs.Len())
	var got []error
	for _, err := range errs.All() {
		got = append(got, errors.Unwrap(err))
	}
	require.Equal(t, []error{errC, errD, errB, errA}, got)

	pos, err := errs.Entry(0)
	require.Equal(t, "a.go", pos.Filename)
	require.ErrorIs(t, err, errC)

	pos, err = errs.Entry(10)
	require.Zero(t, pos)
	require.NoError(t, err)
	require.Equal(t, "4 error(s) in source package", errs.Error())
}
