package parser

import (
	"cmp"
	"errors"
	"fmt"
	"go/token"
	"iter"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

var (
	ErrMissingTypeInfo = errors.New("missing source package type information")
	ErrExpectedOnePkg  = errors.New("expected exactly one package")

	ErrRouteCommentInvalid     = errors.New("invalid route comment")
	ErrRouteCommentMissingGap  = errors.New("route comment must be followed by an empty comment line")
	ErrPageMissingRouteComment = errors.New("page type is missing route comment")
)

func normPos(pos token.Position) token.Position {
	if pos.Filename != "" {
		pos.Filename = filepath.Base(pos.Filename)
	}
	return pos
}

func comparePos(a, b token.Position) int {
	az, bz := a.Filename == "", b.Filename == ""
	if az != bz {
		if az {
			return 1 // known < unknown
		}
		return -1
	}
	return cmp.Or(
		strings.Compare(a.Filename, b.Filename),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
	)
}

// earliest position we can anchor package-wide errors to (package clause).
func earliestPkgPos(pkg *packages.Package) token.Position {
	best := token.Position{}
	for _, f := range pkg.Syntax {
		p := normPos(pkg.Fset.Position(f.Package))
		if best.Filename == "" || comparePos(p, best) < 0 {
			best = p
		}
	}
	return best
}

// posFromPackagesError parses packages.Error.Pos which is typically
// "file:line:col". It splits from the right so Windows drive letters
// like "C:\x\y.go:12:3" survive.
func posFromPackagesError(pe packages.Error) token.Position {
	s := pe.Pos
	if s == "" || s == "-" {
		return token.Position{}
	}
	var nums [2]int
	for i := range nums {
		j := strings.LastIndexByte(s, ':')
		if j < 0 {
			break
		}
		n, err := strconv.Atoi(s[j+1:])
		if err != nil {
			break
		}
		nums[i], s = n, s[:j]
	}
	// With only "file:line" the single number is the line.
	line, col := nums[1], nums[0]
	if line == 0 {
		line, col = col, 0
	}
	return normPos(token.Position{Filename: s, Line: line, Column: col})
}

type errorEntry struct {
	pos token.Position
	seq uint64
	err error
}

func (e errorEntry) Error() string {
	return fmt.Sprintf("at %s:%d:%d: %v",
		e.pos.Filename, e.pos.Line, e.pos.Column, e.err)
}

func (e errorEntry) Unwrap() error { return e.err }

// Errors is a list of positioned load, type and host errors.
// Route pattern diagnostics are not Errors.
type Errors struct {
	errs []errorEntry
	seq  uint64
}

func (e *Errors) Error() string {
	l := len(e.errs)
	if l == 0 {
		return ""
	}
	return fmt.Sprintf("%d error(s) in source package", l)
}

func (e *Errors) Err(err error) {
	e.ErrAt(token.Position{}, err)
}

func (e *Errors) Entry(i int) (token.Position, error) {
	if i < 0 || i >= len(e.errs) {
		return token.Position{}, nil
	}
	en := e.errs[i]
	return en.pos, en.err
}

func (e *Errors) All() iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for i, e := range e.errs {
			if !yield(i, e) {
				break
			}
		}
	}
}

func (e *Errors) Len() int { return len(e.errs) }

func (e *Errors) ErrAt(pos token.Position, err error) {
	if err == nil {
		return
	}
	e.seq++
	e.errs = append(e.errs, errorEntry{
		pos: normPos(pos),
		seq: e.seq,
		err: err,
	})
}

func sortErrors(e *Errors) {
	if e == nil {
		return
	}
	slices.SortFunc(e.errs, func(a, b errorEntry) int {
		// deterministic tie-break by insertion order
		return cmp.Or(comparePos(a.pos, b.pos), cmp.Compare(a.seq, b.seq))
	})
}
