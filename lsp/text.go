package lsp

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/romshark/routelint/routepattern"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// document is an open text document.
type document struct {
	uri     protocol.DocumentUri
	path    string
	version int32
	text    string

	// newlines are the byte offsets of '\n'.
	newlines []int
}

func newDocument(uri protocol.DocumentUri, path string, version int32, text string) *document {
	d := &document{uri: uri, path: path, version: version, text: text}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			d.newlines = append(d.newlines, i)
		}
	}
	return d
}

func (d *document) lineStart(line int) int {
	if line == 0 {
		return 0
	}
	return d.newlines[line-1] + 1
}

func (d *document) lineEnd(line int) int {
	if line < len(d.newlines) {
		return d.newlines[line]
	}
	return len(d.text)
}

// offsetAt returns the byte offset of p. Characters are UTF-16 units.
func (d *document) offsetAt(p protocol.Position) int {
	line := int(p.Line)
	if line > len(d.newlines) {
		return len(d.text)
	}
	off, end := d.lineStart(line), d.lineEnd(line)
	units, want := 0, int(p.Character)
	for off < end && units < want {
		r, size := utf8.DecodeRuneInString(d.text[off:end])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > want {
			break
		}
		units += need
		off += size
	}
	return off
}

// positionAt returns the position of the byte offset off.
func (d *document) positionAt(off int) protocol.Position {
	off = min(max(off, 0), len(d.text))
	line := sort.SearchInts(d.newlines, off)
	start := d.lineStart(line)
	units := 0
	for i := start; i < off; {
		r, size := utf8.DecodeRuneInString(d.text[i:off])
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		i += size
	}
	return protocol.Position{Line: safeUint32(line), Character: safeUint32(units)}
}

func (d *document) rangeOf(raw routepattern.Span) protocol.Range {
	return protocol.Range{Start: d.positionAt(raw.Start), End: d.positionAt(raw.End)}
}

// rangeAtLine returns the range of the identifier at a 1-based
// line and byte column, or an empty range if there is none.
func (d *document) rangeAtLine(line, column int) protocol.Range {
	if line < 1 || line > len(d.newlines)+1 {
		return protocol.Range{}
	}
	off := min(d.lineStart(line-1)+max(column-1, 0), d.lineEnd(line-1))
	return d.identRange(off)
}

// identRange returns the range of the identifier starting at off.
func (d *document) identRange(off int) protocol.Range {
	end := off
	for end < len(d.text) {
		r, size := utf8.DecodeRuneInString(d.text[end:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end += size
	}
	return protocol.Range{Start: d.positionAt(off), End: d.positionAt(end)}
}

func uriToPath(uri protocol.DocumentUri) (string, bool) {
	if !strings.HasPrefix(uri, "file://") {
		return "", false
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", false
	}
	return filepath.Clean(filepath.FromSlash(u.Path)), true
}

func pathToURI(path string) protocol.DocumentUri {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
