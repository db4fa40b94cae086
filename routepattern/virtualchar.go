package routepattern

import (
	"iter"
	"sort"
	"strings"
	"unicode/utf8"
)

// Span is a half-open range [Start, End).
// Logical spans count virtual chars, raw spans count bytes
// of the host source the text was decoded from.
type Span struct {
	Start, End int
}

// Len returns the length of the span.
func (s Span) Len() int { return s.End - s.Start }

// Empty reports whether the span covers nothing.
func (s Span) Empty() bool { return s.End <= s.Start }

// Contains reports whether pos lies within the span.
func (s Span) Contains(pos int) bool { return pos >= s.Start && pos < s.End }

// Cover returns the smallest span containing both s and o.
func (s Span) Cover(o Span) Span {
	return Span{Start: min(s.Start, o.Start), End: max(s.End, o.End)}
}

// VirtualChar is one logical character of a decoded route pattern.
type VirtualChar struct {
	Value rune

	// Span is the extent in the decoded text, always [i, i+1)
	// for the char at index i.
	Span Span

	// RawSpan is the extent in the original host source,
	// covering the whole escape sequence for escaped characters.
	RawSpan Span
}

func (c VirtualChar) String() string { return string(c.Value) }

// Text is a decoded route pattern: an indexed array of virtual chars.
type Text []VirtualChar

// TextFromString maps s onto virtual chars where each rune's raw span
// is its byte range in s.
func TextFromString(s string) Text {
	return TextFromStringAt(s, 0)
}

// TextFromStringAt is like TextFromString but shifts raw spans by offset.
func TextFromStringAt(s string, offset int) Text {
	t := make(Text, 0, utf8.RuneCountInString(s))
	for i, r := range s {
		t = t.Append(r, Span{
			Start: offset + i,
			End:   offset + i + utf8.RuneLen(r),
		})
	}
	return t
}

// TextFromOpaque maps s onto raw as a whole, for text with no per-char
// source such as the value of a named constant. Every char but the last
// gets an empty raw span at raw.Start, the last one ends at raw.End.
func TextFromOpaque(s string, raw Span) Text {
	t := make(Text, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		t = t.Append(r, Span{Start: raw.Start, End: raw.Start})
	}
	if len(t) > 0 {
		t[len(t)-1].RawSpan.End = raw.End
	}
	return t
}

// Slice returns the chars in [start, end) renumbered from zero.
// Raw spans are kept.
func (t Text) Slice(start, end int) Text {
	start, end = max(start, 0), min(end, len(t))
	if start >= end {
		return Text{}
	}
	return Concat(t[start:end])
}

// Append adds a char decoded from raw and assigns it the next logical index.
func (t Text) Append(r rune, raw Span) Text {
	i := len(t)
	return append(t, VirtualChar{
		Value:   r,
		Span:    Span{Start: i, End: i + 1},
		RawSpan: raw,
	})
}

// Concat joins texts, reassigning logical spans while keeping raw spans
// anchored to each part.
func Concat(parts ...Text) Text {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(Text, 0, n)
	for _, p := range parts {
		for _, c := range p {
			out = out.Append(c.Value, c.RawSpan)
		}
	}
	return out
}

// String returns the decoded text.
func (t Text) String() string {
	var b strings.Builder
	b.Grow(len(t))
	for _, c := range t {
		b.WriteRune(c.Value)
	}
	return b.String()
}

// All iterates over chars with their logical index.
func (t Text) All() iter.Seq2[int, VirtualChar] {
	return func(yield func(int, VirtualChar) bool) {
		for i, c := range t {
			if !yield(i, c) {
				return
			}
		}
	}
}

// At returns the char at logical position pos.
func (t Text) At(pos int) (VirtualChar, bool) {
	if pos < 0 || pos >= len(t) {
		return VirtualChar{}, false
	}
	return t[pos], true
}

// RawSpan returns the raw extent of the logical span s.
// Empty logical spans map to an empty raw span at the following char.
func (t Text) RawSpan(s Span) Span {
	if len(t) == 0 {
		return Span{}
	}
	if s.Empty() {
		if s.Start >= len(t) {
			end := t[len(t)-1].RawSpan.End
			return Span{Start: end, End: end}
		}
		start := t[max(s.Start, 0)].RawSpan.Start
		return Span{Start: start, End: start}
	}
	start := t[max(s.Start, 0)].RawSpan.Start
	end := t[min(s.End, len(t))-1].RawSpan.End
	return Span{Start: start, End: end}
}

// IndexAtRaw returns the logical index of the char whose raw span contains
// raw. A raw offset at the very end of the text yields len(t).
func (t Text) IndexAtRaw(raw int) (int, bool) {
	if len(t) == 0 {
		return 0, false
	}
	i := sort.Search(len(t), func(i int) bool { return t[i].RawSpan.End > raw })
	if i < len(t) && t[i].RawSpan.Start <= raw {
		return i, true
	}
	if i == len(t) && raw == t[len(t)-1].RawSpan.End {
		return len(t), true
	}
	return 0, false
}

// Valid reports whether logical spans are sequential and raw spans
// are non-decreasing and non-overlapping.
func (t Text) Valid() bool {
	prevEnd := -1
	for i, c := range t {
		if c.Span.Start != i || c.Span.End != i+1 {
			return false
		}
		if c.RawSpan.End < c.RawSpan.Start {
			return false
		}
		if prevEnd >= 0 && c.RawSpan.Start < prevEnd {
			return false
		}
		prevEnd = c.RawSpan.End
	}
	return true
}
