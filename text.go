package syntax

import (
	"fmt"
	"sort"
)

// Range is a half-open interval [Start, End) of rune offsets into a Text.
type Range struct {
	Start int
	End   int
}

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Len returns the number of runes covered by r.
func (r Range) Len() int { return r.End - r.Start }

// IsEmpty reports whether r covers no runes.
func (r Range) IsEmpty() bool { return r.End <= r.Start }

// Contains reports whether off lies inside r.
func (r Range) Contains(off int) bool { return r.Start <= off && off < r.End }

// Intersects reports whether r and o share at least one rune.
func (r Range) Intersects(o Range) bool { return r.Start < o.End && o.Start < r.End }

// Union returns the smallest range covering both r and o.
func (r Range) Union(o Range) Range {
	return Range{Start: min(r.Start, o.Start), End: max(r.End, o.End)}
}

// Intersect returns the overlap of r and o; ok is false when they are disjoint.
func (r Range) Intersect(o Range) (Range, bool) {
	out := Range{Start: max(r.Start, o.Start), End: min(r.End, o.End)}
	if out.IsEmpty() {
		return Range{}, false
	}
	return out, true
}

func (r Range) clamp(n int) Range {
	r.Start = clampInt(r.Start, 0, n)
	r.End = clampInt(r.End, 0, n)
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Text is an immutable snapshot of a document.  It is safe to share across
// goroutines; all constructors copy their input.
type Text struct {
	runes []rune
	lines []int // start offset of every line; lines[0] == 0
}

// NewText returns a snapshot of s.
func NewText(s string) Text {
	return newText([]rune(s))
}

// NewTextRunes returns a snapshot holding a copy of r.
func NewTextRunes(r []rune) Text {
	return newText(append([]rune(nil), r...))
}

func newText(r []rune) Text {
	lines := []int{0}
	for i, c := range r {
		if c == '\n' {
			lines = append(lines, i+1)
		}
	}
	return Text{runes: r, lines: lines}
}

// Len returns the length of the text in runes.
func (t Text) Len() int { return len(t.runes) }

func (t Text) String() string { return string(t.runes) }

// Slice returns the text covered by r, clamped to the document.
func (t Text) Slice(r Range) string {
	r = r.clamp(len(t.runes))
	return string(t.runes[r.Start:r.End])
}

// LineCount returns the number of lines.  An empty text has one line.
func (t Text) LineCount() int {
	if len(t.lines) == 0 {
		return 1
	}
	return len(t.lines)
}

// LineOf returns the 0-based line containing off.
func (t Text) LineOf(off int) int {
	if len(t.lines) == 0 {
		return 0
	}
	// Index of the last line start <= off.
	return sort.Search(len(t.lines), func(i int) bool { return t.lines[i] > off }) - 1
}

// Line returns the range of line i including its trailing newline.
func (t Text) Line(i int) Range {
	if len(t.lines) == 0 {
		return Range{}
	}
	i = clampInt(i, 0, len(t.lines)-1)
	end := len(t.runes)
	if i+1 < len(t.lines) {
		end = t.lines[i+1]
	}
	return Range{Start: t.lines[i], End: end}
}

// LineStart returns the offset of the first rune of the line containing off.
func (t Text) LineStart(off int) int {
	return t.Line(t.LineOf(clampInt(off, 0, len(t.runes)))).Start
}

// LineEnd returns the offset just past the newline terminating the line
// containing off, or the document length for the last line.
func (t Text) LineEnd(off int) int {
	return t.Line(t.LineOf(clampInt(off, 0, len(t.runes)))).End
}

// Edit describes one text mutation: Range is the edited span in post-edit
// coordinates and Delta the change in document length.  An insertion of n
// runes at p is Edit{Range{p, p+n}, n}; a deletion of n runes at p is
// Edit{Range{p, p}, -n}.
type Edit struct {
	Range Range
	Delta int
}

// replacedEnd is the end of the replaced span in pre-edit coordinates.
func (e Edit) replacedEnd() int { return e.Range.End - e.Delta }

// MapOffset maps a pre-edit offset to post-edit coordinates.  Offsets inside
// the replaced span collapse to the end of the edited range.
func (e Edit) MapOffset(off int) int {
	switch {
	case off <= e.Range.Start:
		return off
	case off >= e.replacedEnd():
		return off + e.Delta
	default:
		return e.Range.End
	}
}

// MapRange maps a pre-edit range to post-edit coordinates.  A range touching
// the replaced span grows to include the whole edited range.
func (e Edit) MapRange(r Range) Range {
	start := r.Start
	if start > e.Range.Start {
		if start >= e.replacedEnd() {
			start += e.Delta
		} else {
			start = e.Range.Start
		}
	}
	end := r.End
	switch {
	case end >= e.replacedEnd() && end > e.Range.Start:
		end += e.Delta
	case end > e.Range.Start:
		end = e.Range.End
	}
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}
