package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextLines(t *testing.T) {
	text := NewText("ab\nc\n\nd")
	require.Equal(t, 7, text.Len())
	require.Equal(t, 4, text.LineCount())

	require.Equal(t, Range{Start: 0, End: 3}, text.Line(0))
	require.Equal(t, Range{Start: 3, End: 5}, text.Line(1))
	require.Equal(t, Range{Start: 5, End: 6}, text.Line(2))
	require.Equal(t, Range{Start: 6, End: 7}, text.Line(3))

	require.Equal(t, 0, text.LineOf(2)) // the newline belongs to its line
	require.Equal(t, 1, text.LineOf(3))
	require.Equal(t, 3, text.LineOf(7))
	require.Equal(t, 3, text.LineStart(4))
	require.Equal(t, 5, text.LineEnd(4))
	require.Equal(t, 7, text.LineEnd(100))
}

func TestTextRunes(t *testing.T) {
	text := NewText("héllo\nwörld")
	require.Equal(t, 11, text.Len())
	require.Equal(t, "wörld", text.Slice(text.Line(1)))
	require.Equal(t, "é", text.Slice(Range{Start: 1, End: 2}))
	require.Equal(t, "héllo\nwörld", text.Slice(Range{Start: -4, End: 40}))

	src := []rune("abc")
	copied := NewTextRunes(src)
	src[0] = 'x'
	require.Equal(t, "abc", copied.String())
}

func TestEmptyText(t *testing.T) {
	text := NewText("")
	require.Equal(t, 1, text.LineCount())
	require.Equal(t, Range{}, text.Line(0))
	require.Equal(t, 0, text.LineEnd(0))
}

func TestRangeOps(t *testing.T) {
	a := Range{Start: 2, End: 6}
	b := Range{Start: 5, End: 9}
	require.True(t, a.Intersects(b))
	require.Equal(t, Range{Start: 2, End: 9}, a.Union(b))
	got, ok := a.Intersect(b)
	require.True(t, ok)
	require.Equal(t, Range{Start: 5, End: 6}, got)

	_, ok = a.Intersect(Range{Start: 6, End: 8})
	require.False(t, ok)
	require.True(t, a.Contains(2))
	require.False(t, a.Contains(6))
	require.True(t, Range{Start: 3, End: 3}.IsEmpty())
	require.Equal(t, "[2,6)", a.String())
}

func TestEditMapping(t *testing.T) {
	insert := Edit{Range: Range{Start: 4, End: 7}, Delta: 3}   // 3 runes at 4
	remove := Edit{Range: Range{Start: 4, End: 4}, Delta: -2}  // [4,6) removed
	replace := Edit{Range: Range{Start: 4, End: 5}, Delta: -2} // [4,7) became 1 rune

	tests := []struct {
		name string
		edit Edit
		in   Range
		want Range
	}{
		{"insert before", insert, Range{Start: 0, End: 3}, Range{Start: 0, End: 3}},
		{"insert after", insert, Range{Start: 5, End: 8}, Range{Start: 8, End: 11}},
		{"insert inside", insert, Range{Start: 2, End: 6}, Range{Start: 2, End: 9}},
		{"insert at end of range", insert, Range{Start: 2, End: 4}, Range{Start: 2, End: 4}},
		{"remove after", remove, Range{Start: 8, End: 10}, Range{Start: 6, End: 8}},
		{"remove across start", remove, Range{Start: 5, End: 9}, Range{Start: 4, End: 7}},
		{"remove whole range", remove, Range{Start: 4, End: 6}, Range{Start: 4, End: 4}},
		{"replace inside", replace, Range{Start: 5, End: 6}, Range{Start: 4, End: 5}},
		{"replace spanning", replace, Range{Start: 1, End: 9}, Range{Start: 1, End: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.edit.MapRange(tt.in))
		})
	}

	require.Equal(t, 4, insert.MapOffset(4))
	require.Equal(t, 8, insert.MapOffset(5))
	require.Equal(t, 4, remove.MapOffset(5))
	require.Equal(t, 5, replace.MapOffset(5))
}
