package syntax

import "sort"

// Splice merges the result of a pass into a document-wide set of ranges.
// Everything of old inside covered is replaced by fresh; old ranges that
// straddle a bound of covered are clipped to the part outside it.
func Splice(old, fresh []HighlightRange, covered Range) []HighlightRange {
	out := make([]HighlightRange, 0, len(old)+len(fresh))
	for _, r := range old {
		if !r.Intersects(covered) {
			out = append(out, r)
			continue
		}
		if r.Start < covered.Start {
			out = append(out, HighlightRange{Range: Range{Start: r.Start, End: covered.Start}, Category: r.Category})
		}
		if r.End > covered.End {
			out = append(out, HighlightRange{Range: Range{Start: covered.End, End: r.End}, Category: r.Category})
		}
	}
	for _, r := range fresh {
		if c, ok := r.Intersect(covered); ok {
			out = append(out, HighlightRange{Range: c, Category: r.Category})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// TruncateHighlights drops the parts of rs at or past n, the length of the
// text the ranges describe.
func TruncateHighlights(rs []HighlightRange, n int) []HighlightRange {
	out := rs[:0]
	for _, r := range rs {
		if r.Start >= n {
			continue
		}
		r.End = min(r.End, n)
		out = append(out, r)
	}
	return out
}

// MapHighlights moves rs through e in place, dropping ranges the edit
// emptied.  A range the edit touched may overlap the edited text until the
// next pass recolors it.
func MapHighlights(rs []HighlightRange, e Edit) []HighlightRange {
	out := rs[:0]
	for _, r := range rs {
		r.Range = mapStyled(e, r.Range)
		if !r.IsEmpty() {
			out = append(out, r)
		}
	}
	return out
}

// mapStyled maps a colored range through e without growing it over
// inserted text, so neighbours stay disjoint.  A bound inside the replaced
// span moves to the near side of the new text.
func mapStyled(e Edit, r Range) Range {
	s, repl := e.Range.Start, e.replacedEnd()
	start := r.Start
	switch {
	case start >= repl:
		start += e.Delta
	case start > s:
		start = e.Range.End
	}
	end := r.End
	switch {
	case end <= s:
	case end >= repl:
		end += e.Delta
	default:
		end = s
	}
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}
