package syntax

// claims records which category owns each rune of a window.  The zero
// category means unclaimed.
type claims struct {
	window Range
	owner  []Category
}

func newClaims(window Range) *claims {
	return &claims{window: window, owner: make([]Category, window.Len())}
}

// apply marks the runes of r with c, but only where the slot is still
// unclaimed ("first claim wins").  Parts of r outside the window are
// ignored.
func (cl *claims) apply(r Range, c Category) {
	if c == CategoryNone {
		return
	}
	r, ok := r.Intersect(cl.window)
	if !ok {
		return
	}
	for i := r.Start - cl.window.Start; i < r.End-cl.window.Start; i++ {
		if cl.owner[i] == CategoryNone {
			cl.owner[i] = c
		}
	}
}

// ranges compresses the claim array into sorted, non-overlapping ranges.
// Adjacent runes owned by the same category form one range.
func (cl *claims) ranges() []HighlightRange {
	var out []HighlightRange
	cur := CategoryNone
	start := 0
	for i, c := range cl.owner {
		if c == cur {
			continue
		}
		if cur != CategoryNone {
			out = append(out, HighlightRange{
				Range:    Range{Start: cl.window.Start + start, End: cl.window.Start + i},
				Category: cur,
			})
		}
		cur, start = c, i
	}
	if cur != CategoryNone {
		out = append(out, HighlightRange{
			Range:    Range{Start: cl.window.Start + start, End: cl.window.End},
			Category: cur,
		})
	}
	return out
}
