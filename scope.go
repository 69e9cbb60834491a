package syntax

import "fmt"

// Scope selects what a highlight pass must cover.
type Scope struct {
	// Full requests the whole document; Range is ignored.
	Full bool
	// Range is the edited span to rescan, in current coordinates.
	Range Range
	// Prior holds the spans of the previous pass mapped through
	// every edit since.  When HasPrior is false nothing is known about the
	// previous state and a range pass extends to the end of the document.
	Prior    []Range
	HasPrior bool
}

// FullDocument returns the scope covering the whole document.
func FullDocument() Scope { return Scope{Full: true} }

// RangeScope returns a scope rescanning r.
func RangeScope(r Range) Scope { return Scope{Range: r} }

// WithPrior returns s carrying the previous pass's spans (Result.Spans).
func (s Scope) WithPrior(prior []Range) Scope {
	s.Prior = prior
	s.HasPrior = true
	return s
}

func (s Scope) String() string {
	if s.Full {
		return "full"
	}
	return "range" + s.Range.String()
}

// expandWindow widens the edited range r into the window a partial pass
// must recolor.  The window starts as the lines touched by r and grows, to a
// fixpoint, over every multi-line span (current or prior) that crosses one
// of its bounds.  Bounds stay on line boundaries so the per-line token scan
// sees whole lines.
func expandWindow(text Text, r Range, spans []Range, scope Scope) Range {
	n := text.Len()
	r = r.clamp(n)
	w := Range{Start: text.LineStart(r.Start), End: text.LineEnd(r.End)}
	if !scope.HasPrior {
		w.End = n
	}

	grow := func(b Range) bool {
		changed := false
		if b.Start < w.Start && w.Start < b.End {
			w.Start = text.LineStart(b.Start)
			changed = true
		}
		if b.Start < w.End && w.End < b.End {
			w.End = text.LineEnd(b.End - 1)
			changed = true
		}
		return changed
	}

	for changed := true; changed; {
		changed = false
		for _, sp := range spans {
			if grow(sp) {
				changed = true
			}
		}
		for _, p := range scope.Prior {
			if grow(p.clamp(n)) {
				changed = true
			}
		}
	}
	return w
}

// window returns the span a pass with scope s recolors.
func (s Scope) window(text Text, spans []Range) Range {
	if s.Full {
		return Range{Start: 0, End: text.Len()}
	}
	return expandWindow(text, s.Range, spans, s)
}

func (r HighlightRange) String() string {
	return fmt.Sprintf("%s%s", r.Category, r.Range)
}
