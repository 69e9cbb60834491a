package syntax

import "context"

// region is one comment, string or character span found by the block scan.
type region struct {
	Range
	category Category
}

// nextBegin caches, per block rule, the leftmost begin match at or after the
// last search position.
type nextBegin struct {
	r    Range
	ok   bool
	done bool // no further matches in the document
}

// scanRegions runs the block scan over the whole document.  Openers are
// considered left to right and the earliest one wins, so a comment delimiter
// inside a string is part of the string and vice versa.  Ties at the same
// offset go to the higher-precedence category, then the longer opener, then
// declaration order.  An unterminated region runs to the end of the text.
func scanRegions(ctx context.Context, runes []rune, rules []*compiledRule, stats *passStats) ([]region, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	n := len(runes)
	next := make([]nextBegin, len(rules))
	var out []region

	for pos := 0; pos < n; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := -1
		for i, rule := range rules {
			c := &next[i]
			if c.done {
				continue
			}
			if !c.ok || c.r.Start < pos {
				r, ok := findNonEmpty(rule.begin, runes, pos, stats)
				if !ok {
					c.done = true
					continue
				}
				c.r, c.ok = r, true
			}
			if best < 0 || beats(c.r, rule, next[best].r, rules[best]) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		rule, begin := rules[best], next[best].r
		end, ok := closeRegion(rule, runes, begin, stats)
		if !ok {
			// The end search was abandoned; skip this opener.
			pos = begin.End
			continue
		}
		out = append(out, region{Range: Range{Start: begin.Start, End: end}, category: rule.category})
		pos = end
	}
	return out, nil
}

// beats reports whether opener a (of rule ra) wins over b (of rule rb).
// Rules are sorted by precedence then declaration, so comparing rank and
// order is enough for the tie-break.
func beats(a Range, ra *compiledRule, b Range, rb *compiledRule) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if ka, kb := ra.category.rank(), rb.category.rank(); ka != kb {
		return ka < kb
	}
	if a.Len() != b.Len() {
		return a.Len() > b.Len()
	}
	return ra.order < rb.order
}

// findNonEmpty returns the leftmost non-empty match of m at or after from.
// An abandoned attempt counts as no match, as does a disabled pattern.
func findNonEmpty(m *matcher, runes []rune, from int, stats *passStats) (Range, bool) {
	for from <= len(runes) && !stats.disabled(m) {
		r, ok, err := m.find(runes, from)
		if err != nil {
			stats.abandon(m, err)
			return Range{}, false
		}
		if !ok {
			return Range{}, false
		}
		if !r.IsEmpty() {
			return r, true
		}
		from = r.Start + 1
	}
	return Range{}, false
}

// closeRegion returns the end offset of the region opened by begin.  ok is
// false only when the end search was abandoned or its pattern disabled.
func closeRegion(rule *compiledRule, runes []rune, begin Range, stats *passStats) (int, bool) {
	switch {
	case rule.toLineEnd:
		for i := begin.End; i < len(runes); i++ {
			if runes[i] == '\n' {
				return i, true
			}
		}
		return len(runes), true
	case rule.end != nil:
		if stats.disabled(rule.end) {
			return 0, false
		}
		r, ok, err := rule.end.findUnescaped(runes, begin.End, rule.escape)
		if err != nil {
			stats.abandon(rule.end, err)
			return 0, false
		}
		if !ok {
			return len(runes), true
		}
		return r.End, true
	default:
		return begin.End, true
	}
}
