package syntax

import (
	"sort"
	"time"
)

// PatternRule is one begin/end or single-token matcher tagged with a
// category, as declared in a style definition.
type PatternRule struct {
	Category   Category
	Begin      string
	End        string // empty for single-token rules
	IsRegex    bool
	IgnoreCase bool
	// Escape, when non-zero, prevents an End match preceded by an odd run of
	// Escape runes from closing the region.
	Escape rune
}

// OutlineStyle holds the display flags of an outline entry.
type OutlineStyle struct {
	Bold      bool
	Italic    bool
	Underline bool
}

// OutlinePattern extracts outline entries.  Pattern is always a regular
// expression; Template builds the title from its captures.
type OutlinePattern struct {
	Pattern    string
	Template   string
	IgnoreCase bool
	Style      OutlineStyle

	re *matcher
}

// CommentDelimiters describes how the language spells comments.  BlockBegin
// and BlockEnd are either both set or both empty.
type CommentDelimiters struct {
	Inline     string
	BlockBegin string
	BlockEnd   string
}

// HasBlock reports whether a block-comment pair is defined.
func (c CommentDelimiters) HasBlock() bool { return c.BlockBegin != "" && c.BlockEnd != "" }

// FileAssociations lists what a style is resolved from.
type FileAssociations struct {
	Extensions   []string
	Filenames    []string
	Interpreters []string
}

// Definition is a compiled, immutable style.  All patterns were compiled in
// Compile; a Definition is safe for concurrent use.
type Definition struct {
	Name     string
	Rules    map[Category][]PatternRule
	Outline  []OutlinePattern
	Comments CommentDelimiters
	Files    FileAssociations
	Metadata Metadata

	// blocks take part in the left-to-right block scan; ordered by
	// precedence then declaration.
	blocks []*compiledRule
	// tokens are everything else, ordered by precedence then declaration.
	tokens []*compiledRule

	declared int // pattern entries present in the raw definition
}

// compiledRule is the executable form of one or more PatternRules.
type compiledRule struct {
	category  Category
	order     int
	begin     *matcher
	end       *matcher // nil for single-token rules
	toLineEnd bool     // region closes at the end of the line
	escape    rune
}

func (r *compiledRule) paired() bool { return r.end != nil || r.toLineEnd }

// RuleCount returns the number of rules kept after compilation.
func (d *Definition) RuleCount() int {
	n := 0
	for _, rs := range d.Rules {
		n += len(rs)
	}
	return n
}

type compileConfig struct {
	timeout time.Duration
}

// CompileOption adjusts Compile.
type CompileOption func(*compileConfig)

// WithMatchTimeout sets the per-attempt regular-expression budget.
func WithMatchTimeout(d time.Duration) CompileOption {
	return func(c *compileConfig) { c.timeout = d }
}

type entryRef struct {
	key   string
	index int
}

// Compile validates raw and builds a Definition from it.  Entries that are
// duplicated or fail to compile are dropped individually, as is a
// block-comment pair missing one side; the returned errors describe what was
// dropped.  The Definition is never nil.
func Compile(name string, raw *RawDefinition, opts ...CompileOption) (*Definition, []StyleError) {
	cfg := compileConfig{timeout: DefaultMatchTimeout}
	for _, o := range opts {
		o(&cfg)
	}
	if raw == nil {
		raw = &RawDefinition{}
	}
	errs := Validate(raw)

	drop := make(map[entryRef]bool)
	dropBlock := false
	for _, e := range errs {
		if e.Kind == KindBlockComment {
			dropBlock = true
			continue
		}
		drop[entryRef{e.Key, e.Index}] = true
	}

	d := &Definition{
		Name:     name,
		Rules:    make(map[Category][]PatternRule),
		Metadata: raw.Metadata,
		Files: FileAssociations{
			Extensions:   append([]string(nil), raw.Extensions...),
			Filenames:    append([]string(nil), raw.Filenames...),
			Interpreters: append([]string(nil), raw.Interpreters...),
		},
		Comments: CommentDelimiters{Inline: raw.CommentDelimiters.InlineDelimiter},
	}
	if !dropBlock {
		d.Comments.BlockBegin = raw.CommentDelimiters.BeginDelimiter
		d.Comments.BlockEnd = raw.CommentDelimiters.EndDelimiter
	}

	order := 0
	next := func() int { order++; return order }

	// Comment delimiters come first among comments.
	if d.Comments.Inline != "" {
		if m, err := compileMatcher(d.Comments.Inline, false, false, cfg.timeout); err == nil {
			d.blocks = append(d.blocks, &compiledRule{category: Comments, order: next(), begin: m, toLineEnd: true})
		}
	}
	if d.Comments.HasBlock() {
		b, berr := compileMatcher(d.Comments.BlockBegin, false, false, cfg.timeout)
		e, eerr := compileMatcher(d.Comments.BlockEnd, false, false, cfg.timeout)
		if berr == nil && eerr == nil {
			d.blocks = append(d.blocks, &compiledRule{category: Comments, order: next(), begin: b, end: e})
		}
	}

	type wordGroup struct {
		order int
		words []string
	}
	groups := make(map[Category]map[bool]*wordGroup)

	for _, c := range AllCategories {
		for i, p := range raw.Patterns(c) {
			d.declared++
			begin := p.Begin()
			if begin == "" || drop[entryRef{c.String(), i}] {
				continue
			}
			rule := PatternRule{
				Category:   c,
				Begin:      begin,
				End:        p.EndString,
				IsRegex:    p.RegularExpression,
				IgnoreCase: p.IgnoreCase,
			}
			if (c == Strings || c == Characters) && !rule.IsRegex && rule.End != "" {
				rule.Escape = '\\'
			}

			// Plain words of non-block categories are merged per case mode.
			if !c.isBlock() && !rule.IsRegex && rule.End == "" {
				if groups[c] == nil {
					groups[c] = make(map[bool]*wordGroup)
				}
				g := groups[c][rule.IgnoreCase]
				if g == nil {
					g = &wordGroup{order: next()}
					groups[c][rule.IgnoreCase] = g
				}
				g.words = append(g.words, begin)
				d.Rules[c] = append(d.Rules[c], rule)
				continue
			}

			cr, err := compileRule(rule, next(), cfg.timeout)
			if err != nil {
				continue
			}
			d.Rules[c] = append(d.Rules[c], rule)
			if c.isBlock() {
				d.blocks = append(d.blocks, cr)
			} else {
				d.tokens = append(d.tokens, cr)
			}
		}
	}

	for c, byCase := range groups {
		for ignoreCase, g := range byCase {
			m, err := compileMatcher(wordAlternation(g.words), true, ignoreCase, cfg.timeout)
			if err != nil {
				continue
			}
			d.tokens = append(d.tokens, &compiledRule{category: c, order: g.order, begin: m})
		}
	}

	byPrecedence := func(rs []*compiledRule) {
		sort.SliceStable(rs, func(i, j int) bool {
			ri, rj := rs[i].category.rank(), rs[j].category.rank()
			if ri != rj {
				return ri < rj
			}
			return rs[i].order < rs[j].order
		})
	}
	byPrecedence(d.blocks)
	byPrecedence(d.tokens)

	for i, o := range raw.OutlineMenu {
		if drop[entryRef{KeyOutline, i}] || o.BeginString == "" {
			continue
		}
		m, err := compileMatcher(o.BeginString, true, o.IgnoreCase, cfg.timeout)
		if err != nil {
			continue
		}
		d.Outline = append(d.Outline, OutlinePattern{
			Pattern:    o.BeginString,
			Template:   o.KeyString,
			IgnoreCase: o.IgnoreCase,
			Style:      OutlineStyle{Bold: o.Bold, Italic: o.Italic, Underline: o.Underline},
			re:         m,
		})
	}

	return d, errs
}

func compileRule(p PatternRule, order int, timeout time.Duration) (*compiledRule, error) {
	b, err := compileMatcher(p.Begin, p.IsRegex, p.IgnoreCase, timeout)
	if err != nil {
		return nil, err
	}
	cr := &compiledRule{category: p.Category, order: order, begin: b, escape: p.Escape}
	if p.End != "" {
		e, err := compileMatcher(p.End, p.IsRegex, p.IgnoreCase, timeout)
		if err != nil {
			return nil, err
		}
		cr.end = e
	}
	return cr, nil
}

// unusable reports whether compilation dropped every declared pattern.
func (d *Definition) unusable() bool {
	return d.declared > 0 && d.RuleCount() == 0 && len(d.Outline) == 0
}
