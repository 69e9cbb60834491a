package syntax

import (
	"context"
	"sort"

	"github.com/cptaffe/acme-syntax/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HighlightRange is a resolved, colored span of a document.
type HighlightRange struct {
	Range
	Category Category
}

// Result is the outcome of one highlight pass.
type Result struct {
	// Ranges are sorted by start and pairwise non-overlapping, all within
	// Covered.
	Ranges []HighlightRange
	// Covered is the span the caller must recolor.  It may be wider than the
	// requested range.
	Covered Range
	// Spans are the multi-line spans of the whole document (block regions
	// and begin/end matches), to be carried into the next pass as
	// Scope.Prior.
	Spans []Range
	// Abandoned counts match attempts given up on (normally timeouts).
	Abandoned int
}

// maxAbandons is how many attempts of one pattern may be abandoned before
// the pattern is skipped for the rest of the pass.
const maxAbandons = 3

// passStats collects per-pass diagnostics and tracks patterns that keep
// timing out.
type passStats struct {
	log       *zap.Logger
	abandoned int
	strikes   map[*matcher]int
}

func (s *passStats) abandon(m *matcher, err error) {
	s.abandoned++
	if s.strikes == nil {
		s.strikes = make(map[*matcher]int)
	}
	s.strikes[m]++
	if s.strikes[m] == maxAbandons {
		s.log.Debug("pattern disabled for the rest of the pass",
			zap.String("pattern", m.source), zap.Int("abandoned", maxAbandons), zap.Error(err))
		return
	}
	s.log.Debug("pattern match abandoned", zap.String("pattern", m.source), zap.Error(err))
}

// disabled reports whether m has been abandoned too often in this pass.
func (s *passStats) disabled(m *matcher) bool {
	return s.strikes[m] >= maxAbandons
}

// Engine computes highlight ranges for a text under a Definition.  It holds
// no per-document state and is safe for concurrent use.
type Engine struct {
	tracer trace.Tracer
}

// NewEngine returns an Engine tracing through the global OpenTelemetry
// provider.
func NewEngine() *Engine {
	return &Engine{tracer: tracer()}
}

// Highlight computes the highlight ranges of text for scope.
//
// The pass runs in two phases.  The block scan walks the whole document left
// to right and records comment, string and character regions; the earliest
// opener wins, so keyword-like text inside them is never recolored.  The
// token scan then applies every other rule in precedence order, clipping
// each match around runes already claimed.  Single-token rules run line by
// line over the window only; begin/end rules outside the block categories
// scan the whole document so their state at the window edge is exact.
//
// A nil def yields no ranges.  A cancelled ctx yields ctx.Err() and no
// result.
func (e *Engine) Highlight(ctx context.Context, text Text, def *Definition, scope Scope) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "syntax.highlight", trace.WithAttributes(
		attribute.String("scope", scope.String()),
		attribute.Int("length", text.Len()),
	))
	defer span.End()

	if def == nil {
		return Result{Covered: Range{Start: 0, End: text.Len()}}, nil
	}
	span.SetAttributes(attribute.String("style", def.Name))

	log := logger.L(ctx)
	stats := &passStats{log: log}
	runes := text.runes

	regions, err := scanRegions(ctx, runes, def.blocks, stats)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	pairs := make([][]Range, len(def.tokens))
	var spans []Range
	for _, rg := range regions {
		spans = append(spans, rg.Range)
	}
	for i, rule := range def.tokens {
		if !rule.paired() {
			continue
		}
		pairs[i], err = scanPairs(ctx, runes, rule, stats)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return Result{}, err
		}
		spans = append(spans, pairs[i]...)
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})

	w := scope.window(text, spans)
	cl := newClaims(w)
	for _, rg := range regions {
		if rg.End <= w.Start {
			continue
		}
		if rg.Start >= w.End {
			break
		}
		cl.apply(rg.Range, rg.category)
	}

	if err := scanTokens(ctx, text, def.tokens, pairs, cl, stats); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	res := Result{
		Ranges:    cl.ranges(),
		Covered:   w,
		Spans:     spans,
		Abandoned: stats.abandoned,
	}
	span.SetAttributes(
		attribute.Int("ranges", len(res.Ranges)),
		attribute.Int("abandoned", res.Abandoned),
		attribute.Int("covered", w.Len()),
	)
	log.Debug("highlight pass",
		zap.String("style", def.Name),
		zap.Stringer("scope", scope),
		zap.Stringer("covered", w),
		zap.Int("ranges", len(res.Ranges)),
		zap.Int("abandoned", res.Abandoned))
	return res, nil
}

// scanPairs finds every match of a begin/end rule over the whole document,
// left to right and non-overlapping.
func scanPairs(ctx context.Context, runes []rune, rule *compiledRule, stats *passStats) ([]Range, error) {
	var out []Range
	for pos := 0; pos < len(runes); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, ok := findNonEmpty(rule.begin, runes, pos, stats)
		if !ok {
			break
		}
		end, ok := closeRegion(rule, runes, b, stats)
		if !ok {
			pos = b.End
			continue
		}
		out = append(out, Range{Start: b.Start, End: end})
		pos = end
	}
	return out, nil
}

// scanTokens applies the non-block rules to cl in precedence order.
// pairs[i] holds the precomputed matches of rules[i] when it is a begin/end
// rule; otherwise the rule is evaluated line by line over the window.
func scanTokens(ctx context.Context, text Text, rules []*compiledRule, pairs [][]Range, cl *claims, stats *passStats) error {
	w := cl.window
	if w.IsEmpty() {
		return nil
	}
	first, last := text.LineOf(w.Start), text.LineOf(w.End-1)

	for i, rule := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rule.paired() {
			for _, r := range pairs[i] {
				cl.apply(r, rule.category)
			}
			continue
		}
		for ln := first; ln <= last && !stats.disabled(rule.begin); ln++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			line := text.Line(ln)
			lr := text.runes[line.Start:line.End]
			for pos := 0; pos < len(lr); {
				r, ok, err := rule.begin.find(lr, pos)
				if err != nil {
					stats.abandon(rule.begin, err)
					break
				}
				if !ok {
					break
				}
				if r.IsEmpty() {
					pos = r.Start + 1
					continue
				}
				cl.apply(Range{Start: line.Start + r.Start, End: line.Start + r.End}, rule.category)
				pos = r.End
			}
		}
	}
	return nil
}
