package syntax

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cptaffe/acme-syntax/logger"
	"github.com/dlclark/regexp2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultSeparatorPattern marks outline titles rendered as dividers.
const DefaultSeparatorPattern = `^-+$`

// OutlineItem is one navigable entry of a document outline.
type OutlineItem struct {
	Title       string
	Range       Range
	Style       OutlineStyle
	IsSeparator bool
}

// Extractor derives outlines from a Definition's outline patterns.  It is
// safe for concurrent use.
type Extractor struct {
	separator *regexp2.Regexp
	tracer    trace.Tracer
}

// NewExtractor returns an Extractor using separator to recognise divider
// titles.  An empty separator selects DefaultSeparatorPattern.
func NewExtractor(separator string) (*Extractor, error) {
	if separator == "" {
		separator = DefaultSeparatorPattern
	}
	re, err := regexp2.Compile(separator, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("separator pattern %q: %w", separator, err)
	}
	re.MatchTimeout = DefaultMatchTimeout
	return &Extractor{separator: re, tracer: tracer()}, nil
}

// Extract scans the whole of text with every outline pattern of def and
// returns one item per non-empty match, ordered by offset.  Items at the
// same offset keep pattern declaration order.
func (x *Extractor) Extract(ctx context.Context, text Text, def *Definition) ([]OutlineItem, error) {
	ctx, span := x.tracer.Start(ctx, "syntax.outline", trace.WithAttributes(
		attribute.Int("length", text.Len()),
	))
	defer span.End()
	if def == nil || len(def.Outline) == 0 {
		return nil, nil
	}
	log := logger.L(ctx)
	runes := text.runes

	var items []OutlineItem
	for _, p := range def.Outline {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		for pos := 0; pos <= len(runes); {
			if err := ctx.Err(); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			m, err := p.re.findMatch(runes, pos)
			if err != nil {
				log.Debug("outline match abandoned", zap.String("pattern", p.Pattern), zap.Error(err))
				break
			}
			if m == nil {
				break
			}
			if m.Length == 0 {
				pos = m.Index + 1
				continue
			}
			title := expandTemplate(p.Template, m, text.LineOf(m.Index)+1)
			items = append(items, OutlineItem{
				Title:       title,
				Range:       Range{Start: m.Index, End: m.Index + m.Length},
				Style:       p.Style,
				IsSeparator: x.isSeparator(title),
			})
			pos = m.Index + m.Length
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Range.Start < items[j].Range.Start })
	span.SetAttributes(attribute.String("style", def.Name), attribute.Int("items", len(items)))
	return items, nil
}

func (x *Extractor) isSeparator(title string) bool {
	ok, err := x.separator.MatchString(title)
	return err == nil && ok
}

var titleCleaner = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// expandTemplate builds an outline title from tmpl and the captures of m.
// $n and ${n} insert capture group n, $LN the 1-based line number of the
// match, and $$ a literal dollar.  Multi-digit references use as many digits
// as name an existing group.  An empty template yields the whole match.
func expandTemplate(tmpl string, m *regexp2.Match, line int) string {
	if tmpl == "" {
		return strings.TrimSpace(titleCleaner.Replace(m.String()))
	}
	groups := m.GroupCount()
	group := func(n int) string {
		g := m.GroupByNumber(n)
		if g == nil || len(g.Captures) == 0 {
			return ""
		}
		return g.String()
	}

	var sb strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '$' || i+1 == len(tmpl) {
			sb.WriteByte(c)
			continue
		}
		rest := tmpl[i+1:]
		switch {
		case rest[0] == '$':
			sb.WriteByte('$')
			i++
		case strings.HasPrefix(rest, "LN"):
			sb.WriteString(strconv.Itoa(line))
			i += 2
		case rest[0] == '{':
			end := strings.IndexByte(rest, '}')
			n, err := strconv.Atoi(rest[1:max(end, 1)])
			if end < 0 || err != nil {
				sb.WriteByte(c)
				continue
			}
			sb.WriteString(group(n))
			i += end + 1
		case rest[0] >= '0' && rest[0] <= '9':
			n := int(rest[0] - '0')
			j := 1
			for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
				next := n*10 + int(rest[j]-'0')
				if next >= groups {
					break
				}
				n = next
				j++
			}
			sb.WriteString(group(n))
			i += j
		default:
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(titleCleaner.Replace(sb.String()))
}
