package syntax

import (
	"context"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/require"
)

func outlineStyle(t *testing.T, entries ...RawOutline) *Definition {
	def, errs := Compile("outline", &RawDefinition{OutlineMenu: entries})
	require.Empty(t, errs)
	return def
}

func extract(t *testing.T, def *Definition, src string) []OutlineItem {
	x, err := NewExtractor("")
	require.NoError(t, err)
	items, err := x.Extract(context.Background(), NewText(src), def)
	require.NoError(t, err)
	return items
}

func titles(items []OutlineItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestExtract(t *testing.T) {
	def := outlineStyle(t, RawOutline{BeginString: `^func (\w+)`, KeyString: "$1"})
	items := extract(t, def, "func foo() {}\nfunc bar() {}")
	require.Equal(t, []string{"foo", "bar"}, titles(items))
	require.Equal(t, Range{Start: 0, End: 8}, items[0].Range)
	require.Equal(t, Range{Start: 14, End: 22}, items[1].Range)
}

func TestExtractOrdersByOffset(t *testing.T) {
	def := outlineStyle(t,
		RawOutline{BeginString: `^type (\w+)`, KeyString: "type $1", Bold: true},
		RawOutline{BeginString: `^func (\w+)`, KeyString: "$1"},
		RawOutline{BeginString: `^// (-+)$`, KeyString: "$1"},
	)
	items := extract(t, def, "func a()\n// ---\ntype T int\nfunc b()\n")
	require.Equal(t, []string{"a", "---", "type T", "b"}, titles(items))
	require.True(t, items[1].IsSeparator)
	require.False(t, items[0].IsSeparator)
	require.True(t, items[2].Style.Bold)
}

func TestExtractIgnoreCase(t *testing.T) {
	def := outlineStyle(t, RawOutline{BeginString: `^section (\w+)`, KeyString: "$1", IgnoreCase: true})
	require.Equal(t, []string{"One", "two"}, titles(extract(t, def, "SECTION One\nsection two\n")))
}

func TestExtractEmpty(t *testing.T) {
	require.Empty(t, extract(t, nil, "func a()"))
	require.Empty(t, extract(t, outlineStyle(t), "func a()"))
	// Zero-length matches produce nothing.
	require.Empty(t, extract(t, outlineStyle(t, RawOutline{BeginString: `^`}), "a\nb\n"))
}

func TestExtractCancelled(t *testing.T) {
	x, err := NewExtractor("")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = x.Extract(ctx, NewText("func a()"), outlineStyle(t, RawOutline{BeginString: `^func`}))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewExtractorBadSeparator(t *testing.T) {
	_, err := NewExtractor("(")
	require.Error(t, err)
}

func TestExpandTemplate(t *testing.T) {
	re := regexp2.MustCompile(`(\w+)\s+(\w+)\s+(\w+)\s+(\w+)\s+(\w+)\s+(\w+)\s+(\w+)\s+(\w+)\s+(\w+)\s+(\w+)\s+(\w+)`, regexp2.None)
	m, err := re.FindStringMatch("a b c d e f g h i j k")
	require.NoError(t, err)

	tests := []struct {
		tmpl string
		want string
	}{
		{"", "a b c d e f g h i j k"},
		{"$1", "a"},
		{"${2}", "b"},
		{"$1$2", "ab"},
		{"$11", "k"},
		{"$12", "a2"}, // no group 12: one digit is taken
		{"${12}", ""},
		{"line $LN", "line 7"},
		{"$$1", "$1"},
		{"cost $", "cost $"},
		{"${x}", "${x}"},
		{"$x", "$x"},
		{"  $1\t$2  ", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			require.Equal(t, tt.want, expandTemplate(tt.tmpl, m, 7))
		})
	}
}
