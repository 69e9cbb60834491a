package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileMergesWords(t *testing.T) {
	raw := &RawDefinition{Keywords: []RawPattern{
		{KeyString: "if"},
		{KeyString: "else"},
		{KeyString: "select", IgnoreCase: true},
		{BeginString: `\bfor\b`, RegularExpression: true},
	}}
	def, errs := Compile("words", raw)
	require.Empty(t, errs)
	require.Len(t, def.Rules[Keywords], 4)
	// One alternation per case mode plus the regular expression.
	require.Len(t, def.tokens, 3)

	text, res := highlight(t, def, "if SELECT else IF for", FullDocument())
	require.Equal(t, []span{
		{"if", Keywords}, {"SELECT", Keywords}, {"else", Keywords}, {"for", Keywords},
	}, spans(text, res.Ranges))
}

func TestCompileEscape(t *testing.T) {
	raw := &RawDefinition{
		Strings: []RawPattern{
			{BeginString: `"`, EndString: `"`},
			{BeginString: "`", EndString: "`", RegularExpression: true},
			{BeginString: `#`},
		},
		Characters: []RawPattern{{BeginString: `'`, EndString: `'`}},
		Comments:   []RawPattern{{BeginString: `{`, EndString: `}`}},
	}
	def, errs := Compile("escape", raw)
	require.Empty(t, errs)
	require.Equal(t, '\\', def.Rules[Strings][0].Escape)
	require.Zero(t, def.Rules[Strings][1].Escape)
	require.Zero(t, def.Rules[Strings][2].Escape)
	require.Equal(t, '\\', def.Rules[Characters][0].Escape)
	require.Zero(t, def.Rules[Comments][0].Escape)
}

func TestCompileDropsBadEntries(t *testing.T) {
	raw := &RawDefinition{
		Keywords: []RawPattern{
			{KeyString: "if"},
			{KeyString: "if"},
			{BeginString: `[`, RegularExpression: true},
			{BeginString: `\d`, RegularExpression: true},
		},
		OutlineMenu: []RawOutline{
			{BeginString: `^func (\w+)`, KeyString: "$1"},
			{BeginString: `^type (`},
		},
		CommentDelimiters: RawCommentDelimiters{InlineDelimiter: "#", BeginDelimiter: "(*"},
	}
	def, errs := Compile("bad", raw)
	require.Len(t, errs, 4)
	require.Len(t, def.Rules[Keywords], 2)
	require.Len(t, def.Outline, 1)
	require.Equal(t, "#", def.Comments.Inline)
	require.False(t, def.Comments.HasBlock())
	require.False(t, def.unusable())
}

func TestCompileUnusable(t *testing.T) {
	tests := []struct {
		name     string
		raw      *RawDefinition
		unusable bool
	}{
		{"nil", nil, false},
		{"empty", &RawDefinition{Extensions: []string{"txt"}}, false},
		{"every pattern invalid", &RawDefinition{Keywords: []RawPattern{
			{BeginString: `(`, RegularExpression: true},
			{BeginString: `[`, RegularExpression: true},
		}}, true},
		{"outline only", &RawDefinition{
			Keywords:    []RawPattern{{BeginString: `(`, RegularExpression: true}},
			OutlineMenu: []RawOutline{{BeginString: `^## (.*)`}},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, _ := Compile(tt.name, tt.raw)
			require.NotNil(t, def)
			require.Equal(t, tt.unusable, def.unusable())
		})
	}
}

func TestCompileCopiesAssociations(t *testing.T) {
	raw := &RawDefinition{
		Extensions:   []string{"go"},
		Filenames:    []string{"go.mod"},
		Interpreters: []string{"gorun"},
		Metadata:     Metadata{Author: "rsc", Version: "2"},
	}
	def, errs := Compile("go", raw)
	require.Empty(t, errs)
	require.Equal(t, "go", def.Name)
	require.Equal(t, FileAssociations{
		Extensions:   []string{"go"},
		Filenames:    []string{"go.mod"},
		Interpreters: []string{"gorun"},
	}, def.Files)
	require.Equal(t, "rsc", def.Metadata.Author)

	raw.Extensions[0] = "c"
	require.Equal(t, "go", def.Files.Extensions[0])
}

func TestCompileBlockOrder(t *testing.T) {
	raw := &RawDefinition{
		Strings:           []RawPattern{{BeginString: `"`, EndString: `"`}},
		Comments:          []RawPattern{{BeginString: `#`, EndString: `#`}},
		CommentDelimiters: RawCommentDelimiters{InlineDelimiter: "//"},
	}
	def, errs := Compile("order", raw)
	require.Empty(t, errs)
	require.Len(t, def.blocks, 3)
	require.Equal(t, Comments, def.blocks[0].category)
	require.True(t, def.blocks[0].toLineEnd)
	require.Equal(t, Comments, def.blocks[1].category)
	require.Equal(t, Strings, def.blocks[2].category)
}

func TestWordAlternation(t *testing.T) {
	require.Equal(t, `(?:\belse\b|\+\+|\bif\b|\bin\b)`, wordAlternation([]string{"in", "++", "if", "else"}))
	require.Equal(t, `(?:\bx\.)`, wordAlternation([]string{"x."}))
}
