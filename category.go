package syntax

import "strings"

// Category is the semantic class of highlighted text.  It selects the
// display color in the view layer.
type Category uint8

// Categories in persisted order.  The zero value is "no category".
const (
	CategoryNone Category = iota
	Keywords
	Commands
	Types
	Attributes
	Variables
	Values
	Numbers
	Strings
	Characters
	Comments
)

// AllCategories lists every category in persisted order.
var AllCategories = []Category{
	Keywords, Commands, Types, Attributes, Variables,
	Values, Numbers, Strings, Characters, Comments,
}

// Precedence is the order in which categories claim text, highest first.
// Once a rune is claimed, lower categories are clipped around it.
var Precedence = []Category{
	Comments, Strings, Characters, Numbers, Keywords,
	Commands, Types, Attributes, Variables, Values,
}

// categoryTable holds, per category, the key used in style definition files
// and the short palette name emitted to acme-styles.  Index 0 is the "no
// style" sentinel.
var categoryTable = [...]struct {
	key     string
	palette string
}{
	CategoryNone: {"", ""},
	Keywords:     {"keywords", "k"},
	Commands:     {"commands", "f"},
	Types:        {"types", "t"},
	Attributes:   {"attributes", "a"},
	Variables:    {"variables", "v"},
	Values:       {"values", "m"},
	Numbers:      {"numbers", "n"},
	Strings:      {"strings", "s"},
	Characters:   {"characters", "h"},
	Comments:     {"comments", "c"},
}

// categoryIndex maps definition keys, palette names, and a few singular
// aliases to categories.
var categoryIndex = map[string]Category{
	// singular aliases
	"keyword": Keywords, "command": Commands, "type": Types, "attribute": Attributes,
	"variable": Variables, "value": Values, "number": Numbers, "string": Strings,
	"character": Characters, "comment": Comments,
}

func init() {
	for c := Keywords; c <= Comments; c++ {
		categoryIndex[categoryTable[c].key] = c
		categoryIndex[categoryTable[c].palette] = c
	}
}

// String returns the definition-file key, e.g. "comments".
func (c Category) String() string {
	if int(c) >= len(categoryTable) {
		return "unknown"
	}
	return categoryTable[c].key
}

// Palette returns the short palette name used for acme-styles entries.
func (c Category) Palette() string {
	if int(c) >= len(categoryTable) {
		return ""
	}
	return categoryTable[c].palette
}

// isBlock reports whether rules of c take part in the left-to-right block
// scan, where the earliest opener wins regardless of precedence.
func (c Category) isBlock() bool {
	return c == Comments || c == Strings || c == Characters
}

// rank returns c's position in Precedence; lower ranks win.
func (c Category) rank() int {
	for i, p := range Precedence {
		if p == c {
			return i
		}
	}
	return len(Precedence)
}

// ParseCategory converts a definition key or palette name to a Category.
// Hierarchical names fall back to their stem, so "comments.doc" resolves to
// Comments.
func ParseCategory(name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for {
		if c, ok := categoryIndex[name]; ok {
			return c, true
		}
		dot := strings.LastIndex(name, ".")
		if dot < 0 {
			return CategoryNone, false
		}
		name = name[:dot]
	}
}
