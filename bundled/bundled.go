// Package bundled embeds the styles shipped with acme-syntax.
package bundled

import (
	"embed"

	syntax "github.com/cptaffe/acme-syntax"
)

//go:embed styles/*.yaml
var styles embed.FS

// Source returns the bundled styles as a syntax.Source.
func Source() syntax.Source {
	return syntax.FSSource{FS: styles, Dir: "styles"}
}
