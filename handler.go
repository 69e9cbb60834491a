package syntax

import (
	"fmt"
	"regexp"

	"github.com/cptaffe/acme-syntax/config"
)

// FilenameResolver maps a filename straight to a style name, ahead of the
// associations declared by the styles themselves.
type FilenameResolver interface {
	AssociatedStyleName(filename string) (string, bool)
}

// Handler is a compiled FilenameHandler, ready for matching.
type Handler struct {
	re    *regexp.Regexp
	style string
}

// Handlers is an ordered FilenameResolver; the first matching pattern wins.
type Handlers []Handler

// CompileHandlers pre-compiles the FilenameHandler regexes from cfg.
// Handlers whose regex is invalid are returned as an error.
func CompileHandlers(cfg *config.Config) (Handlers, error) {
	out := make(Handlers, 0, len(cfg.FilenameHandlers))
	for _, fh := range cfg.FilenameHandlers {
		re, err := regexp.Compile(fh.Pattern)
		if err != nil {
			return nil, fmt.Errorf("filename handler pattern %q: %w", fh.Pattern, err)
		}
		out = append(out, Handler{re: re, style: fh.Style})
	}
	return out, nil
}

func (hs Handlers) AssociatedStyleName(filename string) (string, bool) {
	for _, h := range hs {
		if h.re.MatchString(filename) {
			return h.style, h.style != ""
		}
	}
	return "", false
}
