package syntax

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single regular-expression match attempt.  A
// pattern that backtracks past it is treated as not matching.
const DefaultMatchTimeout = 250 * time.Millisecond

// matcher wraps one compiled pattern.  Literal patterns are compiled as
// escaped regular expressions so every rule goes through the same engine and
// the same timeout.
type matcher struct {
	source string
	re     *regexp2.Regexp
}

func compileMatcher(pattern string, isRegex, ignoreCase bool, timeout time.Duration) (*matcher, error) {
	expr := pattern
	if !isRegex {
		expr = regexp2.Escape(pattern)
	}
	re, err := regexp2.Compile(expr, regexOptions(ignoreCase))
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return &matcher{source: pattern, re: re}, nil
}

// find returns the leftmost match in runes starting at or after from.  A
// non-nil error means the attempt was abandoned (normally a timeout); the
// caller treats it as no match.
func (m *matcher) find(runes []rune, from int) (Range, bool, error) {
	if from > len(runes) {
		return Range{}, false, nil
	}
	match, err := m.re.FindRunesMatchStartingAt(runes, from)
	if err != nil {
		return Range{}, false, err
	}
	if match == nil {
		return Range{}, false, nil
	}
	return Range{Start: match.Index, End: match.Index + match.Length}, true, nil
}

// findMatch is find returning the regexp2 match for capture access.
func (m *matcher) findMatch(runes []rune, from int) (*regexp2.Match, error) {
	if from > len(runes) {
		return nil, nil
	}
	return m.re.FindRunesMatchStartingAt(runes, from)
}

// findUnescaped finds the next match of m at or after from whose start is
// not preceded by an odd run of escape runes.  escape 0 disables the check.
func (m *matcher) findUnescaped(runes []rune, from int, escape rune) (Range, bool, error) {
	for {
		r, ok, err := m.find(runes, from)
		if err != nil || !ok || escape == 0 {
			return r, ok, err
		}
		n := 0
		for i := r.Start - 1; i >= 0 && runes[i] == escape; i-- {
			n++
		}
		if n%2 == 0 {
			return r, true, nil
		}
		from = r.Start + 1
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordAlternation builds one expression matching any of words.  A word that
// starts or ends with a word character is bounded by \b on that side so
// "in" does not match inside "int".  Longer words are tried first.
func wordAlternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})

	var sb strings.Builder
	sb.WriteString("(?:")
	for i, w := range sorted {
		if i > 0 {
			sb.WriteByte('|')
		}
		r := []rune(w)
		if isWordRune(r[0]) {
			sb.WriteString(`\b`)
		}
		sb.WriteString(regexp2.Escape(w))
		if isWordRune(r[len(r)-1]) {
			sb.WriteString(`\b`)
		}
	}
	sb.WriteString(")")
	return sb.String()
}
