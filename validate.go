package syntax

import (
	"fmt"
	"sort"

	"github.com/dlclark/regexp2"
)

// ErrorKind classifies a StyleError.
type ErrorKind uint8

const (
	// KindDuplicated marks an entry whose (begin, end) pair repeats an
	// earlier entry in the same group.
	KindDuplicated ErrorKind = iota + 1
	// KindRegularExpression marks a pattern that failed to compile.
	KindRegularExpression
	// KindBlockComment marks a block-comment pair with only one side set.
	KindBlockComment
)

func (k ErrorKind) String() string {
	switch k {
	case KindDuplicated:
		return "duplicated"
	case KindRegularExpression:
		return "regularExpression"
	case KindBlockComment:
		return "blockComment"
	}
	return "unknown"
}

// Role names the part of an entry a StyleError refers to.
type Role uint8

const (
	RoleBegin Role = iota + 1
	RoleEnd
	RoleRegularExpression
)

func (r Role) String() string {
	switch r {
	case RoleBegin:
		return "begin"
	case RoleEnd:
		return "end"
	case RoleRegularExpression:
		return "regularExpression"
	}
	return ""
}

// Keys used in StyleError.Key for the non-category groups.
const (
	KeyOutline           = "outlineMenu"
	KeyCommentDelimiters = "commentDelimiters"
)

// StyleError pinpoints one problem in a raw style definition.
type StyleError struct {
	Kind   ErrorKind
	Key    string // category key, KeyOutline, or KeyCommentDelimiters
	Role   Role
	String string // offending pattern or delimiter
	Index  int    // entry index within its group; -1 for delimiters
	Err    error  // compile error for KindRegularExpression
}

func (e StyleError) Error() string {
	switch e.Kind {
	case KindDuplicated:
		return fmt.Sprintf("%s: duplicated %s pattern %q", e.Key, e.Role, e.String)
	case KindRegularExpression:
		return fmt.Sprintf("%s: invalid %s regular expression %q: %v", e.Key, e.Role, e.String, e.Err)
	case KindBlockComment:
		return fmt.Sprintf("%s: block comment delimiter %q has no %s counterpart", e.Key, e.String, e.Role)
	}
	return fmt.Sprintf("%s: %s", e.Key, e.String)
}

func (e StyleError) Unwrap() error { return e.Err }

// regexOptions returns the regexp2 options every style pattern is compiled
// with.  Anchors always match at line boundaries.
func regexOptions(ignoreCase bool) regexp2.RegexOptions {
	opts := regexp2.RegexOptions(regexp2.Multiline)
	if ignoreCase {
		opts |= regexp2.IgnoreCase
	}
	return opts
}

type entryKey struct {
	index      int
	begin, end string
}

// sortEntries orders entries by (begin, end) with a missing end sorting
// after any present one.  The sort is stable, so among identical pairs the
// first declared entry comes first.
func sortEntries(keys []entryKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.begin != b.begin {
			return a.begin < b.begin
		}
		if (a.end == "") != (b.end == "") {
			return b.end == ""
		}
		return a.end < b.end
	})
}

// Validate checks raw for duplicated patterns, invalid regular expressions
// and incomplete block-comment delimiters.  It never modifies raw and always
// returns the same errors, in the same order, for the same input.
func Validate(raw *RawDefinition) []StyleError {
	if raw == nil {
		return nil
	}
	var errs []StyleError

	for _, c := range AllCategories {
		entries := raw.Patterns(c)
		keys := make([]entryKey, len(entries))
		for i, p := range entries {
			keys[i] = entryKey{index: i, begin: p.Begin(), end: p.EndString}
		}
		sortEntries(keys)

		for i, k := range keys {
			if i > 0 && keys[i-1].begin == k.begin && keys[i-1].end == k.end {
				errs = append(errs, StyleError{
					Kind: KindDuplicated, Key: c.String(), Role: RoleBegin,
					String: k.begin, Index: k.index,
				})
			}
			p := entries[k.index]
			if !p.RegularExpression {
				continue
			}
			if _, err := regexp2.Compile(k.begin, regexOptions(p.IgnoreCase)); err != nil {
				errs = append(errs, StyleError{
					Kind: KindRegularExpression, Key: c.String(), Role: RoleBegin,
					String: k.begin, Index: k.index, Err: err,
				})
			}
			if k.end == "" {
				continue
			}
			if _, err := regexp2.Compile(k.end, regexOptions(p.IgnoreCase)); err != nil {
				errs = append(errs, StyleError{
					Kind: KindRegularExpression, Key: c.String(), Role: RoleEnd,
					String: k.end, Index: k.index, Err: err,
				})
			}
		}
	}

	keys := make([]entryKey, len(raw.OutlineMenu))
	for i, o := range raw.OutlineMenu {
		keys[i] = entryKey{index: i, begin: o.BeginString}
	}
	sortEntries(keys)
	for i, k := range keys {
		if i > 0 && keys[i-1].begin == k.begin && keys[i-1].end == k.end {
			errs = append(errs, StyleError{
				Kind: KindDuplicated, Key: KeyOutline, Role: RoleRegularExpression,
				String: k.begin, Index: k.index,
			})
		}
		o := raw.OutlineMenu[k.index]
		if _, err := regexp2.Compile(k.begin, regexOptions(o.IgnoreCase)); err != nil {
			errs = append(errs, StyleError{
				Kind: KindRegularExpression, Key: KeyOutline, Role: RoleRegularExpression,
				String: k.begin, Index: k.index, Err: err,
			})
		}
	}

	cd := raw.CommentDelimiters
	switch {
	case cd.BeginDelimiter != "" && cd.EndDelimiter == "":
		errs = append(errs, StyleError{
			Kind: KindBlockComment, Key: KeyCommentDelimiters, Role: RoleEnd,
			String: cd.BeginDelimiter, Index: -1,
		})
	case cd.BeginDelimiter == "" && cd.EndDelimiter != "":
		errs = append(errs, StyleError{
			Kind: KindBlockComment, Key: KeyCommentDelimiters, Role: RoleBegin,
			String: cd.EndDelimiter, Index: -1,
		})
	}
	return errs
}
