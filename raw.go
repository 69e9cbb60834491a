package syntax

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RawPattern is one persisted pattern entry.  KeyString is accepted as an
// older spelling of BeginString.
type RawPattern struct {
	BeginString       string `yaml:"beginString,omitempty"`
	KeyString         string `yaml:"keyString,omitempty"`
	EndString         string `yaml:"endString,omitempty"`
	IgnoreCase        bool   `yaml:"ignoreCase,omitempty"`
	RegularExpression bool   `yaml:"regularExpression,omitempty"`
	Description       string `yaml:"description,omitempty"`
}

// Begin returns the begin pattern, preferring BeginString over KeyString.
func (p RawPattern) Begin() string {
	if p.BeginString != "" {
		return p.BeginString
	}
	return p.KeyString
}

// RawOutline is one persisted outline-menu entry.  BeginString is always a
// regular expression; KeyString is the title template.
type RawOutline struct {
	BeginString string `yaml:"beginString"`
	KeyString   string `yaml:"keyString,omitempty"`
	IgnoreCase  bool   `yaml:"ignoreCase,omitempty"`
	Bold        bool   `yaml:"bold,omitempty"`
	Underline   bool   `yaml:"underline,omitempty"`
	Italic      bool   `yaml:"italic,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// RawCommentDelimiters is the persisted comment-delimiter block.
type RawCommentDelimiters struct {
	InlineDelimiter string `yaml:"inlineDelimiter,omitempty"`
	BeginDelimiter  string `yaml:"beginDelimiter,omitempty"`
	EndDelimiter    string `yaml:"endDelimiter,omitempty"`
}

// Metadata is free-form information about a style's origin.
type Metadata struct {
	Author      string `yaml:"author,omitempty"`
	Version     string `yaml:"version,omitempty"`
	License     string `yaml:"license,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// RawDefinition is a style definition as stored on disk.  It is never
// mutated by this package.
type RawDefinition struct {
	Keywords   []RawPattern `yaml:"keywords,omitempty"`
	Commands   []RawPattern `yaml:"commands,omitempty"`
	Types      []RawPattern `yaml:"types,omitempty"`
	Attributes []RawPattern `yaml:"attributes,omitempty"`
	Variables  []RawPattern `yaml:"variables,omitempty"`
	Values     []RawPattern `yaml:"values,omitempty"`
	Numbers    []RawPattern `yaml:"numbers,omitempty"`
	Strings    []RawPattern `yaml:"strings,omitempty"`
	Characters []RawPattern `yaml:"characters,omitempty"`
	Comments   []RawPattern `yaml:"comments,omitempty"`

	OutlineMenu       []RawOutline         `yaml:"outlineMenu,omitempty"`
	CommentDelimiters RawCommentDelimiters `yaml:"commentDelimiters,omitempty"`

	Extensions   []string `yaml:"extensions,omitempty"`
	Filenames    []string `yaml:"filenames,omitempty"`
	Interpreters []string `yaml:"interpreters,omitempty"`

	Metadata Metadata `yaml:"metadata,omitempty"`
}

// Patterns returns the entries persisted under category c.
func (d *RawDefinition) Patterns(c Category) []RawPattern {
	switch c {
	case Keywords:
		return d.Keywords
	case Commands:
		return d.Commands
	case Types:
		return d.Types
	case Attributes:
		return d.Attributes
	case Variables:
		return d.Variables
	case Values:
		return d.Values
	case Numbers:
		return d.Numbers
	case Strings:
		return d.Strings
	case Characters:
		return d.Characters
	case Comments:
		return d.Comments
	}
	return nil
}

// ParseRaw decodes a YAML style definition.
func ParseRaw(data []byte) (*RawDefinition, error) {
	var raw RawDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse style definition: %w", err)
	}
	return &raw, nil
}

// Marshal encodes d in the persisted YAML format.
func (d *RawDefinition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}
