// Package parser turns free text into note field tuples. Saved parsers are
// declarative YAML rules (a regular expression plus field templates);
// programmatic transforms can be registered in-process but are never
// persisted.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

// DefaultName is the reserved parser that always exists.
const DefaultName = "DEFAULT"

// DefaultSource reads lines of the form word(reading):meaning into
// ["reading - meaning", "word"].
const DefaultSource = `pattern: '(?m)(?P<word>.*?)\((?P<reading>.*?)\):(?P<meaning>.*?)(?:\n|$)'
fields:
  - "${reading} - ${meaning}"
  - "${word}"
`

// Transform converts input text into field tuples.
type Transform interface {
	Apply(input string) ([][]string, error)
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(input string) ([][]string, error)

// Apply calls f.
func (f TransformFunc) Apply(input string) ([][]string, error) { return f(input) }

// Rule is the YAML source of a declarative parser.
type Rule struct {
	Pattern    string   `yaml:"pattern"`
	Fields     []string `yaml:"fields"`
	Trim       *bool    `yaml:"trim,omitempty"`
	AllowEmpty bool     `yaml:"allow_empty,omitempty"`
	IgnoreCase bool     `yaml:"ignore_case,omitempty"`
}

var templateRef = regexp.MustCompile(`\$(?:\{(\w+)\}|(\w+))`)

type rule struct {
	re         *regexp.Regexp
	fields     []string
	groups     []int
	trim       bool
	allowEmpty bool
}

// Compile parses and validates a parser source.
func Compile(source string) (Transform, error) {
	var r Rule
	dec := yaml.NewDecoder(strings.NewReader(source))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding parser: %v: %w", err, types.ErrInvalidParser)
	}
	return r.Compile()
}

// Compile validates the rule and builds its transform.
func (r Rule) Compile() (Transform, error) {
	if r.Pattern == "" {
		return nil, fmt.Errorf("pattern is required: %w", types.ErrInvalidParser)
	}
	if len(r.Fields) == 0 {
		return nil, fmt.Errorf("at least one field template is required: %w", types.ErrInvalidParser)
	}
	pattern := r.Pattern
	if r.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern: %v: %w", err, types.ErrInvalidParser)
	}

	names := make(map[string]bool)
	var groups []int
	for i, name := range re.SubexpNames() {
		if name != "" {
			names[name] = true
			groups = append(groups, i)
		}
	}
	for _, tmpl := range r.Fields {
		for _, m := range templateRef.FindAllStringSubmatch(strings.ReplaceAll(tmpl, "$$", ""), -1) {
			ref := m[1] + m[2]
			if !names[ref] && !isIndex(ref, re.NumSubexp()) {
				return nil, fmt.Errorf("field %q references unknown group %q: %w", tmpl, ref, types.ErrInvalidParser)
			}
		}
	}

	trim := true
	if r.Trim != nil {
		trim = *r.Trim
	}
	return &rule{re: re, fields: r.Fields, groups: groups, trim: trim, allowEmpty: r.AllowEmpty}, nil
}

func isIndex(ref string, n int) bool {
	i, err := strconv.Atoi(ref)
	return err == nil && i >= 0 && i <= n
}

// Apply expands the field templates for every match. Group values are
// trimmed first unless trim is off; a match with a blank named group is
// skipped unless allow_empty is set.
func (r *rule) Apply(input string) ([][]string, error) {
	var out [][]string
	for _, loc := range r.re.FindAllStringSubmatchIndex(input, -1) {
		src, idx := r.groupValues(input, loc)
		if !r.allowEmpty && r.blank(src, idx) {
			continue
		}
		tuple := make([]string, len(r.fields))
		for i, tmpl := range r.fields {
			tuple[i] = string(r.re.ExpandString(nil, tmpl, src, idx))
		}
		out = append(out, tuple)
	}
	return out, nil
}

// groupValues lays the (optionally trimmed) group values end to end and
// returns match indices into that string, so ExpandString sees trimmed
// values.
func (r *rule) groupValues(input string, loc []int) (string, []int) {
	var buf bytes.Buffer
	idx := make([]int, len(loc))
	for g := 0; g*2 < len(loc); g++ {
		start, end := loc[2*g], loc[2*g+1]
		if start < 0 {
			idx[2*g], idx[2*g+1] = -1, -1
			continue
		}
		v := input[start:end]
		if r.trim {
			v = strings.TrimSpace(v)
		}
		idx[2*g] = buf.Len()
		buf.WriteString(v)
		idx[2*g+1] = buf.Len()
	}
	return buf.String(), idx
}

func (r *rule) blank(src string, idx []int) bool {
	for _, g := range r.groups {
		start, end := idx[2*g], idx[2*g+1]
		if start < 0 || strings.TrimSpace(src[start:end]) == "" {
			return true
		}
	}
	return false
}
