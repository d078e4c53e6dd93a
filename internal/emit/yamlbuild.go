package emit

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node building helpers. Every emitter builds its output as a yaml.Node
// tree rather than marshaling a Go struct, because spec.md §4.7 requires
// byte-identical, deterministically-ordered output: struct marshaling
// can't express "sort these keys but preserve the declared order of that
// list" in one pass.

// Map builds a mapping node from ordered key/value pairs — callers decide
// the order (sorted, or declaration order where the spec requires it).
func Map(pairs ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: pairs}
}

// SortedMap builds a mapping node whose keys are sorted lexicographically,
// per spec.md §4.7's default rule ("sort map keys lexicographically
// except where order is semantically required").
func SortedMap(m map[string]*yaml.Node) *yaml.Node {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	content := make([]*yaml.Node, 0, len(keys)*2)
	for _, k := range keys {
		content = append(content, Scalar(k), m[k])
	}
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: content}
}

// Seq builds a sequence node, preserving the given item order — step
// lists and job lists always use this, never SortedMap's key-sort.
func Seq(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

// SeqStrings builds a sequence of plain string scalars.
func SeqStrings(ss []string) *yaml.Node {
	items := make([]*yaml.Node, len(ss))
	for i, s := range ss {
		items[i] = Scalar(s)
	}
	return Seq(items...)
}

// Scalar builds a string scalar, double-quoted only when the value needs
// it to round-trip unambiguously — spec.md §4.7: "double-quote strings
// containing special characters," plain style otherwise.
func Scalar(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if needsQuoting(s) {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

// Bool builds a boolean scalar.
func Bool(b bool) *yaml.Node {
	v := "false"
	if b {
		v = "true"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v}
}

// Int builds an integer scalar.
func Int(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: itoa(i)}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, ":{}[]#&*!|>'\"%@`,\n\t") {
		return true
	}
	switch s {
	case "true", "false", "null", "~", "yes", "no", "on", "off":
		return true
	}
	if s[0] == ' ' || s[len(s)-1] == ' ' {
		return true
	}
	// Looks like a number — quote so it round-trips as a string.
	allDigits := true
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' {
			allDigits = false
			break
		}
	}
	return allDigits
}

// Document wraps a root mapping node in a DocumentNode and marshals it
// with yaml.v3's default (block style, two-space indent) encoder.
func Document(root *yaml.Node) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
