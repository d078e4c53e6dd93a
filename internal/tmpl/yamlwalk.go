package tmpl

import "gopkg.in/yaml.v3"

// ExpandYAMLScalars walks a parsed YAML document and expands every string
// scalar value in place, per spec.md §4.2 inline mode: "every string
// scalar in non-templated YAML is expanded, preserving YAML validity."
// Map/sequence keys are left untouched; only scalar values are expanded.
func (e *Engine) ExpandYAMLScalars(node *yaml.Node) error {
	return e.walk(node, false)
}

func (e *Engine) walk(n *yaml.Node, isKey bool) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			if err := e.walk(c, false); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if err := e.walk(c, false); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if err := e.walk(n.Content[i], true); err != nil {
				return err
			}
			if err := e.walk(n.Content[i+1], false); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if isKey || n.Tag != "!!str" {
			return nil
		}
		expanded, err := e.Expand(n.Value)
		if err != nil {
			return err
		}
		n.Value = expanded
	}
	return nil
}
