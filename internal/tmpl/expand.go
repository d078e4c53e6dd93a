package tmpl

// ExpandAny walks a decoded YAML value (the map[string]any/[]any/string
// shape yaml.v3 produces for generic targets) and expands every string
// leaf through the engine, mirroring ExpandYAMLScalars for documents that
// have already been decoded into Go values rather than kept as a
// yaml.Node tree — the loader's fragment-merge step works in that shape
// (spec.md §4.1's merge happens before model decoding), so templating
// runs here instead of on the raw node.
func (e *Engine) ExpandAny(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return e.Expand(t)
	case map[string]any:
		for k, val := range t {
			expanded, err := e.ExpandAny(val)
			if err != nil {
				return nil, err
			}
			t[k] = expanded
		}
		return t, nil
	case []any:
		for i, val := range t {
			expanded, err := e.ExpandAny(val)
			if err != nil {
				return nil, err
			}
			t[i] = expanded
		}
		return t, nil
	default:
		return v, nil
	}
}
