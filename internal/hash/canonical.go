package hash

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// CanonicalYAML re-encodes v with every mapping's keys sorted lexically, so
// two semantically-identical job definitions serialize to byte-identical
// output regardless of source key order — required for hash stability
// (spec.md §3: "stable across runs on the same commit").
func CanonicalYAML(v any) ([]byte, error) {
	var node yaml.Node
	tmp, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(tmp, &node); err != nil {
		return nil, err
	}
	sortNode(&node)
	return yaml.Marshal(&node)
}

// sortNode recursively sorts mapping-node key/value pairs by key, in place.
func sortNode(n *yaml.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			sortNode(c)
		}
	case yaml.MappingNode:
		type pair struct{ key, val *yaml.Node }
		pairs := make([]pair, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, pair{n.Content[i], n.Content[i+1]})
		}
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key.Value < pairs[j].key.Value })
		content := make([]*yaml.Node, 0, len(n.Content))
		for _, p := range pairs {
			sortNode(p.val)
			content = append(content, p.key, p.val)
		}
		n.Content = content
	}
}
