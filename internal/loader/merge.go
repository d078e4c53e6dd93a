package loader

import (
	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/diag"
)

// mergeFragments deep-merges a sequence of YAML fragments into one map, in
// file order, per spec.md §4.1: later fragments win on scalar and sequence
// conflicts, while mapping keys (including cache_definitions and
// version_sources, which are YAML mappings keyed by name) union naturally
// because mergo recurses into nested maps rather than replacing them
// wholesale. Sequences fall back to mergo's default override behavior,
// which matches the spec's "sequence values replace, they do not concatenate"
// rule.
func mergeFragments(frags []*fragment) (map[string]any, error) {
	merged := map[string]any{}
	for _, f := range frags {
		var m map[string]any
		if err := f.Node.Decode(&m); err != nil {
			return nil, &diag.ConfigError{Span: span(f.Path, &f.Node), Message: err.Error()}
		}
		if err := mergo.Merge(&merged, m, mergo.WithOverride); err != nil {
			return nil, &diag.ConfigError{Span: span(f.Path, &f.Node), Message: "merge: " + err.Error()}
		}
	}
	return merged, nil
}

// decodeInto re-marshals a merged generic map and decodes it into dst,
// routing through yaml.v3 so the target's custom UnmarshalYAML methods
// (CacheDecl, Step, SourceFilesRef, ...) still run.
func decodeInto(m map[string]any, dst any) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, dst)
}
