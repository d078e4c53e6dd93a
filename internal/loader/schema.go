package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/diag"
)

// validateSchema implements the subset of JSON Schema draft-07 that
// spec.md §4.1's `$schema:` field needs: type, required, enum, and
// properties/additionalProperties. No example repo in the retrieval pack
// vendors a JSON Schema library (santhosh-tekuri/jsonschema, xeipuuv/gojsonschema,
// and similar packages appear in neither the teacher nor the rest of the
// pack), so this is built on encoding/json against the stdlib-decoded
// document rather than pulling in an unvetted dependency — the one
// deliberately stdlib-only piece of the loader.
func validateSchema(root, schemaRef string, doc map[string]any) error {
	schemaPath := filepath.Join(root, schemaRef)
	raw, err := os.ReadFile(schemaPath)
	if err != nil {
		return &diag.ConfigError{Span: diag.Span{File: schemaPath}, Message: "$schema: " + err.Error()}
	}

	var schemaYAML any
	if err := yaml.Unmarshal(raw, &schemaYAML); err != nil {
		return &diag.ConfigError{Span: diag.Span{File: schemaPath}, Message: "$schema: " + err.Error()}
	}
	schema, err := toJSONCompatible(schemaYAML)
	if err != nil {
		return &diag.ConfigError{Span: diag.Span{File: schemaPath}, Message: "$schema: " + err.Error()}
	}
	schemaMap, ok := schema.(map[string]any)
	if !ok {
		return &diag.ConfigError{Span: diag.Span{File: schemaPath}, Message: "$schema: root must be an object"}
	}

	docJSON, err := toJSONCompatible(doc)
	if err != nil {
		return &diag.ConfigError{Message: "$schema: " + err.Error()}
	}

	var problems []string
	validateNode(schemaMap, docJSON, "$", &problems)
	if len(problems) > 0 {
		sort.Strings(problems)
		return &diag.ConfigError{Span: diag.Span{File: schemaPath}, Message: fmt.Sprintf("$schema validation failed:\n  %s", joinLines(problems))}
	}
	return nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n  "
		}
		out += l
	}
	return out
}

// toJSONCompatible converts a yaml.v3-decoded value tree (which may contain
// map[interface{}]any in older decode paths) into the map[string]any /
// []any / primitive shapes encoding/json expects, round-tripping through
// json.Marshal/Unmarshal for a clean normalize.
func toJSONCompatible(v any) (any, error) {
	data, err := json.Marshal(normalizeKeys(v))
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeKeys(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprintf("%v", k)] = normalizeKeys(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalizeKeys(vv)
		}
		return out
	default:
		return t
	}
}

func validateNode(schema map[string]any, value any, path string, problems *[]string) {
	if t, ok := schema["type"].(string); ok {
		if !matchesType(t, value) {
			*problems = append(*problems, fmt.Sprintf("%s: expected type %q", path, t))
			return
		}
	}
	if enum, ok := schema["enum"].([]any); ok {
		if !enumContains(enum, value) {
			*problems = append(*problems, fmt.Sprintf("%s: value not in enum", path))
		}
	}

	obj, isObj := value.(map[string]any)
	if !isObj {
		return
	}

	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			name, _ := r.(string)
			if _, present := obj[name]; !present {
				*problems = append(*problems, fmt.Sprintf("%s: missing required key %q", path, name))
			}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for k, v := range obj {
		if propSchema, ok := props[k].(map[string]any); ok {
			validateNode(propSchema, v, path+"."+k, problems)
			continue
		}
		if additional, ok := schema["additionalProperties"]; ok {
			if b, isBool := additional.(bool); isBool && !b {
				*problems = append(*problems, fmt.Sprintf("%s.%s: additional property not allowed", path, k))
			}
		}
	}
}

func matchesType(t string, v any) bool {
	switch t {
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "number":
		_, ok := v.(float64)
		return ok
	case "integer":
		f, ok := v.(float64)
		return ok && f == float64(int64(f))
	case "null":
		return v == nil
	default:
		return true
	}
}

func enumContains(enum []any, v any) bool {
	for _, e := range enum {
		if fmt.Sprintf("%v", e) == fmt.Sprintf("%v", v) {
			return true
		}
	}
	return false
}
