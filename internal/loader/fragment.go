package loader

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/diag"
)

// fragment is one parsed YAML file, with its source path retained for
// diagnostics (spec.md §4.1: "each file is YAML-parsed with source spans
// retained for diagnostics").
type fragment struct {
	Path string
	Node yaml.Node
}

func readFragment(path string) (*fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &diag.ConfigError{Span: diag.Span{File: path}, Message: err.Error()}
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &diag.ConfigError{Span: diag.Span{File: path}, Message: err.Error()}
	}
	return &fragment{Path: path, Node: node}, nil
}

// globFragments lists YAML files under dir matching pattern, sorted for
// determinism (spec.md §5: emission/loading order must be reproducible).
func globFragments(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func span(path string, node *yaml.Node) diag.Span {
	if node == nil {
		return diag.Span{File: path}
	}
	return diag.Span{File: path, Line: node.Line, Col: node.Column}
}
