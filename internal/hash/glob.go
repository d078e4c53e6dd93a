package hash

import (
	"path/filepath"
	"strings"
)

// matchGlob extends filepath.Match with "**" (zero or more path segments).
// Patterns and paths must use "/" separators. Grounded on the teacher's
// lint.matchGlob (src/lint/glob.go), which solves the identical problem for
// lint-module file selection.
func matchGlob(pattern, path string) bool {
	if !strings.Contains(pattern, "**") {
		matched, _ := filepath.Match(pattern, path)
		return matched
	}

	idx := strings.Index(pattern, "**")
	prefix := pattern[:idx]
	suffix := strings.TrimLeft(pattern[idx+2:], "/")

	if prefix != "" {
		prefix = strings.TrimRight(prefix, "/")
		if !strings.HasPrefix(path, prefix) {
			return false
		}
		path = strings.TrimPrefix(path, prefix)
		path = strings.TrimLeft(path, "/")
	}

	if suffix == "" {
		return true
	}

	parts := strings.Split(path, "/")
	for i := 0; i <= len(parts); i++ {
		tail := strings.Join(parts[i:], "/")
		if matchGlob(suffix, tail) {
			return true
		}
	}
	return false
}
