package tmpl

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
)

// readFunc implements the `read(path)` builtin from spec.md §4.2: returns
// the contents of a file relative to the template root.
func (e *Engine) readFunc(path string) (string, error) {
	abs := filepath.Join(e.rootDir, path)
	if !withinRoot(e.rootDir, abs) {
		return "", fmt.Errorf("read(%q): path escapes project root", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read(%q): %w", path, err)
	}
	return string(data), nil
}

func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}

// nowFunc implements the `now()` builtin supplemented from
// original_source/src/templating/functions.rs — not named by spec.md, not
// excluded by any Non-goal, and useful for build-timestamp templating.
func nowFunc() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// semverCompareFilter implements the `semver_compare` filter supplemented
// from original_source/src/templating/functions.rs, backed by the
// teacher's own semver dependency (used for version-freshness comparisons
// in src/lint/modules/freshness/semver.go). Returns -1, 0, or 1.
func semverCompareFilter(a, b string) (int, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("semver_compare: %q is not a valid version: %w", a, err)
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("semver_compare: %q is not a valid version: %w", b, err)
	}
	return va.Compare(vb), nil
}
