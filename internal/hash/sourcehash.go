package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/gitfiles"
	"github.com/cigen-dev/cigen/internal/model"
)

// FileDigest is one (path, sha256(content)) pair contributing to a
// canonical hash.
type FileDigest struct {
	Path string
	Sum  string
}

// ResolveSourceFiles expands a SourceFilesRef (bare group or inline
// patterns) against the project's tracked file listing, following @group
// references. A reference cycle is a fatal *diag.HashError detected by DFS
// per spec.md §4.3.
func ResolveSourceFiles(rootDir string, groups map[string]model.SourceFileGroup, ref *model.SourceFilesRef, tracked []string) ([]string, error) {
	if ref == nil {
		return nil, nil
	}
	var patterns []string
	if ref.GroupRef != "" {
		p, err := expandGroup(groups, ref.GroupRef, map[string]bool{})
		if err != nil {
			return nil, err
		}
		patterns = p
	} else {
		patterns = ref.Patterns
	}
	return matchFiles(tracked, patterns), nil
}

// expandGroup resolves a named group's patterns, inlining @references
// depth-first. `seen` detects cycles.
func expandGroup(groups map[string]model.SourceFileGroup, name string, seen map[string]bool) ([]string, error) {
	if seen[name] {
		return nil, &diag.HashError{Message: fmt.Sprintf("source-file group cycle detected at %q", name)}
	}
	seen[name] = true
	defer delete(seen, name)

	g, ok := groups[name]
	if !ok {
		return nil, &diag.HashError{Message: fmt.Sprintf("source-file group %q does not exist", name)}
	}

	var patterns []string
	patterns = append(patterns, g.Globs()...)
	for _, ref := range g.References() {
		sub, err := expandGroup(groups, ref, seen)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, sub...)
	}
	return patterns, nil
}

func matchFiles(tracked []string, patterns []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, path := range tracked {
		for _, pat := range patterns {
			if matchGlob(pat, path) {
				if !seen[path] {
					seen[path] = true
					out = append(out, path)
				}
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// DigestFiles computes sha256(content) for each path, fanned out across a
// worker pool bounded by runtime.NumCPU (spec.md §5: "file-content hashing
// may dispatch to a bounded worker pool ... behind a join barrier").
// Non-existent paths contribute an empty digest rather than failing,
// per spec.md §4.3.
func DigestFiles(rootDir string, paths []string) ([]FileDigest, error) {
	digests := make([]FileDigest, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(maxWorkers())

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			sum, err := digestOne(filepath.Join(rootDir, p))
			if err != nil {
				return err
			}
			digests[i] = FileDigest{Path: gitfiles.NormalizeSlash(p), Sum: sum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(digests, func(i, j int) bool { return digests[i].Path < digests[j].Path })
	return digests, nil
}

func digestOne(absPath string) (string, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &diag.HashError{Message: fmt.Sprintf("reading %s: %v", absPath, err)}
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

func maxWorkers() int {
	n := 4
	if c := cpuCount(); c > 0 {
		n = c
	}
	return n
}
