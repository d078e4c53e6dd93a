// Package gitfiles enumerates a project's version-controlled files — the
// git-ls-files equivalent spec.md's hasher needs for source-file-group
// resolution. Grounded on the teacher's src/lint/delta.go, which already
// drives go-git worktree status and branch diffs for the same "what files
// does this project track" question.
package gitfiles

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ListTracked returns every file path (relative to root, forward-slash
// separated) tracked by git at HEAD. If root is not a git repository, it
// falls back to a plain directory walk skipping VCS and common build
// directories — spec.md is silent on the non-git case, and this mirrors
// delta.go's own "not a git repo, scan everything" fallback.
func ListTracked(root string) ([]string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return walkAll(root)
	}

	head, err := repo.Head()
	if err != nil {
		return walkAll(root)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return walkAll(root)
	}
	tree, err := commit.Tree()
	if err != nil {
		return walkAll(root)
	}

	var files []string
	walkErr := tree.Files().ForEach(func(f *object.File) error {
		files = append(files, f.Name)
		return nil
	})
	if walkErr != nil {
		return walkAll(root)
	}

	sort.Strings(files)
	return files, nil
}

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, ".cigen": true,
}

func walkAll(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Exists reports whether path (relative to root) is present on disk.
// Non-existent paths are not an error per spec.md §4.3 — callers treat a
// false result as "contributes nothing" rather than failing.
func Exists(root, path string) bool {
	_, err := os.Stat(filepath.Join(root, path))
	return err == nil
}

// NormalizeSlash converts a path to forward-slash form for cross-platform
// cache-key and hash stability.
func NormalizeSlash(p string) string { return strings.ReplaceAll(p, string(filepath.Separator), "/") }
