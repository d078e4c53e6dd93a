package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cigen-dev/cigen/internal/model"
)

// ResolveChecksumSources expands each DetectablePath entry against the
// filesystem and returns the matched file list in declaration order.
// `detect` entries must match exactly one file; `detect_optional` may
// match zero; plain entries are taken literally and must exist.
func ResolveChecksumSources(rootDir string, entries []model.DetectablePath) ([]string, error) {
	var files []string
	for _, e := range entries {
		switch e.Mode {
		case model.DetectRequired:
			for _, m := range e.Members {
				if !exists(rootDir, m) {
					return nil, fmt.Errorf("cache: checksum source %q does not exist", m)
				}
				files = append(files, m)
			}
		case model.DetectAny:
			matched := existingOf(rootDir, e.Members)
			if len(matched) != 1 {
				return nil, fmt.Errorf("cache: detect checksum source %v must match exactly one file, matched %d", e.Members, len(matched))
			}
			files = append(files, matched...)
		case model.DetectOptional:
			files = append(files, existingOf(rootDir, e.Members)...)
		}
	}
	return files, nil
}

// ResolvePaths expands a CacheDefinition's Paths entries, per spec.md
// §4.4 step 6: plain paths are validated by an injected existence check at
// save time (internal/synth), detect paths need ≥1 extant member, and
// detect_optional paths silently skip missing members.
func ResolvePaths(rootDir string, entries []model.DetectablePath) ([]string, error) {
	var paths []string
	for _, e := range entries {
		switch e.Mode {
		case model.DetectRequired:
			paths = append(paths, e.Members...)
		case model.DetectAny:
			matched := existingOf(rootDir, e.Members)
			if len(matched) == 0 {
				return nil, fmt.Errorf("cache: detect path %v matched no existing member", e.Members)
			}
			paths = append(paths, matched...)
		case model.DetectOptional:
			paths = append(paths, existingOf(rootDir, e.Members)...)
		}
	}
	return paths, nil
}

// ChecksumDigest hashes the concatenated contents of resolved checksum
// files, in declaration order (spec.md §4.4 step 4).
func ChecksumDigest(rootDir string, files []string) (string, error) {
	h := sha256.New()
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(rootDir, f))
		if err != nil {
			return "", fmt.Errorf("cache: reading checksum source %s: %w", f, err)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func exists(rootDir, p string) bool {
	_, err := os.Stat(filepath.Join(rootDir, p))
	return err == nil
}

func existingOf(rootDir string, members []string) []string {
	var out []string
	for _, m := range members {
		if exists(rootDir, m) {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
