// Package cachekey implements spec.md §4.4: resolving a job's cache
// declarations against built-in and user cache_definitions, probing
// runtime versions and checksum sources, and assembling the provider-
// neutral cache key grammar from spec.md §6:
//
//	<os>-<os_version>-<arch>-<name>[(-<tool><version>)…][-<checksum>]
package cachekey

import (
	"context"
	"fmt"
	"strings"

	"github.com/cigen-dev/cigen/internal/model"
)

// OSInfo names the platform segment of a cache key. cigen targets Linux
// CI runners; os/os_version are supplied by the caller (the step
// synthesizer knows the job's image/resource-class) rather than detected
// from the host running cigen itself.
type OSInfo struct {
	OS      string
	Version string
}

// Resolved is a fully-resolved cache declaration: its key, its restore-key
// fallback chain, and the paths it should restore/save.
type Resolved struct {
	Name        string
	Key         string
	RestoreKeys []string
	Paths       []string
	Versions    []ProbeResult // tool+version pairs folded into Key, in declaration order
}

// Resolve resolves one job cache declaration (name + CacheDecl override)
// against the merged built-in/user cache_definitions, per spec.md §4.4
// step 1: a `type:` reference inherits that definition, but locally
// specified paths override it.
func Resolve(ctx context.Context, rootDir string, name string, decl model.CacheDecl, defs map[string]model.CacheDefinition, arch string, os OSInfo) (Resolved, error) {
	def, err := mergedDefinition(name, decl, defs)
	if err != nil {
		return Resolved{}, err
	}

	versions, err := ResolveVersions(ctx, rootDir, def.Versions, builtinVersionSources)
	if err != nil && len(def.Versions) > 0 {
		return Resolved{}, fmt.Errorf("cache %q: %w", name, err)
	}

	checksumFiles, err := ResolveChecksumSources(rootDir, def.ChecksumSources)
	if err != nil {
		return Resolved{}, fmt.Errorf("cache %q: %w", name, err)
	}
	var checksum string
	if len(checksumFiles) > 0 {
		checksum, err = ChecksumDigest(rootDir, checksumFiles)
		if err != nil {
			return Resolved{}, fmt.Errorf("cache %q: %w", name, err)
		}
	}

	paths, err := ResolvePaths(rootDir, def.Paths)
	if err != nil {
		return Resolved{}, fmt.Errorf("cache %q: %w", name, err)
	}

	key := BuildKey(os, arch, name, versions, checksum)
	restoreKeys := RestoreKeys(os, arch, name, versions, checksum)

	return Resolved{Name: name, Key: key, RestoreKeys: restoreKeys, Paths: paths, Versions: versions}, nil
}

// mergedDefinition applies spec.md §4.4 step 1's inheritance rule: if decl
// names a `type`, inherit that CacheDefinition's fields, then let decl's
// own non-empty fields override it (Versions, ChecksumSources, Paths).
func mergedDefinition(name string, decl model.CacheDecl, defs map[string]model.CacheDefinition) (model.CacheDefinition, error) {
	var base model.CacheDefinition
	if decl.Type != "" {
		d, ok := defs[decl.Type]
		if !ok {
			return model.CacheDefinition{}, fmt.Errorf("cache %q: unknown type %q", name, decl.Type)
		}
		base = d
	} else if d, ok := defs[name]; ok {
		base = d
	}

	if len(decl.Versions) > 0 {
		base.Versions = stringsToVersionEntries(decl.Versions)
	}
	if len(decl.ChecksumSources) > 0 {
		base.ChecksumSources = stringsToDetectable(decl.ChecksumSources)
	}
	if len(decl.Paths) > 0 {
		base.Paths = stringsToDetectable(decl.Paths)
	}

	if len(base.Versions) == 0 && len(base.ChecksumSources) == 0 {
		return model.CacheDefinition{}, fmt.Errorf("cache %q: at least one of versions or checksum_sources must be non-empty", name)
	}
	if len(base.Paths) == 0 {
		return model.CacheDefinition{}, fmt.Errorf("cache %q: paths must be non-empty", name)
	}
	return base, nil
}

func stringsToVersionEntries(ss []string) []model.VersionEntry {
	out := make([]model.VersionEntry, len(ss))
	for i, s := range ss {
		out[i] = model.VersionEntry{Name: s}
	}
	return out
}

func stringsToDetectable(ss []string) []model.DetectablePath {
	out := make([]model.DetectablePath, len(ss))
	for i, s := range ss {
		out[i] = model.DetectablePath{Mode: model.DetectRequired, Members: []string{s}}
	}
	return out
}

// BuildKey assembles the cache-key grammar from spec.md §6. The versions
// segment is omitted entirely when empty; each resolved tool contributes
// "<tool><version>" with non [a-z0-9._] characters stripped so the key
// stays within the grammar's character class.
func BuildKey(os OSInfo, arch, name string, versions []ProbeResult, checksum string) string {
	parts := []string{sanitize(os.OS), sanitize(os.Version), sanitize(arch), sanitize(name)}
	for _, v := range versions {
		parts = append(parts, sanitize(v.Tool+v.Version))
	}
	if checksum != "" {
		parts = append(parts, checksum)
	}
	return strings.Join(parts, "-")
}

// RestoreKeys returns the three progressively-shorter restore-key prefixes
// from spec.md §4.4 step 5: full key, key without checksum, key without
// checksum and the last version segment.
func RestoreKeys(os OSInfo, arch, name string, versions []ProbeResult, checksum string) []string {
	full := BuildKey(os, arch, name, versions, checksum)
	noChecksum := BuildKey(os, arch, name, versions, "")
	keys := []string{full}
	if noChecksum != full {
		keys = append(keys, noChecksum)
	}
	if len(versions) > 0 {
		shorter := BuildKey(os, arch, name, versions[:len(versions)-1], "")
		if shorter != noChecksum {
			keys = append(keys, shorter)
		}
	}
	return dedupe(keys)
}

func dedupe(ss []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
		default:
			// drop characters outside the cache-key grammar's class
		}
	}
	return b.String()
}
