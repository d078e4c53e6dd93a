package cachekey

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/cigen-dev/cigen/internal/model"
)

// ProbeResult is the resolved output of one VersionSource: the tool name
// (the version_sources key) and the version string it yielded.
type ProbeResult struct {
	Tool    string
	Version string
}

// ProbeVersionSource runs each probe in order, returning the first that
// succeeds. Grounded on the teacher's gitver package, which already runs
// short-lived subprocesses (gitCmd) and regex-extracts values from file
// content for version/template resolution.
func ProbeVersionSource(ctx context.Context, rootDir, name string, vs model.VersionSource) (string, bool) {
	for _, p := range vs.Probes {
		switch p.Kind {
		case model.ProbeFile:
			if v, ok := readFileVersion(rootDir, p.File); ok {
				return v, true
			}
		case model.ProbeFilePattern:
			if v, ok := readFilePatternVersion(rootDir, p.File, p.Pattern); ok {
				return v, true
			}
		case model.ProbeTomlKey:
			if v, ok := readTomlKeyVersion(rootDir, p.File, p.TomlKey); ok {
				return v, true
			}
		case model.ProbeCommand:
			if v, ok := runCommandVersion(ctx, rootDir, p.Command); ok {
				return v, true
			}
		}
	}
	return "", false
}

// ResolveVersions walks a CacheDefinition's Versions list, probing
// version_sources (or the first resolving candidate of a `detect:[...]`
// choice) and recording tool+version for each. Per spec.md §4.4 step 2,
// failing to resolve is an error unless the list is empty.
func ResolveVersions(ctx context.Context, rootDir string, entries []model.VersionEntry, sources map[string]model.VersionSource) ([]ProbeResult, error) {
	var results []ProbeResult
	for _, e := range entries {
		switch {
		case e.Name != "":
			vs, ok := sources[e.Name]
			if !ok {
				return nil, fmt.Errorf("cache: version source %q not found", e.Name)
			}
			v, ok := ProbeVersionSource(ctx, rootDir, e.Name, vs)
			if !ok {
				return nil, fmt.Errorf("cache: no probe in version source %q resolved", e.Name)
			}
			results = append(results, ProbeResult{Tool: e.Name, Version: v})
		case len(e.Detect) > 0:
			resolved := false
			for _, candidate := range e.Detect {
				vs, ok := sources[candidate]
				if !ok {
					continue
				}
				if v, ok := ProbeVersionSource(ctx, rootDir, candidate, vs); ok {
					results = append(results, ProbeResult{Tool: candidate, Version: v})
					resolved = true
					break
				}
			}
			if !resolved {
				return nil, fmt.Errorf("cache: no candidate in detect:%v resolved", e.Detect)
			}
		}
	}
	return results, nil
}

func readFileVersion(rootDir, file string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(rootDir, file))
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", false
	}
	return v, true
}

func readFilePatternVersion(rootDir, file, pattern string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(rootDir, file))
	if err != nil {
		return "", false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(string(data))
	if len(m) < 2 {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// readTomlKeyVersion resolves a version from a TOML manifest's dotted
// table path (e.g. "package.version" in a Cargo.toml, "project.version"
// in a pyproject.toml) via github.com/pelletier/go-toml/v2 — the direct
// teacher dependency src/lint/modules/freshness/cargo.go already uses to
// parse Cargo.toml for staleness checks. Unlike file_pattern this needs no
// hand-maintained regex per manifest shape.
func readTomlKeyVersion(rootDir, file, key string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(rootDir, file))
	if err != nil {
		return "", false
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", false
	}
	var cur any = doc
	for _, part := range strings.Split(key, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = table[part]
		if !ok {
			return "", false
		}
	}
	v, ok := cur.(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func runCommandVersion(ctx context.Context, rootDir, command string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = rootDir
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "", false
	}
	return v, true
}
