package hash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cigen-dev/cigen/internal/model"
)

func TestCanonicalYAML_IsIndependentOfKeyOrder(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2, "c": []any{"x", "y"}}
	b := map[string]any{"c": []any{"x", "y"}, "a": 2, "b": 1}

	ca, err := CanonicalYAML(a)
	if err != nil {
		t.Fatalf("CanonicalYAML(a): %v", err)
	}
	cb, err := CanonicalYAML(b)
	if err != nil {
		t.Fatalf("CanonicalYAML(b): %v", err)
	}
	if string(ca) != string(cb) {
		t.Fatalf("expected key-order-independent output, got %q and %q", ca, cb)
	}
}

func TestMatchGlob_DoubleStarMatchesAnyDepth(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"src/**/*.go", "src/a/b/c.go", true},
		{"src/**/*.go", "src/c.go", true},
		{"src/**/*.go", "other/c.go", false},
		{"**/*.rb", "lib/foo.rb", true},
		{"*.lock", "Gemfile.lock", true},
		{"*.lock", "sub/Gemfile.lock", false},
	}
	for _, c := range cases {
		if got := matchGlob(c.pattern, c.path); got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

func TestExpandGroup_DetectsCycle(t *testing.T) {
	groups := map[string]model.SourceFileGroup{
		"a": {Patterns: []string{"@b"}},
		"b": {Patterns: []string{"@a"}},
	}
	_, err := expandGroup(groups, "a", map[string]bool{})
	if err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestExpandGroup_InlinesReferencedPatterns(t *testing.T) {
	groups := map[string]model.SourceFileGroup{
		"base":  {Patterns: []string{"go.sum"}},
		"extra": {Patterns: []string{"@base", "**/*.go"}},
	}
	patterns, err := expandGroup(groups, "extra", map[string]bool{})
	if err != nil {
		t.Fatalf("expandGroup: %v", err)
	}
	want := map[string]bool{"**/*.go": true, "go.sum": true}
	if len(patterns) != len(want) {
		t.Fatalf("expandGroup() = %v, want 2 patterns", patterns)
	}
	for _, p := range patterns {
		if !want[p] {
			t.Errorf("unexpected pattern %q", p)
		}
	}
}

func TestDigestFiles_MissingPathContributesEmptyDigest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "present.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write present.txt: %v", err)
	}

	digests, err := DigestFiles(dir, []string{"present.txt", "missing.txt"})
	if err != nil {
		t.Fatalf("DigestFiles: %v", err)
	}
	byPath := map[string]FileDigest{}
	for _, d := range digests {
		byPath[d.Path] = d
	}
	if byPath["present.txt"].Sum == "" {
		t.Error("expected a non-empty digest for an existing file")
	}
	if byPath["missing.txt"].Sum != "" {
		t.Errorf("expected an empty digest for a missing file, got %q", byPath["missing.txt"].Sum)
	}
}

func TestDigestFiles_DeterministicAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("content"), 0o644); err != nil {
		t.Fatalf("write a.txt: %v", err)
	}

	d1, err := DigestFiles(dir, []string{"a.txt"})
	if err != nil {
		t.Fatalf("DigestFiles (1): %v", err)
	}
	d2, err := DigestFiles(dir, []string{"a.txt"})
	if err != nil {
		t.Fatalf("DigestFiles (2): %v", err)
	}
	if d1[0].Sum != d2[0].Sum {
		t.Fatalf("expected identical digests for identical content, got %q and %q", d1[0].Sum, d2[0].Sum)
	}
}

func TestJob_IdenticalJobsProduceIdenticalHashes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write main.go: %v", err)
	}

	cfg := &model.Config{
		SourceFiles: map[string]model.SourceFileGroup{
			"code": {Patterns: []string{"*.go"}},
		},
	}
	job := &model.Job{
		ID:    "build",
		Image: "golang:1.22",
		SourceFiles: &model.SourceFilesRef{
			GroupRef: "code",
		},
	}

	a, err := Job(dir, cfg, "ci", job, "amd64")
	if err != nil {
		t.Fatalf("Job (a): %v", err)
	}
	b, err := Job(dir, cfg, "ci", job, "amd64")
	if err != nil {
		t.Fatalf("Job (b): %v", err)
	}
	if a != b {
		t.Fatalf("expected identical job hashes, got %q and %q", a, b)
	}
}

func TestJob_DiffersByArch(t *testing.T) {
	dir := t.TempDir()
	cfg := &model.Config{}
	job := &model.Job{ID: "build", Image: "golang:1.22"}

	amd64, err := Job(dir, cfg, "ci", job, "amd64")
	if err != nil {
		t.Fatalf("Job (amd64): %v", err)
	}
	arm64, err := Job(dir, cfg, "ci", job, "arm64")
	if err != nil {
		t.Fatalf("Job (arm64): %v", err)
	}
	if amd64 == arm64 {
		t.Fatal("expected different hashes for different architectures")
	}
}

func TestSkipCacheKey_Format(t *testing.T) {
	got := SkipCacheKey("ci", "build", "amd64", Digest("deadbeef"))
	want := "job-skip-ci-build-amd64-deadbeef"
	if got != want {
		t.Fatalf("SkipCacheKey() = %q, want %q", got, want)
	}
}
