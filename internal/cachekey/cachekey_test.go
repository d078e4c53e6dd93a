package cachekey

import "testing"

func TestBuildKey_OmitsVersionsAndChecksumWhenAbsent(t *testing.T) {
	got := BuildKey(OSInfo{OS: "linux", Version: "ubuntu22.04"}, "amd64", "gems", nil, "")
	want := "linux-ubuntu22.04-amd64-gems"
	if got != want {
		t.Fatalf("BuildKey() = %q, want %q", got, want)
	}
}

func TestBuildKey_FoldsVersionsAndChecksumInOrder(t *testing.T) {
	versions := []ProbeResult{{Tool: "ruby", Version: "3.3.0"}, {Tool: "bundler", Version: "2.5.0"}}
	got := BuildKey(OSInfo{OS: "linux", Version: "ubuntu22.04"}, "amd64", "gems", versions, "deadbeef")
	want := "linux-ubuntu22.04-amd64-gems-ruby3.3.0-bundler2.5.0-deadbeef"
	if got != want {
		t.Fatalf("BuildKey() = %q, want %q", got, want)
	}
}

func TestBuildKey_SanitizesDisallowedCharacters(t *testing.T) {
	got := BuildKey(OSInfo{OS: "Linux", Version: "Ubuntu 22.04"}, "AMD64", "My Cache!", nil, "")
	want := "linux-ubuntu22.04-amd64-mycache"
	if got != want {
		t.Fatalf("BuildKey() = %q, want %q", got, want)
	}
}

func TestBuildKey_Equivalence(t *testing.T) {
	// spec.md §8 property 3: identical inputs produce identical keys,
	// regardless of which call built them.
	os := OSInfo{OS: "linux", Version: "ubuntu22.04"}
	versions := []ProbeResult{{Tool: "node", Version: "20.10.0"}}
	a := BuildKey(os, "amd64", "node_modules", versions, "abc123")
	b := BuildKey(os, "amd64", "node_modules", versions, "abc123")
	if a != b {
		t.Fatalf("expected equal keys for identical inputs, got %q and %q", a, b)
	}
}

func TestRestoreKeys_ProgressivelyDropsSegments(t *testing.T) {
	os := OSInfo{OS: "linux", Version: "ubuntu22.04"}
	versions := []ProbeResult{{Tool: "ruby", Version: "3.3.0"}, {Tool: "bundler", Version: "2.5.0"}}
	keys := RestoreKeys(os, "amd64", "gems", versions, "deadbeef")

	want := []string{
		"linux-ubuntu22.04-amd64-gems-ruby3.3.0-bundler2.5.0-deadbeef",
		"linux-ubuntu22.04-amd64-gems-ruby3.3.0-bundler2.5.0",
		"linux-ubuntu22.04-amd64-gems-ruby3.3.0",
	}
	if len(keys) != len(want) {
		t.Fatalf("RestoreKeys() = %v, want %v", keys, want)
	}
	for i, k := range keys {
		if k != want[i] {
			t.Fatalf("RestoreKeys()[%d] = %q, want %q", i, k, want[i])
		}
	}
}

func TestRestoreKeys_DedupesWhenChecksumAbsent(t *testing.T) {
	os := OSInfo{OS: "linux", Version: "ubuntu22.04"}
	keys := RestoreKeys(os, "amd64", "pip", nil, "")
	if len(keys) != 1 {
		t.Fatalf("expected a single restore key with no versions/checksum, got %v", keys)
	}
}

func TestDeriveOSInfo(t *testing.T) {
	cases := []struct {
		image string
		want  OSInfo
	}{
		{"cimg/base:ubuntu-22.04", OSInfo{OS: "linux", Version: "ubuntu22.04"}},
		{"ruby:3.3-alpine", OSInfo{OS: "linux", Version: "alpine"}},
		{"macos-xcode-15", OSInfo{OS: "macos", Version: "current"}},
		{"windows-2022", OSInfo{OS: "windows", Version: "current"}},
		{"cimg/base:current", defaultOS},
	}
	for _, c := range cases {
		got := DeriveOSInfo(c.image)
		if got != c.want {
			t.Errorf("DeriveOSInfo(%q) = %+v, want %+v", c.image, got, c.want)
		}
	}
}
