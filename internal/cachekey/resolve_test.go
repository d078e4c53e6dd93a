package cachekey

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cigen-dev/cigen/internal/model"
)

func TestResolve_UsesBuiltinDefinitionAndProbesVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".ruby-version"), []byte("3.3.0\n"), 0o644); err != nil {
		t.Fatalf("write .ruby-version: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Gemfile.lock"), []byte("GEM\nBUNDLED WITH\n   2.5.0\n"), 0o644); err != nil {
		t.Fatalf("write Gemfile.lock: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Gemfile"), []byte("source 'https://rubygems.org'\n"), 0o644); err != nil {
		t.Fatalf("write Gemfile: %v", err)
	}

	resolved, err := Resolve(context.Background(), dir, "gems", model.CacheDecl{}, BuiltinCacheDefinitions, "amd64", OSInfo{OS: "linux", Version: "ubuntu22.04"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(resolved.Versions) != 2 {
		t.Fatalf("expected 2 resolved versions, got %+v", resolved.Versions)
	}
	if resolved.Versions[0].Tool != "ruby" || resolved.Versions[0].Version != "3.3.0" {
		t.Errorf("unexpected ruby probe result: %+v", resolved.Versions[0])
	}
	if resolved.Versions[1].Tool != "bundler" || resolved.Versions[1].Version != "2.5.0" {
		t.Errorf("unexpected bundler probe result: %+v", resolved.Versions[1])
	}
	wantPrefix := "linux-ubuntu22.04-amd64-gems-ruby3.3.0-bundler2.5.0-"
	if len(resolved.Key) < len(wantPrefix) || resolved.Key[:len(wantPrefix)] != wantPrefix {
		t.Errorf("Resolve().Key = %q, want prefix %q", resolved.Key, wantPrefix)
	}
}

func TestResolve_IdenticalInputsProduceIdenticalKeys(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask==3.0.0\n"), 0o644); err != nil {
		t.Fatalf("write requirements.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".python-version"), []byte("3.12.1\n"), 0o644); err != nil {
		t.Fatalf("write .python-version: %v", err)
	}

	a, err := Resolve(context.Background(), dir, "pip", model.CacheDecl{}, BuiltinCacheDefinitions, "amd64", OSInfo{OS: "linux", Version: "ubuntu22.04"})
	if err != nil {
		t.Fatalf("Resolve (a): %v", err)
	}
	b, err := Resolve(context.Background(), dir, "pip", model.CacheDecl{}, BuiltinCacheDefinitions, "amd64", OSInfo{OS: "linux", Version: "ubuntu22.04"})
	if err != nil {
		t.Fatalf("Resolve (b): %v", err)
	}
	if a.Key != b.Key {
		t.Fatalf("expected identical cache keys for identical inputs, got %q and %q", a.Key, b.Key)
	}
}

func TestResolve_UnknownCacheTypeErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve(context.Background(), dir, "mystery", model.CacheDecl{Type: "does-not-exist"}, BuiltinCacheDefinitions, "amd64", OSInfo{})
	if err == nil {
		t.Fatal("expected error for unknown cache type, got nil")
	}
}
