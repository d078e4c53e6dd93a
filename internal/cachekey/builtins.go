package cachekey

import "github.com/cigen-dev/cigen/internal/model"

// builtinVersionSources covers the runtimes spec.md's scenarios exercise
// (S1: node, S3: ruby+bundler). Resolve probes versions against this table
// only: the loaded Config's version_sources are not consulted, so a
// user-defined entry neither adds a tool nor replaces a built-in one.
var builtinVersionSources = map[string]model.VersionSource{
	"node": {Probes: []model.VersionProbe{
		{Kind: model.ProbeFile, File: ".node-version"},
		{Kind: model.ProbeFilePattern, File: "package.json", Pattern: `"node"\s*:\s*"([^"]+)"`},
		{Kind: model.ProbeCommand, Command: "node --version"},
	}},
	"ruby": {Probes: []model.VersionProbe{
		{Kind: model.ProbeFile, File: ".ruby-version"},
		{Kind: model.ProbeCommand, Command: "ruby -e 'print RUBY_VERSION'"},
	}},
	"bundler": {Probes: []model.VersionProbe{
		{Kind: model.ProbeFilePattern, File: "Gemfile.lock", Pattern: `BUNDLED WITH\s*\n\s*([\d.]+)`},
		{Kind: model.ProbeCommand, Command: "bundler --version"},
	}},
	"python": {Probes: []model.VersionProbe{
		{Kind: model.ProbeFile, File: ".python-version"},
		{Kind: model.ProbeCommand, Command: "python3 --version"},
	}},
	"cargo": {Probes: []model.VersionProbe{
		{Kind: model.ProbeFilePattern, File: "rust-toolchain.toml", Pattern: `channel\s*=\s*"([^"]+)"`},
		{Kind: model.ProbeCommand, Command: "cargo --version"},
	}},
	"go": {Probes: []model.VersionProbe{
		{Kind: model.ProbeFilePattern, File: "go.mod", Pattern: `go (\d+\.\d+(\.\d+)?)`},
		{Kind: model.ProbeCommand, Command: "go version"},
	}},
}

// BuiltinCacheDefinitions covers the caches referenced by spec.md's
// `packages:` sugar (§9 open question): node -> node_modules cache,
// ruby -> gems cache. Nothing merges these into Config.CacheDefs:
// internal/synth resolves every job cache against cfg.CacheDefs alone, so
// a cache named here resolves during generation only if the config also
// defines it.
var BuiltinCacheDefinitions = map[string]model.CacheDefinition{
	"node_modules": {
		Versions:        []model.VersionEntry{{Name: "node"}},
		ChecksumSources: []model.DetectablePath{{Mode: model.DetectRequired, Members: []string{"package-lock.json"}}},
		Paths:           []model.DetectablePath{{Mode: model.DetectRequired, Members: []string{"node_modules"}}},
	},
	"gems": {
		Versions:        []model.VersionEntry{{Name: "ruby"}, {Name: "bundler"}},
		ChecksumSources: []model.DetectablePath{{Mode: model.DetectRequired, Members: []string{"Gemfile", "Gemfile.lock"}}},
		Paths:           []model.DetectablePath{{Mode: model.DetectRequired, Members: []string{"vendor/bundle"}}},
	},
	"pip": {
		Versions:        []model.VersionEntry{{Name: "python"}},
		ChecksumSources: []model.DetectablePath{{Mode: model.DetectRequired, Members: []string{"requirements.txt"}}},
		Paths:           []model.DetectablePath{{Mode: model.DetectRequired, Members: []string{".venv"}}},
	},
	"cargo": {
		Versions:        []model.VersionEntry{{Name: "cargo"}},
		ChecksumSources: []model.DetectablePath{{Mode: model.DetectRequired, Members: []string{"Cargo.lock"}}},
		Paths:           []model.DetectablePath{{Mode: model.DetectRequired, Members: []string{"~/.cargo/registry", "target"}}},
	},
}

// PackageToCache maps a `packages:` entry name to its canonical cache
// definition name.
var PackageToCache = map[string]string{
	"node": "node_modules",
	"ruby": "gems",
	"python": "pip",
	"rust": "cargo",
}

// InstallCommand returns the fixed shell command that installs a package
// type's dependencies, or "" for an unknown package type.
func InstallCommand(pkg string) string {
	switch pkg {
	case "node":
		return "npm ci"
	case "ruby":
		return "bundle install --deployment --path vendor/bundle"
	case "python":
		return "pip install -r requirements.txt"
	case "rust":
		return "cargo fetch"
	default:
		return ""
	}
}
