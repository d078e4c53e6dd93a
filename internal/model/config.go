// Package model is the typed, immutable in-memory representation of a
// loaded cigen project: Config, Workflow, Job, Step, Cache, Service,
// Runner, SourceFileGroup, CacheDefinition, VersionSource.
//
// Entities are constructed once during loading (internal/loader) and are
// never mutated afterward — the graph builder and step synthesizer build
// derived structures of their own rather than writing back into these.
package model

// Config is the root of a loaded project.
type Config struct {
	Provider      string                     `yaml:"provider"`
	OutputPath    string                     `yaml:"output_path,omitempty"`
	Architectures []string                   `yaml:"architectures"`
	ResourceClasses map[string]map[string]string `yaml:"resource_classes,omitempty"` // arch -> tier -> resource class
	DockerAuth    []DockerAuthConfig         `yaml:"docker_auth,omitempty"`
	Services      map[string]ServiceConfig   `yaml:"services,omitempty"`
	CacheDefs     map[string]CacheDefinition `yaml:"cache_definitions,omitempty"`
	VersionSources map[string]VersionSource  `yaml:"version_sources,omitempty"`
	SourceFiles   map[string]SourceFileGroup `yaml:"source_files,omitempty"`
	Vars          map[string]string          `yaml:"vars,omitempty"`
	FixGithubStatus bool                     `yaml:"fix_github_status,omitempty"`

	Workflows map[string]*Workflow `yaml:"-"` // populated by the loader from workflows/<name>/
	Commands  map[string]*Command  `yaml:"-"` // populated by the loader from commands/*.yml
}

// DockerAuthConfig names a registry and the environment-variable prefix
// used to source its credentials.
type DockerAuthConfig struct {
	Registry    string `yaml:"registry"`
	Credentials string `yaml:"credentials"`
}

// ServiceConfig declares a background service container a job can depend
// on (database, queue, mock server).
type ServiceConfig struct {
	Image       string            `yaml:"image"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Command     []string          `yaml:"command,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
}

// Command is a named, reusable step sequence referenced from a job via
// `uses:`.
type Command struct {
	Name        string         `yaml:"-"`
	Parameters  []ParamSpec    `yaml:"parameters,omitempty"`
	Steps       []Step         `yaml:"steps"`
}

// ParamSpec declares one parameter a Command accepts.
type ParamSpec struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default,omitempty"`
}

// KnownProviders is the set of provider tags Config.Provider may take.
var KnownProviders = map[string]bool{
	"circleci":       true,
	"github-actions": true,
}
