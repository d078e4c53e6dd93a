package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Job is one buildable unit within a workflow.
//
// Invariant: every referenced cache, service, command, and required job
// must resolve — checked by internal/graph during graph construction, not
// here, since resolution needs the full Config in scope.
type Job struct {
	ID            string            `yaml:"-"`
	Stage         string            `yaml:"stage,omitempty"`
	Image         string            `yaml:"image"`
	Architectures []string          `yaml:"architectures,omitempty"`
	ResourceClass string            `yaml:"resource_class,omitempty"`
	SourceFiles   *SourceFilesRef   `yaml:"source_files,omitempty"`
	Parallelism   int               `yaml:"parallelism,omitempty"`
	Requires      []string          `yaml:"requires,omitempty"`
	RequiresAny   []string          `yaml:"requires_any,omitempty"`
	Shared        bool              `yaml:"shared,omitempty"`
	Cache         map[string]CacheDecl `yaml:"cache,omitempty"`
	Packages      []string          `yaml:"packages,omitempty"`
	RestoreCache  []RestoreCacheEntry `yaml:"restore_cache,omitempty"`
	Services      []string          `yaml:"services,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	Steps         []Step            `yaml:"steps,omitempty"`
	NoCheckout    bool              `yaml:"no_checkout,omitempty"`

	// Passthrough carries any top-level job keys this model doesn't know
	// about, so the emitter can round-trip them instead of silently
	// dropping input (spec invariant: no key present in job YAML may
	// vanish without either appearing in the emitted job or raising an
	// explicit error).
	Passthrough map[string]yaml.Node `yaml:"-"`
}

// SourceFilesRef is either a bare group reference ("@ruby") or an inline
// pattern list.
type SourceFilesRef struct {
	GroupRef string
	Patterns []string
}

func (s *SourceFilesRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.GroupRef = value.Value
		return nil
	}
	if value.Kind == yaml.SequenceNode {
		return value.Decode(&s.Patterns)
	}
	return fmt.Errorf("source_files: expected string reference or pattern list, got YAML kind %d", value.Kind)
}

// CacheDecl is a job's reference to a cache, either a bare definition name
// or an inline override of paths/versions/checksum_sources.
type CacheDecl struct {
	Type            string   `yaml:"type,omitempty"`
	Versions        []string `yaml:"versions,omitempty"`
	ChecksumSources []string `yaml:"checksum_sources,omitempty"`
	Paths           []string `yaml:"paths,omitempty"`
}

func (c *CacheDecl) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		c.Type = value.Value
		return nil
	}
	type plain CacheDecl
	return value.Decode((*plain)(c))
}

// RestoreCacheEntry names a cache to restore, optionally marked as not
// forming a dependency edge in the graph (restore-only convenience caches
// the job doesn't strictly require to exist).
type RestoreCacheEntry struct {
	Name     string
	Required bool
}

func (r *RestoreCacheEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Name = value.Value
		r.Required = true
		return nil
	}
	var aux struct {
		Name     string `yaml:"name"`
		Required *bool  `yaml:"required"`
	}
	if err := value.Decode(&aux); err != nil {
		return fmt.Errorf("restore_cache entry: %w", err)
	}
	r.Name = aux.Name
	r.Required = aux.Required == nil || *aux.Required
	return nil
}

// StepKind discriminates the closed set of Step variants. Keeping this a
// tagged sum (Kind plus one populated variant pointer) instead of an
// interface{} means every emitter switch on Kind stays exhaustive and
// easy to audit — no dynamic dispatch hides a missed case.
type StepKind string

const (
	StepKindRun               StepKind = "run"
	StepKindCheckout          StepKind = "checkout"
	StepKindRestoreCache      StepKind = "restore_cache"
	StepKindSaveCache         StepKind = "save_cache"
	StepKindStoreTestResults  StepKind = "store_test_results"
	StepKindStoreArtifacts    StepKind = "store_artifacts"
	StepKindUsesCommand       StepKind = "uses_command"
	StepKindUsesModule        StepKind = "uses_module"
)

// Step is one entry in a job's step list.
type Step struct {
	Kind StepKind

	Run               *RunStep
	Checkout          *CheckoutStep
	RestoreCache      *RestoreCacheStep
	SaveCache         *SaveCacheStep
	StoreTestResults  *StoreTestResultsStep
	StoreArtifacts    *StoreArtifactsStep
	UsesCommand       *UsesCommandStep
	UsesModule        *UsesModuleStep
}

type RunStep struct {
	Name    string `yaml:"name,omitempty"`
	Command string `yaml:"command"`
}

type CheckoutStep struct{}

type RestoreCacheStep struct {
	Name string `yaml:"name"`
}

type SaveCacheStep struct {
	Name string `yaml:"name"`
}

type StoreTestResultsStep struct {
	Path string `yaml:"path"`
}

type StoreArtifactsStep struct {
	Path string `yaml:"path"`
}

type UsesCommandStep struct {
	Command    string            `yaml:"command"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

type UsesModuleStep struct {
	Module     string            `yaml:"module"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// UnmarshalYAML decodes one of the step shapes listed in spec.md §3:
// {run, checkout, restore_cache, save_cache, store_test_results,
// store_artifacts, uses(command reference), uses(external module)}.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Value == "checkout" {
		s.Kind = StepKindCheckout
		s.Checkout = &CheckoutStep{}
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("step: expected mapping (or literal \"checkout\"), got YAML kind %d", value.Kind)
	}

	var raw map[string]*yaml.Node
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("step: %w", err)
	}

	switch {
	case hasKey(raw, "run"):
		var r RunStep
		if n, ok := raw["run"]; ok {
			if n.Kind == yaml.ScalarNode {
				r.Command = n.Value
			} else if err := n.Decode(&r); err != nil {
				return fmt.Errorf("step.run: %w", err)
			}
		}
		if n, ok := raw["name"]; ok {
			_ = n.Decode(&r.Name)
		}
		s.Kind = StepKindRun
		s.Run = &r
	case hasKey(raw, "checkout"):
		s.Kind = StepKindCheckout
		s.Checkout = &CheckoutStep{}
	case hasKey(raw, "restore_cache"):
		var r RestoreCacheStep
		if err := raw["restore_cache"].Decode(&r.Name); err != nil {
			if err2 := raw["restore_cache"].Decode(&r); err2 != nil {
				return fmt.Errorf("step.restore_cache: %w", err)
			}
		}
		s.Kind = StepKindRestoreCache
		s.RestoreCache = &r
	case hasKey(raw, "save_cache"):
		var r SaveCacheStep
		if err := raw["save_cache"].Decode(&r.Name); err != nil {
			if err2 := raw["save_cache"].Decode(&r); err2 != nil {
				return fmt.Errorf("step.save_cache: %w", err)
			}
		}
		s.Kind = StepKindSaveCache
		s.SaveCache = &r
	case hasKey(raw, "store_test_results"):
		var r StoreTestResultsStep
		if err := raw["store_test_results"].Decode(&r.Path); err != nil {
			if err2 := raw["store_test_results"].Decode(&r); err2 != nil {
				return fmt.Errorf("step.store_test_results: %w", err)
			}
		}
		s.Kind = StepKindStoreTestResults
		s.StoreTestResults = &r
	case hasKey(raw, "store_artifacts"):
		var r StoreArtifactsStep
		if err := raw["store_artifacts"].Decode(&r.Path); err != nil {
			if err2 := raw["store_artifacts"].Decode(&r); err2 != nil {
				return fmt.Errorf("step.store_artifacts: %w", err)
			}
		}
		s.Kind = StepKindStoreArtifacts
		s.StoreArtifacts = &r
	case hasKey(raw, "uses"):
		var ref struct {
			Command    string            `yaml:"command"`
			Module     string            `yaml:"module"`
			Parameters map[string]string `yaml:"parameters,omitempty"`
		}
		if err := raw["uses"].Decode(&ref); err != nil {
			// bare string shorthand: uses: command_name
			var name string
			if err2 := raw["uses"].Decode(&name); err2 != nil {
				return fmt.Errorf("step.uses: %w", err)
			}
			ref.Command = name
		}
		if ref.Module != "" {
			s.Kind = StepKindUsesModule
			s.UsesModule = &UsesModuleStep{Module: ref.Module, Parameters: ref.Parameters}
		} else {
			s.Kind = StepKindUsesCommand
			s.UsesCommand = &UsesCommandStep{Command: ref.Command, Parameters: ref.Parameters}
		}
	default:
		return fmt.Errorf("step: unrecognized shape, expected one of run/checkout/restore_cache/save_cache/store_test_results/store_artifacts/uses")
	}
	return nil
}

func hasKey(m map[string]*yaml.Node, key string) bool {
	_, ok := m[key]
	return ok
}

// UnmarshalYAML for Job captures known fields via the inline plain-struct
// alias trick, then re-decodes the same node into a generic map to recover
// any keys this struct doesn't model, so they survive as Passthrough
// rather than silently vanishing.
func (j *Job) UnmarshalYAML(value *yaml.Node) error {
	type plain Job
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*j = Job(p)

	known := map[string]bool{
		"stage": true, "image": true, "architectures": true, "resource_class": true,
		"source_files": true, "parallelism": true, "requires": true, "requires_any": true,
		"shared": true, "cache": true, "packages": true, "restore_cache": true,
		"services": true, "environment": true, "steps": true, "no_checkout": true,
	}

	var raw map[string]yaml.Node
	if err := value.Decode(&raw); err != nil {
		return err
	}
	for k, v := range raw {
		if !known[k] {
			if j.Passthrough == nil {
				j.Passthrough = map[string]yaml.Node{}
			}
			j.Passthrough[k] = v
		}
	}
	return nil
}
