package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// CacheDefinition is a reusable cache template: ordered version sources,
// ordered checksum-source patterns, and the paths it saves/restores.
//
// Invariant (checked by internal/loader during validation): at least one
// of Versions or ChecksumSources is non-empty, and Paths is non-empty.
type CacheDefinition struct {
	Versions        []VersionEntry   `yaml:"versions,omitempty"`
	ChecksumSources []DetectablePath `yaml:"checksum_sources,omitempty"`
	Paths           []DetectablePath `yaml:"paths"`
	Backend         string           `yaml:"backend,omitempty"`
}

// VersionEntry names a version source, or a `detect:[...]` choice between
// several — the first whose probe resolves wins.
type VersionEntry struct {
	Name   string   // direct version_sources reference
	Detect []string // candidates, first to resolve wins
}

func (v *VersionEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		v.Name = value.Value
		return nil
	}
	if value.Kind == yaml.MappingNode {
		var aux struct {
			Detect []string `yaml:"detect"`
		}
		if err := value.Decode(&aux); err != nil {
			return fmt.Errorf("versions entry: %w", err)
		}
		v.Detect = aux.Detect
		return nil
	}
	return fmt.Errorf("versions entry: expected string or {detect: [...]}, got YAML kind %d", value.Kind)
}

// DetectMode controls how a DetectablePath's members are validated.
type DetectMode string

const (
	DetectRequired DetectMode = ""         // plain: every member must exist
	DetectAny      DetectMode = "detect"   // at least one member must exist
	DetectOptional DetectMode = "optional" // zero or more members may exist
)

// DetectablePath is one checksum-source or cache-path entry, which may be a
// bare glob/path, or a `detect:[...]`/`detect_optional:[...]` choice set.
type DetectablePath struct {
	Mode    DetectMode
	Members []string
}

func (d *DetectablePath) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Mode = DetectRequired
		d.Members = []string{value.Value}
		return nil
	}
	if value.Kind == yaml.MappingNode {
		var aux struct {
			Detect         []string `yaml:"detect"`
			DetectOptional []string `yaml:"detect_optional"`
		}
		if err := value.Decode(&aux); err != nil {
			return fmt.Errorf("detectable path entry: %w", err)
		}
		switch {
		case len(aux.Detect) > 0:
			d.Mode = DetectAny
			d.Members = aux.Detect
		case len(aux.DetectOptional) > 0:
			d.Mode = DetectOptional
			d.Members = aux.DetectOptional
		default:
			return fmt.Errorf("detectable path entry: expected \"detect\" or \"detect_optional\" key")
		}
		return nil
	}
	return fmt.Errorf("detectable path entry: expected string or mapping, got YAML kind %d", value.Kind)
}
