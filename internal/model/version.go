package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// VersionSource is an ordered list of probes; the first probe that
// succeeds yields the version string (spec.md §3).
type VersionSource struct {
	Probes []VersionProbe `yaml:"probes"`
}

func (v *VersionSource) UnmarshalYAML(value *yaml.Node) error {
	// Accept either {probes: [...]} or a bare sequence of probes.
	if value.Kind == yaml.SequenceNode {
		return value.Decode(&v.Probes)
	}
	type plain VersionSource
	var p plain
	if err := value.Decode(&p); err != nil {
		return fmt.Errorf("version_source: %w", err)
	}
	*v = VersionSource(p)
	return nil
}

// ProbeKind discriminates the three ways a VersionProbe can resolve a
// version string.
type ProbeKind string

const (
	ProbeFile        ProbeKind = "file"
	ProbeFilePattern ProbeKind = "file_pattern"
	ProbeCommand     ProbeKind = "command"
	ProbeTomlKey     ProbeKind = "toml_key"
)

// VersionProbe is one probe in a VersionSource's chain.
type VersionProbe struct {
	Kind    ProbeKind
	File    string // ProbeFile / ProbeFilePattern / ProbeTomlKey
	Pattern string // ProbeFilePattern: regex with one capture group
	Command string // ProbeCommand: shell command whose stdout is the version
	TomlKey string // ProbeTomlKey: dotted table path, e.g. "package.version"
}

func (p *VersionProbe) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		File    string `yaml:"file"`
		Pattern string `yaml:"pattern"`
		Command string `yaml:"command"`
		TomlKey string `yaml:"toml_key"`
	}
	if err := value.Decode(&aux); err != nil {
		return fmt.Errorf("version probe: %w", err)
	}
	switch {
	case aux.Command != "":
		p.Kind = ProbeCommand
		p.Command = aux.Command
	case aux.File != "" && aux.TomlKey != "":
		p.Kind = ProbeTomlKey
		p.File, p.TomlKey = aux.File, aux.TomlKey
	case aux.File != "" && aux.Pattern != "":
		p.Kind = ProbeFilePattern
		p.File, p.Pattern = aux.File, aux.Pattern
	case aux.File != "":
		p.Kind = ProbeFile
		p.File = aux.File
	default:
		return fmt.Errorf("version probe: expected one of file, file+pattern, file+toml_key, or command")
	}
	return nil
}
