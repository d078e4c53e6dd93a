package tmpl

import (
	"os"
	"strings"
)

// VarPrecedence resolves the three variable sources spec.md §4.2
// describes, lowest to highest: the config's `vars:` section, environment
// variables prefixed CIGEN_VAR_ (lowercased, prefix stripped), and CLI
// `--var k=v` overrides. Grounded on the teacher's gitver.ResolveVars,
// which layers config vars the same way for tag templates.
type VarPrecedence struct {
	vars map[string]string
	env  map[string]string
	cli  map[string]string
}

// NewVarPrecedence builds the layered variable set. cliVars wins ties.
func NewVarPrecedence(configVars map[string]string, cliVars map[string]string) *VarPrecedence {
	return &VarPrecedence{
		vars: configVars,
		env:  envVars(),
		cli:  cliVars,
	}
}

const envPrefix = "CIGEN_VAR_"

func envVars() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, envPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(k, envPrefix))
		out[name] = v
	}
	return out
}

// Resolve returns the merged variable map, CLI > env > config.
func (p *VarPrecedence) Resolve() map[string]any {
	merged := map[string]any{}
	for k, v := range p.vars {
		merged[k] = v
	}
	for k, v := range p.env {
		merged[k] = v
	}
	for k, v := range p.cli {
		merged[k] = v
	}
	return merged
}
