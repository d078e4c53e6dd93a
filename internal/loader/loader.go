// Package loader implements spec.md §4.1, the Source Loader: it reads a
// project's on-disk YAML fragments, deep-merges config.yml/config/*.yml,
// loads each workflow's own config.yml and jobs/*.yml, loads commands/*.yml,
// runs $schema validation when present, and returns a fully populated,
// never-mutated-again model.Config. Grounded on the teacher's
// src/cli/cmd/root.go config-discovery/merge pipeline, generalized from a
// single config.yml to cigen's fragment-and-workflow layout.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/model"
	"github.com/cigen-dev/cigen/internal/tmpl"
)

var knownTopLevelKeys = map[string]bool{
	"$schema": true, "provider": true, "output_path": true, "architectures": true,
	"resource_classes": true, "docker_auth": true, "services": true,
	"cache_definitions": true, "version_sources": true, "source_files": true,
	"vars": true, "fix_github_status": true,
}

// Load reads and merges a project rooted at root into a model.Config,
// expanding every template in it against the layered variable set
// spec.md §4.2 describes (config vars, then CIGEN_VAR_* environment
// variables, then cliVars).
func Load(root string, cliVars map[string]string) (*model.Config, error) {
	bag := &diag.Bag{}

	merged, err := loadRootConfig(root)
	if err != nil {
		return nil, err
	}

	if schemaRef, ok := merged["$schema"].(string); ok && schemaRef != "" {
		if err := validateSchema(root, schemaRef, merged); err != nil {
			return nil, err
		}
	}
	delete(merged, "$schema")

	for k := range merged {
		if !knownTopLevelKeys[k] {
			bag.Errorf(diag.Span{File: filepath.Join(root, "config.yml")}, "CONFIG_UNKNOWN_KEY",
				"unrecognized top-level key %q", k)
		}
	}

	engine := tmpl.New(root, tmpl.NewVarPrecedence(rawStringMap(merged["vars"]), cliVars).Resolve())
	if expanded, err := engine.ExpandAny(merged); err != nil {
		return nil, err
	} else {
		merged = expanded.(map[string]any)
	}

	var cfg model.Config
	if err := decodeInto(merged, &cfg); err != nil {
		return nil, &diag.ConfigError{Span: diag.Span{File: filepath.Join(root, "config.yml")}, Message: err.Error()}
	}

	if !model.KnownProviders[cfg.Provider] {
		bag.Errorf(diag.Span{}, "CONFIG_UNKNOWN_PROVIDER", "unknown provider %q", cfg.Provider)
	}

	workflows, err := loadWorkflows(root, engine)
	if err != nil {
		return nil, err
	}
	cfg.Workflows = workflows

	commands, err := loadCommands(root, engine)
	if err != nil {
		return nil, err
	}
	cfg.Commands = commands

	if bag.HasErrors() {
		return nil, bag.Err()
	}
	return &cfg, nil
}

// rawStringMap coerces a decoded `vars:` section (map[string]any with
// scalar values) into the map[string]string tmpl.NewVarPrecedence wants.
// Non-string values are rendered with fmt so a numeric or boolean var
// still works as a template substitution.
func rawStringMap(v any) map[string]string {
	out := map[string]string{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, val := range m {
		out[k] = fmt.Sprintf("%v", val)
	}
	return out
}

// loadRootConfig merges config.yml (if present) with every file under
// config/*.yml, in sorted order for determinism.
func loadRootConfig(root string) (map[string]any, error) {
	var paths []string
	rootFile := filepath.Join(root, "config.yml")
	if _, err := os.Stat(rootFile); err == nil {
		paths = append(paths, rootFile)
	}
	extra, err := globFragments(filepath.Join(root, "config"), "*.yml")
	if err != nil {
		return nil, &diag.IOError{Path: filepath.Join(root, "config"), Err: err}
	}
	sort.Strings(extra)
	paths = append(paths, extra...)

	if len(paths) == 0 {
		return nil, &diag.ConfigError{Span: diag.Span{File: root}, Message: "no config.yml or config/*.yml found"}
	}

	frags := make([]*fragment, 0, len(paths))
	for _, p := range paths {
		f, err := readFragment(p)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}
	return mergeFragments(frags)
}

// loadWorkflows loads workflows/<name>/config.yml plus workflows/<name>/jobs/*.yml
// for every subdirectory of workflows/.
func loadWorkflows(root string, engine *tmpl.Engine) (map[string]*model.Workflow, error) {
	workflowsDir := filepath.Join(root, "workflows")
	entries, err := os.ReadDir(workflowsDir)
	if os.IsNotExist(err) {
		return map[string]*model.Workflow{}, nil
	}
	if err != nil {
		return nil, &diag.IOError{Path: workflowsDir, Err: err}
	}

	out := map[string]*model.Workflow{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		wf, err := loadOneWorkflow(filepath.Join(workflowsDir, name), name, engine)
		if err != nil {
			return nil, err
		}
		out[name] = wf
	}
	return out, nil
}

func loadOneWorkflow(dir, name string, engine *tmpl.Engine) (*model.Workflow, error) {
	var wf model.Workflow
	wf.Name = name
	wf.Jobs = map[string]*model.Job{}

	cfgPath := filepath.Join(dir, "config.yml")
	if _, err := os.Stat(cfgPath); err == nil {
		f, err := readFragment(cfgPath)
		if err != nil {
			return nil, err
		}
		m := map[string]any{}
		if err := f.Node.Decode(&m); err != nil {
			return nil, &diag.ConfigError{Span: span(cfgPath, &f.Node), Message: err.Error()}
		}
		delete(m, "jobs")
		expanded, err := engine.ExpandAny(m)
		if err != nil {
			return nil, err
		}
		if err := decodeInto(expanded.(map[string]any), &wf); err != nil {
			return nil, &diag.ConfigError{Span: span(cfgPath, &f.Node), Message: err.Error()}
		}
		wf.Name = name
	}

	jobFiles, err := globFragments(filepath.Join(dir, "jobs"), "*.yml")
	if err != nil {
		return nil, &diag.IOError{Path: filepath.Join(dir, "jobs"), Err: err}
	}
	sort.Strings(jobFiles)

	for _, jf := range jobFiles {
		f, err := readFragment(jf)
		if err != nil {
			return nil, err
		}
		var perFile map[string]any
		if err := f.Node.Decode(&perFile); err != nil {
			return nil, &diag.ConfigError{Span: span(jf, &f.Node), Message: err.Error()}
		}
		expanded, err := engine.ExpandAny(perFile)
		if err != nil {
			return nil, err
		}
		for id, raw := range expanded.(map[string]any) {
			var job model.Job
			if err := decodeInto(raw.(map[string]any), &job); err != nil {
				return nil, &diag.ConfigError{Span: span(jf, &f.Node), Message: err.Error()}
			}
			job.ID = id
			if _, dup := wf.Jobs[id]; dup {
				return nil, &diag.ConfigError{Span: span(jf, &f.Node), Message: fmt.Sprintf("duplicate job id %q in workflow %q", id, name)}
			}
			wf.Jobs[id] = &job
		}
	}

	return &wf, nil
}

// loadCommands loads commands/*.yml into named model.Command entries. Each
// file may define one or more commands as a top-level map.
func loadCommands(root string, engine *tmpl.Engine) (map[string]*model.Command, error) {
	files, err := globFragments(filepath.Join(root, "commands"), "*.yml")
	if err != nil {
		return nil, &diag.IOError{Path: filepath.Join(root, "commands"), Err: err}
	}
	sort.Strings(files)

	out := map[string]*model.Command{}
	for _, cf := range files {
		f, err := readFragment(cf)
		if err != nil {
			return nil, err
		}
		var perFile map[string]any
		if err := f.Node.Decode(&perFile); err != nil {
			return nil, &diag.ConfigError{Span: span(cf, &f.Node), Message: err.Error()}
		}
		expanded, err := engine.ExpandAny(perFile)
		if err != nil {
			return nil, err
		}
		for name, raw := range expanded.(map[string]any) {
			var cmd model.Command
			if err := decodeInto(raw.(map[string]any), &cmd); err != nil {
				return nil, &diag.ConfigError{Span: span(cf, &f.Node), Message: err.Error()}
			}
			cmd.Name = name
			if _, dup := out[name]; dup {
				return nil, &diag.ConfigError{Span: span(cf, &f.Node), Message: fmt.Sprintf("duplicate command name %q", name)}
			}
			out[name] = &cmd
		}
	}
	return out, nil
}
