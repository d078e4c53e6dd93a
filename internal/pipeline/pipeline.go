// Package pipeline wires components C1 through C9 into the four
// operations spec.md §2 names at the top of its data-flow diagram:
// Load (→ a validated Model), Validate (→ Diagnostics), Generate (→
// provider Files), and Hash (→ a job's Resolved Job Hash). It is the one
// package cmd/cigen depends on; every lower-level package above stays
// unaware of the others' existence beyond what it imports directly.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/cigen-dev/cigen/internal/cachekey"
	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/emit/circleci"
	"github.com/cigen-dev/cigen/internal/emit/githubactions"
	"github.com/cigen-dev/cigen/internal/graph"
	"github.com/cigen-dev/cigen/internal/hash"
	"github.com/cigen-dev/cigen/internal/loader"
	"github.com/cigen-dev/cigen/internal/model"
	"github.com/cigen-dev/cigen/internal/synth"
)

// Model is a fully loaded, validated project: the merged configuration,
// its expanded job graph, and the synthesized plan for every node in it.
// Built once by Load and never mutated afterward (spec.md §9).
type Model struct {
	Root   string
	Config *model.Config
	Graph  *graph.Graph
	Plans  map[graph.NodeId]*synth.JobPlan
}

// Registry is the set of emitters Generate can dispatch to, keyed by
// model.Config.Provider's value. Built-in providers register themselves
// here; a plugin-backed provider (internal/plugin) is added the same way
// by whatever constructs the Pipeline, not by this package.
var Registry = map[string]emit.Emitter{
	"circleci":       circleci.Emitter{},
	"github-actions": githubactions.Emitter{},
}

// Load runs C1 (loader) through C6 (graph) and C7 (synth) over the
// project rooted at root, returning the Model plus any non-fatal
// diagnostics accumulated along the way. A returned error means loading
// or graph validation failed outright; diagnostics alone never do.
func Load(ctx context.Context, root string, cliVars map[string]string) (*Model, []diag.Diagnostic, error) {
	cfg, err := loader.Load(root, cliVars)
	if err != nil {
		return nil, nil, err
	}

	bag := &diag.Bag{}
	graph.ValidateReferences(cfg, bag)
	g := graph.Build(cfg, bag)
	if bag.HasErrors() {
		return nil, bag.Items(), bag.Err()
	}

	plans, err := planAll(ctx, root, cfg, g)
	if err != nil {
		return nil, bag.Items(), err
	}

	return &Model{Root: root, Config: cfg, Graph: g, Plans: plans}, bag.Items(), nil
}

// planAll runs the step synthesizer (C7, which itself calls the cache-key
// resolver C5 and the hasher C4) for every node in g.
func planAll(ctx context.Context, root string, cfg *model.Config, g *graph.Graph) (map[graph.NodeId]*synth.JobPlan, error) {
	plans := make(map[graph.NodeId]*synth.JobPlan, len(g.Nodes))
	for _, n := range g.Nodes {
		wf := cfg.Workflows[n.Workflow]
		job := wf.Jobs[n.Job]
		osInfo := cachekey.DeriveOSInfo(job.Image)
		plan, err := synth.Plan(ctx, root, cfg, wf, job, n.Arch, osInfo)
		if err != nil {
			return nil, fmt.Errorf("planning %s: %w", n.Key(), err)
		}
		plans[n.ID] = plan
	}
	return plans, nil
}

// Validate re-runs the reference and graph checks Load already performs
// and returns their diagnostics without erroring out, for the `cigen
// validate` CLI command (spec.md §6) which wants to see every problem at
// once rather than stopping at the first.
func Validate(m *Model) []diag.Diagnostic {
	bag := &diag.Bag{}
	graph.ValidateReferences(m.Config, bag)
	graph.Build(m.Config, bag)
	return bag.Items()
}

// Generate dispatches to the emitter registered for providerName (falling
// back to m.Config.Provider when providerName is empty) and runs it over
// every workflow in m, pruning any node present in skipped.
func Generate(m *Model, providerName string, skipped map[graph.NodeId]bool) (emit.Files, []diag.Diagnostic, error) {
	if providerName == "" {
		providerName = m.Config.Provider
	}
	emitter, ok := Registry[providerName]
	if !ok {
		return nil, nil, &diag.ProviderError{Diagnostic: diag.Diagnostic{
			Severity: diag.SeverityError,
			Code:     "PROVIDER_UNKNOWN",
			Message:  fmt.Sprintf("no emitter registered for provider %q", providerName),
		}}
	}

	target := &emit.Target{Config: m.Config, Graph: m.Graph, Plans: m.Plans, SkippedNodes: skipped}
	return emitter.Emit(target)
}

// SkippedNodesFromList resolves the literal `<job>_<arch>` node names
// spec.md §6 says CIGEN_SKIP_JOBS_FILE carries into the node set Generate
// should prune. Per spec.md this is a flat, pre-computed identifier list —
// produced upstream, typically by a CircleCI setup workflow's own skip-cache
// probe — not a second skip-cache lookup: names are intersected against the
// graph's own (job, arch) pairs directly, with no hashing or backend
// involved here.
func SkippedNodesFromList(g *graph.Graph, names map[string]bool) map[graph.NodeId]bool {
	if len(names) == 0 {
		return nil
	}
	out := map[graph.NodeId]bool{}
	for _, n := range g.Nodes {
		if names[n.Job+"_"+n.Arch] {
			out[n.ID] = true
		}
	}
	return out
}

// Hash returns the Resolved Job Hash for one (workflow, job, arch) node,
// for the `cigen hash` CLI command (spec.md §6).
func Hash(m *Model, workflow, jobID, arch string) (hash.Digest, error) {
	id, ok := m.Graph.Lookup(workflow, jobID, arch)
	if !ok {
		return "", fmt.Errorf("no such node %s/%s@%s", workflow, jobID, arch)
	}
	return m.Plans[id].JobHash, nil
}

// Outputs lists the provider-relative output paths Generate would produce
// for providerName, without rendering any content — used by `cigen
// list-outputs`.
func Outputs(m *Model, providerName string) ([]string, error) {
	files, _, err := Generate(m, providerName, nil)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
