// Package emit implements spec.md §4.7, the Provider Emitter (C8): it
// translates a synthesized, provider-neutral job DAG into native YAML for
// one target CI provider. Two emitters live in sibling packages —
// internal/emit/circleci and internal/emit/githubactions — sharing the
// deterministic-YAML node-building helpers and the Files/Target types
// defined here.
//
// Both emitters marshal with yaml.v3's yaml.Node rather than marshaling
// Go structs directly, so map-key order, block style, and quoting stay
// fully under this package's control (spec.md §4.7's determinism
// guarantee: "sort map keys lexicographically ... emit a fixed YAML
// style ... produce byte-identical output for identical inputs").
package emit

import (
	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/graph"
	"github.com/cigen-dev/cigen/internal/model"
	"github.com/cigen-dev/cigen/internal/synth"
)

// Files maps an output-relative path to its rendered byte content. Emitter
// implementations never write to disk themselves — internal/pipeline owns
// that, scoped to Config.OutputPath, per spec.md §5 ("only the emitter
// phase writes, and writes are scoped to output_path").
type Files map[string][]byte

// Target is everything one provider emitter needs: the loaded config, the
// validated graph, and the synthesized plan for every node in it.
type Target struct {
	Config *model.Config
	Graph  *graph.Graph
	Plans  map[graph.NodeId]*synth.JobPlan

	// SkippedNodes, when non-nil, names nodes the CIGEN_SKIP_JOBS_FILE (or an
	// equivalent skip-cache probe) has already marked as satisfied — the
	// CircleCI setup workflow's continuation config omits them entirely;
	// the GitHub emitter still emits them (their own skip-check step is
	// what short-circuits at runtime) per spec.md §8 testable property 8.
	SkippedNodes map[graph.NodeId]bool
}

// Emitter is the interface both provider implementations satisfy.
type Emitter interface {
	// Name is the provider tag this emitter handles ("circleci",
	// "github-actions").
	Name() string

	// Emit translates t into one or more output files, returning
	// non-fatal diagnostics (warnings/info) alongside them. A returned
	// error is fatal for this provider only — per spec.md §7's
	// PluginError/ProviderError propagation policy, callers running
	// multiple providers keep going with the others.
	Emit(t *Target) (Files, []diag.Diagnostic, error)
}

// NodesInDeclarationOrder returns a workflow's node IDs from t.Graph,
// ordered by job ID, then by architecture, both in lexical order. The
// workflow's Jobs field is a Go map, so the order in which jobs were
// declared is not available here and is not preserved.
func NodesInDeclarationOrder(g *graph.Graph, workflow string) []graph.NodeId {
	var ids []graph.NodeId
	for _, n := range g.Nodes {
		if n.Workflow == workflow {
			ids = append(ids, n.ID)
		}
	}
	sortNodesByJobThenArch(g, ids)
	return ids
}

func sortNodesByJobThenArch(g *graph.Graph, ids []graph.NodeId) {
	less := func(i, j int) bool {
		a, b := g.Nodes[ids[i]], g.Nodes[ids[j]]
		if a.Job != b.Job {
			return a.Job < b.Job
		}
		return a.Arch < b.Arch
	}
	insertionSort(ids, less)
}

func insertionSort(ids []graph.NodeId, less func(i, j int) bool) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// JobNameForNode renders the provider-facing job name for a node,
// appending an architecture suffix only when the job expands over more
// than one architecture — per spec.md §4.7's CircleCI example,
// "install_gems_amd64" — and reused identically by the GitHub emitter for
// job-key uniqueness in non-matrix jobs.
func JobNameForNode(g *graph.Graph, n graph.NodeId) string {
	node := g.Nodes[n]
	if len(g.NodesFor(node.Workflow, node.Job)) > 1 {
		return node.Job + "_" + node.Arch
	}
	return node.Job
}
