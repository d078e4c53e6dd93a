package githubactions

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/graph"
	"github.com/cigen-dev/cigen/internal/model"
)

// buildJobs renders the jobs: mapping for wf. Unlike the CircleCI emitter,
// a job that expands over more than one architecture becomes a single
// job entry with strategy.matrix.arch — per spec.md §4.7 ("architecture
// matrices use native strategy.matrix") — so node-per-arch fan-out that
// drives internal/graph and internal/synth collapses back into one
// GitHub job definition here.
func buildJobs(t *emit.Target, wf *model.Workflow) (*yaml.Node, []diag.Diagnostic, error) {
	var diags []diag.Diagnostic
	out := map[string]*yaml.Node{}

	for _, jobID := range sortedJobIDs(wf) {
		job := wf.Jobs[jobID]
		arches := archesOf(t, job)
		template := templateNode(t, wf, job, arches)
		if template < 0 {
			diags = append(diags, diag.Diagnostic{
				Severity: diag.SeverityWarning, Code: "GHA_NODE_MISSING",
				Message: fmt.Sprintf("no graph node for %s/%s", wf.Name, jobID),
			})
			continue
		}

		def, err := buildJobNode(t, wf, job, template, arches)
		if err != nil {
			return nil, diags, err
		}
		out[jobID] = def
	}

	return emit.SortedMap(out), diags, nil
}

func archesOf(t *emit.Target, job *model.Job) []string {
	if len(job.Architectures) > 0 {
		arches := append([]string{}, job.Architectures...)
		sort.Strings(arches)
		return arches
	}
	if len(t.Config.Architectures) > 0 {
		return t.Config.Architectures[:1]
	}
	return []string{""}
}

// templateNode is the graph node used as the rendering template for a
// job: the first (lexically smallest) architecture's node. For a
// single-architecture job it is simply that job's only node.
func templateNode(t *emit.Target, wf *model.Workflow, job *model.Job, arches []string) graph.NodeId {
	for _, arch := range arches {
		if id, ok := t.Graph.Lookup(wf.Name, job.ID, arch); ok {
			return id
		}
	}
	return -1
}

func buildJobNode(t *emit.Target, wf *model.Workflow, job *model.Job, nodeID graph.NodeId, arches []string) (*yaml.Node, error) {
	plan := t.Plans[nodeID]
	if plan == nil {
		return nil, fmt.Errorf("job %q: no synthesized plan for node", job.ID)
	}
	isMatrix := len(arches) > 1

	pairs := []*yaml.Node{
		emit.Scalar("runs-on"), emit.Scalar(runsOnFor(t.Config, job)),
	}

	if isMatrix {
		pairs = append(pairs, emit.Scalar("strategy"), emit.Map(
			emit.Scalar("matrix"), emit.Map(
				emit.Scalar("arch"), emit.SeqStrings(arches),
			),
		))
	}

	if needs, ifExpr := dependencyClauses(t, wf, job, arches[0]); len(needs) > 0 {
		pairs = append(pairs, emit.Scalar("needs"), emit.SeqStrings(needs))
		if ifExpr != "" {
			pairs = append(pairs, emit.Scalar("if"), emit.Scalar(ifExpr))
		}
	}

	if svc := servicesNode(t.Config, job); svc != nil {
		pairs = append(pairs, emit.Scalar("services"), svc)
	}

	if len(job.Environment) > 0 {
		pairs = append(pairs, emit.Scalar("env"), emit.SortedMap(stringMapNodes(job.Environment)))
	}

	stepsNode, err := buildSteps(t.Config, job, plan, isMatrix)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", job.ID, err)
	}
	pairs = append(pairs, emit.Scalar("steps"), stepsNode)

	return emit.Map(pairs...), nil
}

// runsOnFor maps a job's resource_class/architecture to a GitHub-hosted
// runner label. cigen's resource_classes table is interpreted as
// "arch -> tier -> native runner label" when the provider is GitHub,
// since GitHub's runner taxonomy (labels, not CircleCI resource classes)
// plays the same role spec.md §4.7 assigns to CircleCI's
// `resource_classes[arch][tier]` lookup.
func runsOnFor(cfg *model.Config, job *model.Job) string {
	if job.ResourceClass != "" {
		for _, arch := range job.Architectures {
			if byArch, ok := cfg.ResourceClasses[arch]; ok {
				if label, ok := byArch[job.ResourceClass]; ok {
					return label
				}
			}
		}
	}
	return "ubuntu-latest"
}

func servicesNode(cfg *model.Config, job *model.Job) *yaml.Node {
	if len(job.Services) == 0 {
		return nil
	}
	out := map[string]*yaml.Node{}
	for _, name := range job.Services {
		svc, ok := cfg.Services[name]
		if !ok {
			continue
		}
		pairs := []*yaml.Node{emit.Scalar("image"), emit.Scalar(svc.Image)}
		if len(svc.Ports) > 0 {
			pairs = append(pairs, emit.Scalar("ports"), emit.SeqStrings(svc.Ports))
		}
		if len(svc.Environment) > 0 {
			pairs = append(pairs, emit.Scalar("env"), emit.SortedMap(stringMapNodes(svc.Environment)))
		}
		out[name] = emit.Map(pairs...)
	}
	if len(out) == 0 {
		return nil
	}
	return emit.SortedMap(out)
}

func stringMapNodes(m map[string]string) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node, len(m))
	for k, v := range m {
		out[k] = emit.Scalar(v)
	}
	return out
}

// dependencyClauses builds needs: and, when requires_any sources are
// present, an explicit if: expression. A custom if: on GitHub Actions
// *replaces* the implicit "all needs succeeded" default rather than
// supplementing it (spec.md §4.7's OR-dependency correctness property is
// a GitHub-emitter testable property, §8 item 6), so as soon as any if: is
// emitted at all, every AND dependency (from requires:) needs its own
// explicit `needs.X.result == 'success'` conjunct or a failed AND source
// would silently stop gating the job the moment an OR source exists.
// requires_any sources are ORed together and, when AND sources are also
// present, that OR group is ANDed against every AND source:
// `needs.A.result == 'success' && (needs.B.result == 'success' ||
// needs.C.result == 'success')`. A job with only AND dependencies keeps
// GitHub's implicit gating and emits no if: at all.
func dependencyClauses(t *emit.Target, wf *model.Workflow, job *model.Job, templateArch string) (needs []string, ifExpr string) {
	nodeID, ok := t.Graph.Lookup(wf.Name, job.ID, templateArch)
	if !ok {
		return nil, ""
	}

	andSet := map[string]bool{}
	for _, dep := range t.Graph.AndDeps(nodeID) {
		andSet[t.Graph.Nodes[dep].Job] = true
	}
	var andNames []string
	for name := range andSet {
		andNames = append(andNames, name)
	}
	sort.Strings(andNames)
	needs = append(needs, andNames...)

	var orNames []string
	if len(job.RequiresAny) > 0 {
		orNames = append(orNames, dedupe(job.RequiresAny)...)
		for _, n := range orNames {
			if !andSet[n] {
				needs = append(needs, n)
			}
		}
	}
	sort.Strings(needs)

	if len(orNames) == 0 {
		return needs, ""
	}

	var orClauses []string
	for _, n := range orNames {
		orClauses = append(orClauses, fmt.Sprintf("needs.%s.result == 'success'", n))
	}
	orExpr := strings.Join(orClauses, " || ")
	if len(andNames) == 0 {
		return needs, orExpr
	}
	if len(orClauses) > 1 {
		orExpr = "(" + orExpr + ")"
	}

	var andClauses []string
	for _, n := range andNames {
		andClauses = append(andClauses, fmt.Sprintf("needs.%s.result == 'success'", n))
	}
	ifExpr = strings.Join(andClauses, " && ") + " && " + orExpr
	return needs, ifExpr
}

func dedupe(ss []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
