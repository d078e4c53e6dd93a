package circleci

import (
	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/model"
)

// emitDynamic implements spec.md §4.7's two-file design for a workflow
// declared `dynamic: true`: an entrypoint config whose single `setup`
// workflow runs a job that probes the skip cache for every node, writes
// the skip list, and posts main.yml as a continuation containing only
// the surviving nodes — per spec.md §9's explicit choice of the "two-file"
// design over the deprecated per-job runtime-halt injection.
//
// The core emits both files statically; the CIGEN_SKIP_JOBS_FILE pruning
// spec.md §6 describes happens at runtime inside the setup job, driven by
// the `cigen` binary the job invokes — this emitter's job is only to wire
// that invocation up and to honor t.SkippedNodes when the caller already
// knows the skip set (e.g. re-generating the continuation after a setup
// run completed).
func emitDynamic(t *emit.Target, wf *model.Workflow) (entrypoint, continuation []byte, diags []diag.Diagnostic, err error) {
	entrypointDoc := emit.Map(
		emit.Scalar("version"), emit.Scalar(version),
		emit.Scalar("setup"), emit.Bool(true),
		emit.Scalar("jobs"), emit.Map(
			emit.Scalar("cigen-setup"), setupJobNode(wf),
		),
		emit.Scalar("workflows"), emit.Map(
			emit.Scalar("setup"), emit.Map(
				emit.Scalar("jobs"), emit.Seq(emit.Scalar("cigen-setup")),
			),
		),
	)
	entrypoint, err = emit.Document(entrypointDoc)
	if err != nil {
		return nil, nil, diags, err
	}

	continuationBody, d, cerr := emitContinuation(t, wf)
	if cerr != nil {
		return nil, nil, diags, cerr
	}
	diags = append(diags, d...)

	return entrypoint, continuationBody, diags, nil
}

func setupJobNode(wf *model.Workflow) *yaml.Node {
	return emit.Map(
		emit.Scalar("docker"), emit.Seq(emit.Map(emit.Scalar("image"), emit.Scalar("cimg/base:current"))),
		emit.Scalar("steps"), emit.Seq(
			emit.Scalar("checkout"),
			emit.Map(emit.Scalar("run"), emit.Map(
				emit.Scalar("name"), emit.Scalar("probe skip cache and continue"),
				emit.Scalar("command"), emit.Scalar("cigen internal continue --workflow "+wf.Name),
			)),
		),
	)
}

// emitContinuation builds main.yml: the full jobs:/workflows: document for
// wf, omitting any node present in t.SkippedNodes — spec.md §8 testable
// property 8: "the CircleCI setup workflow omits the node from the
// continuation config."
func emitContinuation(t *emit.Target, wf *model.Workflow) ([]byte, []diag.Diagnostic, error) {
	jobDefs, shimJobs, approvalJobs, diags, err := buildJobs(t, wf)
	if err != nil {
		return nil, diags, err
	}

	for nodeID, skipped := range t.SkippedNodes {
		if !skipped {
			continue
		}
		node := t.Graph.Nodes[nodeID]
		if node.Workflow != wf.Name {
			continue
		}
		delete(jobDefs, emit.JobNameForNode(t.Graph, nodeID))
	}

	allJobs := map[string]*yaml.Node{}
	for k, v := range jobDefs {
		allJobs[k] = v
	}
	for k, v := range shimJobs {
		allJobs[k] = v
	}
	for k, v := range approvalJobs {
		allJobs[k] = v
	}

	wfJobEntries := buildWorkflowJobList(t, wf, approvalJobs, shimJobs)
	wfJobEntries = filterSkipped(t, wf, wfJobEntries)

	root := emit.Map(
		emit.Scalar("version"), emit.Scalar(version),
		emit.Scalar("jobs"), emit.SortedMap(allJobs),
		emit.Scalar("workflows"), emit.Map(
			emit.Scalar(wf.Name), emit.Map(
				emit.Scalar("jobs"), emit.Seq(wfJobEntries...),
			),
		),
	)
	out, err := emit.Document(root)
	return out, diags, err
}

// filterSkipped drops workflow-job-list entries whose job name is in the
// skip set, so the continuation's workflows:<name>.jobs: sequence never
// references a job definition that was itself deleted above.
func filterSkipped(t *emit.Target, wf *model.Workflow, entries []*yaml.Node) []*yaml.Node {
	if len(t.SkippedNodes) == 0 {
		return entries
	}
	skippedNames := map[string]bool{}
	for nodeID, skipped := range t.SkippedNodes {
		if !skipped {
			continue
		}
		node := t.Graph.Nodes[nodeID]
		if node.Workflow == wf.Name {
			skippedNames[emit.JobNameForNode(t.Graph, nodeID)] = true
		}
	}
	var out []*yaml.Node
	for _, e := range entries {
		if name := entryJobName(e); name != "" && skippedNames[name] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// entryJobName extracts the job name from a workflow-job-list entry,
// which is either a bare scalar ("build") or a one-key mapping
// ("build": {requires: [...]}).
func entryJobName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value
	case yaml.MappingNode:
		if len(n.Content) > 0 {
			return n.Content[0].Value
		}
	}
	return ""
}
