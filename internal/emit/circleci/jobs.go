package circleci

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/graph"
	"github.com/cigen-dev/cigen/internal/model"
	"github.com/cigen-dev/cigen/internal/synth"
)

// orRewrite is the result of realizing one job's requires_any set as the
// approval+shim workaround spec.md §4.7 describes.
type orRewrite struct {
	approvalJobName string   // the OR-source rewritten to type: approval
	requires        []string // what the requiring job's `requires:` becomes
	shimNames       []string // shim job names created for the remaining sources
}

// buildJobs builds every regular job entry for wf, plus the approval and
// shim jobs spec.md §4.7's OR-dependency workaround requires.
func buildJobs(t *emit.Target, wf *model.Workflow) (jobs, shims, approvals map[string]*yaml.Node, diags []diag.Diagnostic, err error) {
	jobs = map[string]*yaml.Node{}
	shims = map[string]*yaml.Node{}
	approvals = map[string]*yaml.Node{}

	rewrites := map[string]orRewrite{} // jobID -> its OR rewrite

	jobIDs := sortedJobIDs(wf)
	for _, jobID := range jobIDs {
		job := wf.Jobs[jobID]
		if len(job.RequiresAny) == 0 {
			continue
		}
		rw := realizeOrRewrite(job)
		rewrites[jobID] = rw

		approvals[rw.approvalJobName] = approvalJobNode()
		for i, src := range job.RequiresAny[1:] {
			shimName := rw.shimNames[i]
			shims[shimName] = shimJobNode(rw.approvalJobName)
			_ = src
		}
	}

	for _, jobID := range jobIDs {
		job := wf.Jobs[jobID]
		for _, arch := range archesOf(t, wf, job) {
			nodeID, ok := t.Graph.Lookup(wf.Name, jobID, arch)
			if !ok {
				diags = append(diags, diag.Diagnostic{Severity: diag.SeverityWarning, Code: "CIRCLECI_NODE_MISSING", Message: fmt.Sprintf("no graph node for %s/%s@%s", wf.Name, jobID, arch)})
				continue
			}
			plan := t.Plans[nodeID]
			if plan == nil {
				continue
			}
			name := emit.JobNameForNode(t.Graph, nodeID)
			def, derr := buildJobNode(t, job, plan, arch)
			if derr != nil {
				err = derr
				return
			}
			jobs[name] = def
		}
	}

	return jobs, shims, approvals, diags, nil
}

func realizeOrRewrite(job *model.Job) orRewrite {
	target := job.RequiresAny[0]
	rw := orRewrite{approvalJobName: target, requires: []string{target}}
	for _, src := range job.RequiresAny[1:] {
		rw.shimNames = append(rw.shimNames, target+"_from_"+src)
	}
	return rw
}

func approvalJobNode() *yaml.Node {
	return emit.Map(emit.Scalar("type"), emit.Scalar("approval"))
}

// shimJobNode builds the auto-generated helper job that approves
// targetJob via the CircleCI API when its own OR source succeeds,
// realized as a `uses` of the embedded automated_approval command —
// spec.md §4.7: "each of which calls an embedded automated_approval
// command that invokes the CircleCI API."
func shimJobNode(targetJob string) *yaml.Node {
	return emit.Map(
		emit.Scalar("docker"), emit.Seq(emit.Map(emit.Scalar("image"), emit.Scalar("cimg/base:current"))),
		emit.Scalar("steps"), emit.Seq(
			emit.Map(emit.Scalar("automated_approval"), emit.Map(
				emit.Scalar("job_name"), emit.Scalar(targetJob),
			)),
		),
	)
}

func buildJobNode(t *emit.Target, job *model.Job, plan *synth.JobPlan, arch string) (*yaml.Node, error) {
	pairs := []*yaml.Node{
		emit.Scalar("docker"), emit.Seq(emit.Map(emit.Scalar("image"), emit.Scalar(job.Image))),
	}
	if rc := resolveResourceClass(t.Config, job, arch); rc != "" {
		pairs = append(pairs, emit.Scalar("resource_class"), emit.Scalar(rc))
	}
	if job.Parallelism > 1 {
		pairs = append(pairs, emit.Scalar("parallelism"), emit.Int(job.Parallelism))
	}
	if len(job.Environment) > 0 {
		pairs = append(pairs, emit.Scalar("environment"), emit.SortedMap(stringMapNodes(job.Environment)))
	}

	stepsNode, err := buildSteps(plan)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", job.ID, err)
	}
	pairs = append(pairs, emit.Scalar("steps"), stepsNode)

	return emit.Map(pairs...), nil
}

func resolveResourceClass(cfg *model.Config, job *model.Job, arch string) string {
	if job.ResourceClass == "" {
		return ""
	}
	byArch, ok := cfg.ResourceClasses[arch]
	if !ok {
		return ""
	}
	return byArch[job.ResourceClass]
}

func stringMapNodes(m map[string]string) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node, len(m))
	for k, v := range m {
		out[k] = emit.Scalar(v)
	}
	return out
}

func sortedJobIDs(wf *model.Workflow) []string {
	ids := make([]string, 0, len(wf.Jobs))
	for id := range wf.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func archesOf(t *emit.Target, wf *model.Workflow, job *model.Job) []string {
	if len(job.Architectures) > 0 {
		return job.Architectures
	}
	if len(t.Config.Architectures) > 0 {
		return t.Config.Architectures[:1]
	}
	return []string{""}
}

// buildWorkflowJobList renders the workflows:<name>.jobs: sequence: every
// regular job entry (with its AND-edge requires:), the approval job for
// each OR target, and the shim jobs — in lexical job-ID order. The
// workflow's Jobs field is a Go map, so job declaration order is not
// preserved.
func buildWorkflowJobList(t *emit.Target, wf *model.Workflow, approvals, shims map[string]*yaml.Node) []*yaml.Node {
	var entries []*yaml.Node
	emittedApprovals := map[string]bool{}

	for _, jobID := range sortedJobIDs(wf) {
		job := wf.Jobs[jobID]
		for _, arch := range archesOf(t, wf, job) {
			nodeID, ok := t.Graph.Lookup(wf.Name, jobID, arch)
			if !ok {
				continue
			}
			name := emit.JobNameForNode(t.Graph, nodeID)

			var requires []string
			for _, dep := range t.Graph.AndDeps(nodeID) {
				requires = append(requires, emit.JobNameForNode(t.Graph, dep))
			}
			if len(job.RequiresAny) > 0 {
				target := job.RequiresAny[0]
				requires = append(requires, target)
				if !emittedApprovals[target] {
					entries = append(entries, emit.Scalar(target))
					emittedApprovals[target] = true
					for _, src := range job.RequiresAny[1:] {
						shimName := target + "_from_" + src
						entries = append(entries, emit.Map(emit.Scalar(shimName), emit.Map(
							emit.Scalar("requires"), emit.SeqStrings([]string{src}),
						)))
					}
				}
			}
			sort.Strings(requires)

			if len(requires) == 0 {
				entries = append(entries, emit.Scalar(name))
				continue
			}
			entries = append(entries, emit.Map(emit.Scalar(name), emit.Map(
				emit.Scalar("requires"), emit.SeqStrings(requires),
			)))
		}
	}

	_ = graph.EdgeAnd
	return entries
}

// patchJob bundles a built job node and its workflow-entry node together.
type patchJob struct {
	def   *yaml.Node
	entry *yaml.Node
}

// maybePatchApprovalStatusJob implements spec.md §4.7's
// `patch_approval_jobs_status` job: appended to the workflow, depending
// on every test job, when approvals exist and fix_github_status is set.
func maybePatchApprovalStatusJob(t *emit.Target, wf *model.Workflow, approvals map[string]*yaml.Node) *patchJob {
	if len(approvals) == 0 || !t.Config.FixGithubStatus {
		return nil
	}

	var testJobs []string
	for _, jobID := range sortedJobIDs(wf) {
		if len(wf.Jobs[jobID].RequiresAny) > 0 {
			continue // the approval gates themselves, not a "test job"
		}
		for _, arch := range archesOf(t, wf, wf.Jobs[jobID]) {
			if nodeID, ok := t.Graph.Lookup(wf.Name, jobID, arch); ok {
				testJobs = append(testJobs, emit.JobNameForNode(t.Graph, nodeID))
			}
		}
	}
	sort.Strings(testJobs)

	def := emit.Map(
		emit.Scalar("docker"), emit.Seq(emit.Map(emit.Scalar("image"), emit.Scalar("cimg/base:current"))),
		emit.Scalar("steps"), emit.Seq(emit.Map(emit.Scalar("run"), emit.Map(
			emit.Scalar("name"), emit.Scalar("patch github commit status"),
			emit.Scalar("command"), emit.Scalar("cigen internal patch-github-status"),
		))),
	)
	entry := emit.Map(emit.Scalar("patch_approval_jobs_status"), emit.Map(
		emit.Scalar("requires"), emit.SeqStrings(testJobs),
	))
	return &patchJob{def: def, entry: entry}
}
