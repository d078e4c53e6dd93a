// Package circleci implements the CircleCI half of spec.md §4.7: mapping
// the synthesized DAG onto jobs:/workflows:, arch-suffixed job names,
// resource-class lookup, the OR-dependency approval/shim workaround, and
// the two-file dynamic setup/continuation design (spec.md §9's "newer"
// design — the deprecated per-job runtime-halt injection is not
// implemented here).
package circleci

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/model"
)

const version = "2.1"

// Emitter implements emit.Emitter for CircleCI.
type Emitter struct{}

func (Emitter) Name() string { return "circleci" }

func (Emitter) Emit(t *emit.Target) (emit.Files, []diag.Diagnostic, error) {
	files := emit.Files{}
	var diags []diag.Diagnostic

	wfNames := sortedWorkflowNames(t.Config)
	for _, wfName := range wfNames {
		wf := t.Config.Workflows[wfName]
		if wf.Dynamic {
			entrypoint, continuation, d, err := emitDynamic(t, wf)
			if err != nil {
				return nil, diags, fmt.Errorf("workflow %q: %w", wfName, err)
			}
			diags = append(diags, d...)
			files[".circleci/config.yml"] = entrypoint
			files[".circleci/main.yml"] = continuation
			continue
		}

		body, d, err := emitStatic(t, wf)
		if err != nil {
			return nil, diags, fmt.Errorf("workflow %q: %w", wfName, err)
		}
		diags = append(diags, d...)
		// Non-dynamic workflows all fold into the single entrypoint
		// config; CircleCI has exactly one top-level jobs:/workflows:
		// document per repo when setup mode isn't used.
		mergeInto(files, ".circleci/config.yml", body)
	}

	return files, diags, nil
}

func sortedWorkflowNames(cfg *model.Config) []string {
	names := make([]string, 0, len(cfg.Workflows))
	for n := range cfg.Workflows {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// emitStatic builds one workflow's contribution to jobs:/workflows: as a
// standalone document. Multiple non-dynamic workflows in the same Config
// are merged by mergeInto before being written.
func emitStatic(t *emit.Target, wf *model.Workflow) ([]byte, []diag.Diagnostic, error) {
	var diags []diag.Diagnostic

	jobDefs, shimJobs, approvalJobs, d, err := buildJobs(t, wf)
	if err != nil {
		return nil, diags, err
	}
	diags = append(diags, d...)

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

	patchJob := maybePatchApprovalStatusJob(t, wf, approvalJobs)
	if patchJob != nil {
		allJobs["patch_approval_jobs_status"] = patchJob.def
		wfJobEntries = append(wfJobEntries, patchJob.entry)
	}

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

// mergeInto merges a second workflow's YAML document into an
// already-written file by re-parsing and unioning jobs:/workflows: —
// only reached when a Config declares more than one non-dynamic
// workflow, which spec.md's scenarios don't exercise directly but §3
// requires supporting ("workflow names are unique").
func mergeInto(files emit.Files, path string, body []byte) {
	existing, ok := files[path]
	if !ok {
		files[path] = body
		return
	}
	var a, b map[string]any
	_ = yaml.Unmarshal(existing, &a)
	_ = yaml.Unmarshal(body, &b)
	if aj, ok := a["jobs"].(map[string]any); ok {
		if bj, ok := b["jobs"].(map[string]any); ok {
			for k, v := range bj {
				aj[k] = v
			}
		}
	}
	if aw, ok := a["workflows"].(map[string]any); ok {
		if bw, ok := b["workflows"].(map[string]any); ok {
			for k, v := range bw {
				aw[k] = v
			}
		}
	}
	merged, err := yaml.Marshal(a)
	if err != nil {
		files[path] = body
		return
	}
	files[path] = merged
}
