// Package githubactions implements the GitHub Actions half of spec.md
// §4.7: one workflow file per cigen workflow under .github/workflows/,
// native strategy.matrix for architecture expansion, needs:/if: for
// OR-dependencies (no approval/shim workaround — GitHub supports
// fan-in conditions natively), and an early-exit skip-check step gating
// every subsequent step since workflow structure cannot be filtered at
// runtime on this provider.
package githubactions

import (
	"sort"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/model"
)

// Emitter implements emit.Emitter for GitHub Actions.
type Emitter struct{}

func (Emitter) Name() string { return "github-actions" }

func (Emitter) Emit(t *emit.Target) (emit.Files, []diag.Diagnostic, error) {
	files := emit.Files{}
	var diags []diag.Diagnostic

	for _, wfName := range sortedWorkflowNames(t.Config) {
		wf := t.Config.Workflows[wfName]
		body, d, err := emitWorkflow(t, wf)
		if err != nil {
			return nil, diags, err
		}
		diags = append(diags, d...)
		files[outputPath(wf)] = body
	}

	return files, diags, nil
}

func outputPath(wf *model.Workflow) string {
	name := wf.OutputFilename
	if name == "" {
		name = wf.Name + ".yml"
	}
	return ".github/workflows/" + name
}

func sortedWorkflowNames(cfg *model.Config) []string {
	names := make([]string, 0, len(cfg.Workflows))
	for n := range cfg.Workflows {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// emitWorkflow builds one complete .github/workflows/<name>.yml document.
// GitHub has no notion of a "dynamic setup" workflow (spec.md §4.7: that
// CircleCI-only mechanic doesn't carry over) — every node is always
// emitted; the per-job skip-check step is what short-circuits execution
// at runtime, per spec.md §8 testable property 8.
func emitWorkflow(t *emit.Target, wf *model.Workflow) ([]byte, []diag.Diagnostic, error) {
	jobsNode, diags, err := buildJobs(t, wf)
	if err != nil {
		return nil, diags, err
	}

	root := emit.Map(
		emit.Scalar("name"), emit.Scalar(wf.Name),
		emit.Scalar("on"), emit.Map(emit.Scalar("push"), emit.Map()),
		emit.Scalar("jobs"), jobsNode,
	)
	out, err := emit.Document(root)
	return out, diags, err
}

func sortedJobIDs(wf *model.Workflow) []string {
	ids := make([]string, 0, len(wf.Jobs))
	for id := range wf.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
