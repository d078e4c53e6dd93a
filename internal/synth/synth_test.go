package synth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cigen-dev/cigen/internal/cachekey"
	"github.com/cigen-dev/cigen/internal/model"
)

func TestPlan_StepOrderFollowsNinePhases(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.sum"), []byte("checksum-data"), 0o644); err != nil {
		t.Fatalf("write go.sum: %v", err)
	}

	cfg := &model.Config{}
	wf := &model.Workflow{Name: "ci"}
	job := &model.Job{
		ID:          "build",
		Image:       "golang:1.22",
		SourceFiles: &model.SourceFilesRef{Patterns: []string{"*.go"}},
		Cache: map[string]model.CacheDecl{
			"gomod": {Type: "generic", Paths: []string{"/root/go/pkg/mod"}, ChecksumSources: []string{"go.sum"}},
		},
		Steps: []model.Step{
			{Kind: model.StepKindRun, Run: &model.RunStep{Name: "test", Command: "go test ./..."}},
			{Kind: model.StepKindStoreTestResults, StoreTestResults: &model.StoreTestResultsStep{Path: "report.xml"}},
		},
	}
	cfg.CacheDefs = map[string]model.CacheDefinition{
		"generic": {},
	}

	p, err := Plan(context.Background(), dir, cfg, wf, job, "amd64", cachekey.OSInfo{OS: "linux", Version: "ubuntu22.04"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	var kinds []model.StepKind
	for _, s := range p.Steps {
		kinds = append(kinds, s.Kind)
	}

	want := []model.StepKind{
		model.StepKindCheckout,
		model.StepKindRun, // skip check
		model.StepKindRestoreCache,
		model.StepKindRun, // test
		model.StepKindRun, // cache path validation
		model.StepKindSaveCache,
		model.StepKindRun, // exists marker
		model.StepKindStoreTestResults,
	}
	if len(kinds) != len(want) {
		t.Fatalf("step kinds = %v, want %v", kinds, want)
	}
	for i, k := range kinds {
		if k != want[i] {
			t.Errorf("step[%d].Kind = %q, want %q", i, k, want[i])
		}
	}
}

func TestPlan_NoCheckoutSkipsCheckoutStep(t *testing.T) {
	cfg := &model.Config{}
	wf := &model.Workflow{Name: "ci"}
	job := &model.Job{ID: "build", Image: "golang:1.22", NoCheckout: true}

	p, err := Plan(context.Background(), t.TempDir(), cfg, wf, job, "amd64", cachekey.OSInfo{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(p.Steps) > 0 && p.Steps[0].Kind == model.StepKindCheckout {
		t.Fatal("expected no checkout step when NoCheckout is set")
	}
}

func TestWantsSkipCheck_FalseWithoutSourceFiles(t *testing.T) {
	cfg := &model.Config{Provider: "github-actions"}
	wf := &model.Workflow{Name: "ci"}
	job := &model.Job{ID: "build"}
	if wantsSkipCheck(cfg, wf, job) {
		t.Fatal("expected no skip-check without source_files")
	}
}

func TestWantsSkipCheck_FalseForCircleCIDynamicWorkflow(t *testing.T) {
	cfg := &model.Config{Provider: "circleci"}
	wf := &model.Workflow{Name: "ci", Dynamic: true}
	job := &model.Job{ID: "build", SourceFiles: &model.SourceFilesRef{Patterns: []string{"*.go"}}}
	if wantsSkipCheck(cfg, wf, job) {
		t.Fatal("expected no skip-check for a CircleCI dynamic-setup workflow")
	}
}

func TestWantsSkipCheck_TrueForGithubActionsDynamicWorkflow(t *testing.T) {
	cfg := &model.Config{Provider: "github-actions"}
	wf := &model.Workflow{Name: "ci", Dynamic: true}
	job := &model.Job{ID: "build", SourceFiles: &model.SourceFilesRef{Patterns: []string{"*.go"}}}
	if !wantsSkipCheck(cfg, wf, job) {
		t.Fatal("expected skip-check to still apply on non-CircleCI providers even for a dynamic workflow")
	}
}

func TestExpandUserSteps_InlinesUsesCommand(t *testing.T) {
	cfg := &model.Config{
		Commands: map[string]*model.Command{
			"greet": {
				Parameters: []model.ParamSpec{{Name: "who", Default: "world"}},
				Steps: []model.Step{
					{Kind: model.StepKindRun, Run: &model.RunStep{Command: "echo hello ${who}"}},
				},
			},
		},
	}
	in := []model.Step{
		{Kind: model.StepKindUsesCommand, UsesCommand: &model.UsesCommandStep{Command: "greet", Parameters: map[string]string{"who": "cigen"}}},
	}

	normal, forwarded, err := expandUserSteps(cfg, in, map[string]bool{})
	if err != nil {
		t.Fatalf("expandUserSteps: %v", err)
	}
	if len(forwarded) != 0 {
		t.Fatalf("expected no forwarded steps, got %v", forwarded)
	}
	if len(normal) != 1 || normal[0].Run.Command != "echo hello cigen" {
		t.Fatalf("expandUserSteps() = %+v, want a single run step with substituted parameter", normal)
	}
}

func TestExpandUserSteps_SelfReferenceErrors(t *testing.T) {
	cfg := &model.Config{
		Commands: map[string]*model.Command{
			"loopy": {
				Steps: []model.Step{
					{Kind: model.StepKindUsesCommand, UsesCommand: &model.UsesCommandStep{Command: "loopy"}},
				},
			},
		},
	}
	in := []model.Step{
		{Kind: model.StepKindUsesCommand, UsesCommand: &model.UsesCommandStep{Command: "loopy"}},
	}
	if _, _, err := expandUserSteps(cfg, in, map[string]bool{}); err == nil {
		t.Fatal("expected a self-referential uses chain to error")
	}
}

func TestExpandUserSteps_ForwardsArtifactAndTestResultSteps(t *testing.T) {
	cfg := &model.Config{}
	in := []model.Step{
		{Kind: model.StepKindRun, Run: &model.RunStep{Command: "go build"}},
		{Kind: model.StepKindStoreArtifacts, StoreArtifacts: &model.StoreArtifactsStep{Path: "bin/"}},
		{Kind: model.StepKindStoreTestResults, StoreTestResults: &model.StoreTestResultsStep{Path: "report.xml"}},
	}
	normal, forwarded, err := expandUserSteps(cfg, in, map[string]bool{})
	if err != nil {
		t.Fatalf("expandUserSteps: %v", err)
	}
	if len(normal) != 1 {
		t.Fatalf("expected 1 normal step, got %d", len(normal))
	}
	if len(forwarded) != 2 {
		t.Fatalf("expected 2 forwarded steps, got %d", len(forwarded))
	}
}

func TestInstallCommandFor_UnknownPackageManagerErrors(t *testing.T) {
	if _, err := installCommandFor("not-a-real-manager"); err == nil {
		t.Fatal("expected an error for an unknown package manager")
	}
}

func TestValidateCachePathsCommand_EmptyWhenNoPaths(t *testing.T) {
	c := ResolvedCache{Name: "gems", Resolved: cachekey.Resolved{}}
	if got := validateCachePathsCommand(c); got != "" {
		t.Fatalf("validateCachePathsCommand() = %q, want empty string for a cache with no paths", got)
	}
}

func TestSubstituteTokens_ReplacesAllOccurrences(t *testing.T) {
	got := substituteTokens("${name}-${name}.txt", map[string]string{"name": "build"})
	want := "build-build.txt"
	if got != want {
		t.Fatalf("substituteTokens() = %q, want %q", got, want)
	}
}
