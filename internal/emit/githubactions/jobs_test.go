package githubactions

import (
	"strings"
	"testing"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/graph"
	"github.com/cigen-dev/cigen/internal/model"
)

func buildTarget(t *testing.T, wf *model.Workflow) *emit.Target {
	t.Helper()
	cfg := &model.Config{Architectures: []string{"amd64"}, Workflows: map[string]*model.Workflow{wf.Name: wf}}
	bag := &diag.Bag{}
	g := graph.Build(cfg, bag)
	if bag.HasErrors() {
		t.Fatalf("graph.Build: %v", bag.Items())
	}
	return &emit.Target{Config: cfg, Graph: g}
}

func TestDependencyClauses_PureAnd_NoIfExpr(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"a":      {ID: "a"},
			"deploy": {ID: "deploy", Requires: []string{"a"}},
		},
	}
	target := buildTarget(t, wf)
	needs, ifExpr := dependencyClauses(target, wf, wf.Jobs["deploy"], "amd64")
	if ifExpr != "" {
		t.Fatalf("expected no if: for a pure AND dependency, got %q", ifExpr)
	}
	if len(needs) != 1 || needs[0] != "a" {
		t.Fatalf("needs = %v, want [a]", needs)
	}
}

func TestDependencyClauses_PureOr_InclusiveIfExpr(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"b":      {ID: "b"},
			"c":      {ID: "c"},
			"deploy": {ID: "deploy", RequiresAny: []string{"b", "c"}},
		},
	}
	target := buildTarget(t, wf)
	needs, ifExpr := dependencyClauses(target, wf, wf.Jobs["deploy"], "amd64")
	wantNeeds := []string{"b", "c"}
	for i, n := range wantNeeds {
		if needs[i] != n {
			t.Fatalf("needs = %v, want %v", needs, wantNeeds)
		}
	}
	want := "needs.b.result == 'success' || needs.c.result == 'success'"
	if ifExpr != want {
		t.Fatalf("ifExpr = %q, want %q", ifExpr, want)
	}
}

// TestDependencyClauses_AndPlusOr_ANDsBothSets guards the bug spec.md §4.7
// forbids: a custom if: on GitHub Actions replaces the implicit
// "all needs succeeded" default rather than supplementing it, so an if:
// containing only the OR clause would let a failed AND dependency's
// downstream job run anyway whenever an OR source succeeded.
func TestDependencyClauses_AndPlusOr_ANDsBothSets(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"a": {ID: "a"},
			"b": {ID: "b"},
			"c": {ID: "c"},
			"deploy": {
				ID:          "deploy",
				Requires:    []string{"a"},
				RequiresAny: []string{"b", "c"},
			},
		},
	}
	target := buildTarget(t, wf)
	needs, ifExpr := dependencyClauses(target, wf, wf.Jobs["deploy"], "amd64")

	wantNeeds := []string{"a", "b", "c"}
	if len(needs) != len(wantNeeds) {
		t.Fatalf("needs = %v, want %v", needs, wantNeeds)
	}
	for i, n := range wantNeeds {
		if needs[i] != n {
			t.Fatalf("needs = %v, want %v", needs, wantNeeds)
		}
	}

	if !strings.Contains(ifExpr, "needs.a.result == 'success'") {
		t.Fatalf("ifExpr = %q, missing the AND dependency's own success check", ifExpr)
	}
	wantOr := "(needs.b.result == 'success' || needs.c.result == 'success')"
	if !strings.Contains(ifExpr, wantOr) {
		t.Fatalf("ifExpr = %q, missing parenthesized OR clause %q", ifExpr, wantOr)
	}
	want := "needs.a.result == 'success' && " + wantOr
	if ifExpr != want {
		t.Fatalf("ifExpr = %q, want %q", ifExpr, want)
	}
}
