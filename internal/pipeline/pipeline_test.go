package pipeline

import (
	"testing"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/graph"
	"github.com/cigen-dev/cigen/internal/model"
)

func TestSkippedNodesFromList_MatchesJobUnderscoreArch(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"lint":  {ID: "lint"},
			"build": {ID: "build", Architectures: []string{"amd64", "arm64"}},
		},
	}
	cfg := &model.Config{Architectures: []string{"amd64"}, Workflows: map[string]*model.Workflow{wf.Name: wf}}
	bag := &diag.Bag{}
	g := graph.Build(cfg, bag)
	if bag.HasErrors() {
		t.Fatalf("graph.Build: %v", bag.Items())
	}

	names := map[string]bool{"lint_amd64": true, "build_arm64": true, "no_such_node": true}
	skipped := SkippedNodesFromList(g, names)

	lint, _ := g.Lookup("ci", "lint", "amd64")
	buildArm, _ := g.Lookup("ci", "build", "arm64")
	buildAmd, _ := g.Lookup("ci", "build", "amd64")

	if !skipped[lint] {
		t.Error("expected lint_amd64 to be marked skipped")
	}
	if !skipped[buildArm] {
		t.Error("expected build_arm64 to be marked skipped")
	}
	if skipped[buildAmd] {
		t.Error("build_amd64 was not in the skip list, should not be marked skipped")
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %v, want exactly 2 entries", skipped)
	}
}

func TestSkippedNodesFromList_EmptyListReturnsNil(t *testing.T) {
	wf := &model.Workflow{Name: "ci", Jobs: map[string]*model.Job{"lint": {ID: "lint"}}}
	cfg := &model.Config{Architectures: []string{"amd64"}, Workflows: map[string]*model.Workflow{wf.Name: wf}}
	g := graph.Build(cfg, &diag.Bag{})

	if got := SkippedNodesFromList(g, nil); got != nil {
		t.Errorf("SkippedNodesFromList(nil) = %v, want nil", got)
	}
}
