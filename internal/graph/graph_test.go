package graph

import (
	"testing"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/model"
)

func cfgWithWorkflow(wf *model.Workflow) *model.Config {
	return &model.Config{
		Architectures: []string{"amd64"},
		Workflows:     map[string]*model.Workflow{wf.Name: wf},
	}
}

func TestBuild_ExpandsOverArchitectures(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"test": {ID: "test", Architectures: []string{"amd64", "arm64"}},
		},
	}
	g := Build(cfgWithWorkflow(wf), &diag.Bag{})

	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 expanded nodes, got %d: %+v", len(g.Nodes), g.Nodes)
	}
	if _, ok := g.Lookup("ci", "test", "amd64"); !ok {
		t.Error("expected amd64 node to exist")
	}
	if _, ok := g.Lookup("ci", "test", "arm64"); !ok {
		t.Error("expected arm64 node to exist")
	}
}

func TestBuild_RequiresCreatesAndEdgeAcrossArchCrossProduct(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"build": {ID: "build", Architectures: []string{"amd64", "arm64"}},
			"test":  {ID: "test", Architectures: []string{"amd64", "arm64"}, Requires: []string{"build"}},
		},
	}
	bag := &diag.Bag{}
	g := Build(cfgWithWorkflow(wf), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	testAmd64, _ := g.Lookup("ci", "test", "amd64")
	deps := g.AndDeps(testAmd64)
	if len(deps) != 2 {
		t.Fatalf("expected test@amd64 to AND-depend on both build nodes, got %v", deps)
	}
}

func TestBuild_RequiresAcrossStagesIsGraphError(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"deployprep": {ID: "deployprep", Stage: "deploy"},
			"build":      {ID: "build", Stage: "build", Requires: []string{"deployprep"}},
		},
	}
	bag := &diag.Bag{}
	Build(cfgWithWorkflow(wf), bag)
	if !bag.HasErrors() {
		t.Fatal("expected a cross-stage GRAPH_CROSS_STAGE error")
	}
}

func TestBuild_RequiresAnyCreatesOrGroup(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"lint":   {ID: "lint"},
			"unit":   {ID: "unit"},
			"deploy": {ID: "deploy", RequiresAny: []string{"lint", "unit"}},
		},
	}
	bag := &diag.Bag{}
	g := Build(cfgWithWorkflow(wf), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	deploy, _ := g.Lookup("ci", "deploy", "amd64")
	groups := g.OrGroups(deploy)
	if len(groups) != 1 {
		t.Fatalf("expected exactly one OR group, got %d", len(groups))
	}
	for _, sources := range groups {
		if len(sources) != 2 {
			t.Fatalf("expected 2 OR sources, got %d", len(sources))
		}
	}
}

func TestBuild_SharedCrossWorkflowRequiresAny(t *testing.T) {
	shared := &model.Workflow{
		Name: "common",
		Jobs: map[string]*model.Job{
			"smoke": {ID: "smoke", Shared: true},
		},
	}
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"deploy": {ID: "deploy", RequiresAny: []string{"smoke"}},
		},
	}
	cfg := &model.Config{
		Architectures: []string{"amd64"},
		Workflows:     map[string]*model.Workflow{"common": shared, "ci": wf},
	}
	bag := &diag.Bag{}
	g := Build(cfg, bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	deploy, _ := g.Lookup("ci", "deploy", "amd64")
	groups := g.OrGroups(deploy)
	if len(groups) != 1 {
		t.Fatalf("expected the shared cross-workflow job to resolve into one OR group, got %d", len(groups))
	}
}

func TestBuild_UnsharedCrossWorkflowRequiresAnyIsImpossibleOr(t *testing.T) {
	other := &model.Workflow{
		Name: "common",
		Jobs: map[string]*model.Job{
			"smoke": {ID: "smoke"}, // not Shared
		},
	}
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"deploy": {ID: "deploy", RequiresAny: []string{"smoke"}},
		},
	}
	cfg := &model.Config{
		Architectures: []string{"amd64"},
		Workflows:     map[string]*model.Workflow{"common": other, "ci": wf},
	}
	bag := &diag.Bag{}
	Build(cfg, bag)
	if !bag.HasErrors() {
		t.Fatal("expected GRAPH_IMPOSSIBLE_OR error for an unshared cross-workflow requires_any source")
	}
}

func TestFindCycle_DetectsSelfLoop(t *testing.T) {
	g := newGraph()
	a := g.addNode(Node{Workflow: "ci", Job: "a", Arch: "amd64"})
	g.Edges = append(g.Edges, Edge{From: a, To: a, Kind: EdgeAnd})

	if c := findCycle(g); c == "" {
		t.Fatal("expected cycle to be detected")
	}
}

func TestBuild_CycleIsGraphError(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"a": {ID: "a", Requires: []string{"b"}},
			"b": {ID: "b", Requires: []string{"a"}},
		},
	}
	bag := &diag.Bag{}
	Build(cfgWithWorkflow(wf), bag)
	if !bag.HasErrors() {
		t.Fatal("expected GRAPH_CYCLE error")
	}
}

func TestTopoOrder_RespectsAndEdges(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"build": {ID: "build"},
			"test":  {ID: "test", Requires: []string{"build"}},
		},
	}
	bag := &diag.Bag{}
	g := Build(cfgWithWorkflow(wf), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	order := TopoOrder(g)
	if order == nil {
		t.Fatal("expected a topological order for an acyclic graph")
	}
	build, _ := g.Lookup("ci", "build", "amd64")
	test, _ := g.Lookup("ci", "test", "amd64")
	buildIdx, testIdx := -1, -1
	for i, n := range order {
		if n == build {
			buildIdx = i
		}
		if n == test {
			testIdx = i
		}
	}
	if buildIdx == -1 || testIdx == -1 || buildIdx > testIdx {
		t.Fatalf("expected build before test in topo order, got %v", order)
	}
}
