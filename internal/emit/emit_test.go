package emit

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/graph"
	"github.com/cigen-dev/cigen/internal/model"
)

func buildGraph(t *testing.T, wf *model.Workflow) *graph.Graph {
	t.Helper()
	cfg := &model.Config{Architectures: []string{"amd64"}, Workflows: map[string]*model.Workflow{wf.Name: wf}}
	bag := &diag.Bag{}
	g := graph.Build(cfg, bag)
	if bag.HasErrors() {
		t.Fatalf("graph.Build: %v", bag.Items())
	}
	return g
}

func TestNodesInDeclarationOrder_SortsByJobThenArch(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"test":  {ID: "test", Architectures: []string{"arm64", "amd64"}},
			"build": {ID: "build"},
		},
	}
	g := buildGraph(t, wf)

	ids := NodesInDeclarationOrder(g, "ci")
	var order []string
	for _, id := range ids {
		n := g.Nodes[id]
		order = append(order, n.Job+"@"+n.Arch)
	}
	want := []string{"build@amd64", "test@amd64", "test@arm64"}
	if len(order) != len(want) {
		t.Fatalf("NodesInDeclarationOrder() = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("NodesInDeclarationOrder() = %v, want %v", order, want)
		}
	}
}

func TestJobNameForNode_SuffixesArchOnlyWhenMultiArch(t *testing.T) {
	wf := &model.Workflow{
		Name: "ci",
		Jobs: map[string]*model.Job{
			"build": {ID: "build"},
			"test":  {ID: "test", Architectures: []string{"amd64", "arm64"}},
		},
	}
	g := buildGraph(t, wf)

	build, _ := g.Lookup("ci", "build", "amd64")
	if got := JobNameForNode(g, build); got != "build" {
		t.Errorf("JobNameForNode(build) = %q, want %q", got, "build")
	}
	testAmd64, _ := g.Lookup("ci", "test", "amd64")
	if got := JobNameForNode(g, testAmd64); got != "test_amd64" {
		t.Errorf("JobNameForNode(test@amd64) = %q, want %q", got, "test_amd64")
	}
}

func TestScalar_QuotesValuesThatNeedIt(t *testing.T) {
	cases := []struct {
		in         string
		wantQuoted bool
	}{
		{"plain", false},
		{"true", true},
		{"22.04", true},
		{"has: colon", true},
		{"", true},
	}
	for _, c := range cases {
		n := Scalar(c.in)
		gotQuoted := n.Style == yaml.DoubleQuotedStyle
		if gotQuoted != c.wantQuoted {
			t.Errorf("Scalar(%q).Style quoted = %v, want %v", c.in, gotQuoted, c.wantQuoted)
		}
	}
}

func TestSortedMap_OrdersKeysLexically(t *testing.T) {
	n := SortedMap(map[string]*yaml.Node{
		"zebra": Scalar("1"),
		"alpha": Scalar("2"),
		"mid":   Scalar("3"),
	})
	var keys []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	want := []string{"alpha", "mid", "zebra"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("SortedMap() key order = %v, want %v", keys, want)
		}
	}
}

func TestDocument_ProducesDeterministicBytes(t *testing.T) {
	build := func() []byte {
		root := Map(Scalar("a"), Scalar("1"), Scalar("b"), Scalar("2"))
		out, err := Document(root)
		if err != nil {
			t.Fatalf("Document: %v", err)
		}
		return out
	}
	a, b := build(), build()
	if string(a) != string(b) {
		t.Fatalf("Document() not deterministic: %q vs %q", a, b)
	}
}
