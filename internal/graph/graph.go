// Package graph builds and validates the job DAG described in spec.md
// §4.5: nodes are (workflow, job, arch) triples, edges are AND/OR
// dependency relations. Per spec.md §9 the graph is represented as a flat
// node slice indexed by NodeId with a separate edge slice — never
// mutually-referenced objects — the same flat-registration style as the
// teacher's build.Engine registry (src/build/engine.go).
package graph

import "fmt"

// NodeId indexes Graph.Nodes.
type NodeId int

// Node is one (workflow, job, arch) expansion of a Job.
type Node struct {
	ID       NodeId
	Workflow string
	Job      string
	Arch     string
	Stage    string
}

// Key returns the node's identity triple as a string, used for dedup and
// diagnostics.
func (n Node) Key() string { return fmt.Sprintf("%s/%s@%s", n.Workflow, n.Job, n.Arch) }

// EdgeKind discriminates AND (requires) from OR (requires_any) edges.
type EdgeKind int

const (
	EdgeAnd EdgeKind = iota
	EdgeOr
)

// Edge is a dependency relation between two nodes. For EdgeOr edges, all
// edges sharing the same (To, GroupID) form one OR set — the target
// becomes ready when any one of them is satisfied.
type Edge struct {
	From    NodeId
	To      NodeId
	Kind    EdgeKind
	GroupID int // OR-set identity; unused for EdgeAnd
}

// Graph is the validated, expanded job DAG for one Config.
type Graph struct {
	Nodes []Node
	Edges []Edge

	byKey map[string]NodeId
}

func newGraph() *Graph {
	return &Graph{byKey: map[string]NodeId{}}
}

func (g *Graph) addNode(n Node) NodeId {
	n.ID = NodeId(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	g.byKey[n.Key()] = n.ID
	return n.ID
}

// Lookup finds a node by its (workflow, job, arch) identity.
func (g *Graph) Lookup(workflow, job, arch string) (NodeId, bool) {
	id, ok := g.byKey[Node{Workflow: workflow, Job: job, Arch: arch}.Key()]
	return id, ok
}

// NodesFor returns every node belonging to (workflow, job) across all
// expanded architectures.
func (g *Graph) NodesFor(workflow, job string) []NodeId {
	var ids []NodeId
	for _, n := range g.Nodes {
		if n.Workflow == workflow && n.Job == job {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// AndDeps returns the AND-edge sources that point at `to`.
func (g *Graph) AndDeps(to NodeId) []NodeId {
	var ids []NodeId
	for _, e := range g.Edges {
		if e.To == to && e.Kind == EdgeAnd {
			ids = append(ids, e.From)
		}
	}
	return ids
}

// OrGroups returns the OR-edge sources that point at `to`, grouped by
// GroupID in declaration order.
func (g *Graph) OrGroups(to NodeId) map[int][]NodeId {
	groups := map[int][]NodeId{}
	for _, e := range g.Edges {
		if e.To == to && e.Kind == EdgeOr {
			groups[e.GroupID] = append(groups[e.GroupID], e.From)
		}
	}
	return groups
}
