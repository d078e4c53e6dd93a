package graph

import (
	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/model"
)

// Build expands every job in cfg.Workflows over its architecture matrix
// and resolves requires/requires_any into edges, per spec.md §4.5.
// Diagnostics (unknown references, cross-stage edges, duplicate nodes) are
// accumulated in bag and returned alongside a best-effort graph; the
// caller aborts if bag.HasErrors().
func Build(cfg *model.Config, bag *diag.Bag) *Graph {
	g := newGraph()

	for wfName, wf := range cfg.Workflows {
		for jobID, job := range wf.Jobs {
			for _, arch := range archesFor(cfg, job) {
				if _, dup := g.Lookup(wfName, jobID, arch); dup {
					bag.Errorf(diag.Span{}, "GRAPH_DUPLICATE_NODE", "workflow %q job %q: duplicate node for arch %q", wfName, jobID, arch)
					continue
				}
				g.addNode(Node{Workflow: wfName, Job: jobID, Arch: arch, Stage: job.Stage})
			}
		}
	}

	for wfName, wf := range cfg.Workflows {
		for jobID, job := range wf.Jobs {
			nodes := g.NodesFor(wfName, jobID)

			for _, reqID := range job.Requires {
				reqJob, ok := wf.Jobs[reqID]
				if !ok {
					bag.Errorf(diag.Span{}, "GRAPH_UNKNOWN_REF", "workflow %q job %q requires unknown job %q", wfName, jobID, reqID)
					continue
				}
				if reqJob.Stage != job.Stage {
					bag.Errorf(diag.Span{}, "GRAPH_CROSS_STAGE", "workflow %q job %q (stage %q) requires job %q in a different stage (%q): stages depend on stages, not jobs", wfName, jobID, job.Stage, reqID, reqJob.Stage)
					continue
				}
				connectAnd(g, wfName, reqID, nodes)
			}

			if len(job.RequiresAny) > 0 {
				groupID := len(g.Edges) // unique enough per OR declaration site
				anyResolved := false
				for _, reqID := range job.RequiresAny {
					srcWF := wfName
					if _, ok := wf.Jobs[reqID]; !ok {
						// spec.md §9 supplement: a requires_any source may
						// live outside the current workflow if it is
						// marked shared: true.
						found := false
						for otherWF, otherwf := range cfg.Workflows {
							if otherWF == wfName {
								continue
							}
							if oj, ok := otherwf.Jobs[reqID]; ok && oj.Shared {
								srcWF = otherWF
								found = true
								break
							}
						}
						if !found {
							bag.Warnf(diag.Span{}, "GRAPH_UNKNOWN_OR_SOURCE", "workflow %q job %q requires_any unknown job %q", wfName, jobID, reqID)
							continue
						}
					}
					connectOr(g, srcWF, reqID, nodes, groupID)
					anyResolved = true
				}
				if !anyResolved {
					bag.Errorf(diag.Span{}, "GRAPH_IMPOSSIBLE_OR", "workflow %q job %q: every requires_any source is unknown", wfName, jobID)
				}
			}
		}
	}

	if cycle := findCycle(g); cycle != "" {
		bag.Errorf(diag.Span{}, "GRAPH_CYCLE", "dependency cycle detected: %s", cycle)
	}

	return g
}

func archesFor(cfg *model.Config, job *model.Job) []string {
	if len(job.Architectures) > 0 {
		return job.Architectures
	}
	if len(cfg.Architectures) > 0 {
		return cfg.Architectures[:1]
	}
	return []string{""}
}

// connectAnd links every expanded node of the required job to every
// expanded node of the requiring job: per spec.md §4.5, "requires: [J]
// creates AND edges to every node of J within the same workflow stage" —
// the full cross product when either side expands over more than one
// architecture, narrowing naturally to a single edge when neither does.
func connectAnd(g *Graph, workflow, jobID string, targets []NodeId) {
	srcs := g.NodesFor(workflow, jobID)
	for _, to := range targets {
		for _, from := range srcs {
			g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: EdgeAnd})
		}
	}
}

func connectOr(g *Graph, workflow, jobID string, targets []NodeId, groupID int) {
	srcs := g.NodesFor(workflow, jobID)
	for _, to := range targets {
		for _, from := range srcs {
			g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: EdgeOr, GroupID: groupID})
		}
	}
}

// ValidateReferences checks cache/service/command references a job
// declares actually resolve within cfg, per spec.md §4.1's job invariant.
// Collected into bag rather than aborting immediately.
func ValidateReferences(cfg *model.Config, bag *diag.Bag) {
	for wfName, wf := range cfg.Workflows {
		for jobID, job := range wf.Jobs {
			for cacheName, decl := range job.Cache {
				ref := decl.Type
				if ref == "" {
					ref = cacheName
				}
				if _, ok := cfg.CacheDefs[ref]; !ok {
					bag.Errorf(diag.Span{}, "REF_UNKNOWN_CACHE", "workflow %q job %q: cache %q does not resolve", wfName, jobID, cacheName)
				}
			}
			for _, svc := range job.Services {
				if _, ok := cfg.Services[svc]; !ok {
					bag.Errorf(diag.Span{}, "REF_UNKNOWN_SERVICE", "workflow %q job %q: service %q does not resolve", wfName, jobID, svc)
				}
			}
			for _, step := range job.Steps {
				if step.Kind == model.StepKindUsesCommand {
					if _, ok := cfg.Commands[step.UsesCommand.Command]; !ok {
						bag.Errorf(diag.Span{}, "REF_UNKNOWN_COMMAND", "workflow %q job %q: command %q does not resolve", wfName, jobID, step.UsesCommand.Command)
					}
				}
			}
		}
	}
}
