// Package router computes the next superstep's frontier from a compiled
// graph, a state snapshot, and the set of nodes that just ran. Routing is a
// pure function of its inputs: see spec.md §4.3.
package router

import (
	"sort"

	"github.com/weavegraph/weavegraph/graph"
	"github.com/weavegraph/weavegraph/graph/builder"
)

// Frontier is the result of one routing pass.
type Frontier struct {
	// Targets is the deduplicated set of nodes to run next, in no
	// particular order (set semantics; callers must not rely on order).
	Targets []graph.NodeKind

	// Terminated is true if End was among the resolved targets: the
	// session finishes after the step currently being scheduled.
	Terminated bool

	// Warnings carries one message per unresolved target name encountered,
	// for diagnostic emission by the caller.
	Warnings []string
}

// Entry computes the step-0 frontier: the targets of Start's out-edges.
func Entry(g *builder.CompiledGraph) Frontier {
	targets := g.EntryFrontier()
	return dedup(targets, nil)
}

// Route computes the next frontier given the nodes that just ran in the
// prior step. justRan must not include Start or End.
func Route(g *builder.CompiledGraph, snapshot graph.StateSnapshot, justRan []graph.NodeKind) Frontier {
	var names []string
	var warnings []string

	for _, n := range justRan {
		for _, target := range g.StaticOutEdges(n.Name()) {
			names = append(names, target.Name())
		}
		for _, predicate := range g.ConditionalPredicates(n.Name()) {
			names = append(names, predicate(snapshot)...)
		}
	}

	var resolved []graph.NodeKind
	for _, name := range names {
		kind, ok := resolveName(g, name)
		if !ok {
			warnings = append(warnings, "router: unresolved target name "+name)
			continue
		}
		resolved = append(resolved, kind)
	}

	return dedup(resolved, warnings)
}

func resolveName(g *builder.CompiledGraph, name string) (graph.NodeKind, bool) {
	switch name {
	case graph.Start.Name():
		return graph.Start, true
	case graph.End.Name():
		return graph.End, true
	}
	if _, ok := g.Node(name); ok {
		return graph.Custom(name), true
	}
	return graph.NodeKind{}, false
}

func dedup(targets []graph.NodeKind, warnings []string) Frontier {
	seen := make(map[string]bool, len(targets))
	var out []graph.NodeKind
	terminated := false
	for _, t := range targets {
		if seen[t.Name()] {
			continue
		}
		seen[t.Name()] = true
		if t.IsEnd() {
			terminated = true
		}
		out = append(out, t)
	}
	// Stable, deterministic ordering for callers that log or test the
	// frontier; routing itself treats Targets as a set.
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return Frontier{Targets: out, Terminated: terminated, Warnings: warnings}
}
