package builder

import "github.com/weavegraph/weavegraph/graph"

// CompiledGraph is the frozen, immutable result of a successful Compile. It
// is safe for concurrent read access by any number of sessions: the router
// and scheduler never mutate it.
type CompiledGraph struct {
	nodes       map[string]graph.Node
	staticAdj   map[string][]graph.NodeKind
	conditional map[string][]graph.ConditionalPredicate
	entry       []graph.NodeKind
}

// Node returns the node registered under name, and whether it exists.
func (g *CompiledGraph) Node(name string) (graph.Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// StaticOutEdges returns the static out-edge targets of the node named from.
func (g *CompiledGraph) StaticOutEdges(from string) []graph.NodeKind {
	return g.staticAdj[from]
}

// ConditionalPredicates returns the conditional predicates attached to the
// node named from.
func (g *CompiledGraph) ConditionalPredicates(from string) []graph.ConditionalPredicate {
	return g.conditional[from]
}

// EntryFrontier returns the entry nodes targeted by Start's out-edges: the
// step-0 frontier per spec.md §4.3.
func (g *CompiledGraph) EntryFrontier() []graph.NodeKind {
	out := make([]graph.NodeKind, len(g.entry))
	copy(out, g.entry)
	return out
}

// Nodes returns every registered custom node name, for diagnostics and
// checkpoint validation.
func (g *CompiledGraph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		out = append(out, name)
	}
	return out
}
