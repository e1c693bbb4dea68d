// Package builder provides the mutable GraphBuilder used to register nodes
// and edges, and the compiler that validates and freezes a builder into an
// immutable CompiledGraph.
package builder

import (
	"sort"
	"sync"

	"github.com/weavegraph/weavegraph/graph"
)

// GraphBuilder accumulates node registrations and edges before compilation.
// It is safe for concurrent use during the registration phase, mirroring the
// mutex-guarded accumulation style of a typical workflow engine builder.
type GraphBuilder struct {
	mu sync.Mutex

	nodes      map[string]graph.Node
	nodeOrder  []string
	staticEdge []graph.Edge
	condEdge   []graph.ConditionalEdge
}

// New returns an empty GraphBuilder.
func New() *GraphBuilder {
	return &GraphBuilder{
		nodes: make(map[string]graph.Node),
	}
}

// AddNode registers node under kind. Calling AddNode with graph.Start or
// graph.End is rejected: those are structural endpoints, never executed.
func (b *GraphBuilder) AddNode(kind graph.NodeKind, node graph.Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if kind.IsVirtual() {
		return &CompileError{Violations: []Violation{{Kind: AttemptedToRegisterVirtual, NodeName: kind.Name()}}}
	}
	name := kind.Name()
	if name == "" {
		return &CompileError{Violations: []Violation{{Kind: UnknownNode, NodeName: name}}}
	}
	if _, exists := b.nodes[name]; exists {
		return &CompileError{Violations: []Violation{{Kind: DuplicateNode, NodeName: name}}}
	}
	if node == nil {
		return &CompileError{Violations: []Violation{{Kind: UnknownNode, NodeName: name}}}
	}

	b.nodes[name] = node
	b.nodeOrder = append(b.nodeOrder, name)
	return nil
}

// AddEdge registers a static edge from -> to. from may be graph.Start; to may
// be graph.End.
func (b *GraphBuilder) AddEdge(from, to graph.NodeKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addEdgeLocked(from, to)
}

func (b *GraphBuilder) addEdgeLocked(from, to graph.NodeKind) error {
	for _, e := range b.staticEdge {
		if e.From.Equal(from) && e.To.Equal(to) {
			return &CompileError{Violations: []Violation{{
				Kind: DuplicateEdge, NodeName: from.Name(), Other: to.Name(),
			}}}
		}
	}
	b.staticEdge = append(b.staticEdge, graph.Edge{From: from, To: to})
	return nil
}

// AddConditionalEdge attaches predicate to from. Its return values are
// resolved to target NodeKinds at routing time (see graph/router).
func (b *GraphBuilder) AddConditionalEdge(from graph.NodeKind, predicate graph.ConditionalPredicate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.condEdge = append(b.condEdge, graph.ConditionalEdge{From: from, Predicate: predicate})
	return nil
}

// SetEntry designates name (a previously- or later-registered custom node) as
// a target of Start's out-edge. It is sugar over AddEdge(graph.Start,
// graph.Custom(name)); calling it more than once adds additional entry
// targets rather than replacing the prior one.
func (b *GraphBuilder) SetEntry(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if name == "" {
		return &CompileError{Violations: []Violation{{Kind: MissingEntry}}}
	}
	return b.addEdgeLocked(graph.Start, graph.Custom(name))
}

// Compile validates the accumulated graph and, if valid, freezes it into a
// CompiledGraph. All detected violations are aggregated into a single
// *CompileError rather than failing on the first one found.
func (b *GraphBuilder) Compile() (*CompiledGraph, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var violations []Violation

	var entryTargets []string
	for _, e := range b.staticEdge {
		if e.From.IsStart() {
			entryTargets = append(entryTargets, e.To.Name())
		}
	}
	if len(entryTargets) == 0 {
		violations = append(violations, Violation{Kind: MissingEntry})
	}

	known := func(name string) bool {
		if name == graph.Start.Name() || name == graph.End.Name() {
			return true
		}
		_, ok := b.nodes[name]
		return ok
	}

	for _, e := range b.staticEdge {
		if !e.From.IsVirtual() && !known(e.From.Name()) {
			violations = append(violations, Violation{Kind: UnknownNode, NodeName: e.From.Name()})
		}
		if !e.To.IsVirtual() && !known(e.To.Name()) {
			violations = append(violations, Violation{Kind: UnknownNode, NodeName: e.To.Name()})
		}
	}
	for _, ce := range b.condEdge {
		if !ce.From.IsVirtual() && !known(ce.From.Name()) {
			violations = append(violations, Violation{Kind: UnknownNode, NodeName: ce.From.Name()})
		}
	}

	// Build adjacency for reachability (from Start) and co-reachability (to
	// End) analysis. Conditional edges are treated as present for both
	// analyses: a predicate may or may not fire at runtime, so a node reached
	// only conditionally is still statically reachable.
	adj := make(map[string][]string)
	radj := make(map[string][]string)
	addAdj := func(from, to string) {
		adj[from] = append(adj[from], to)
		radj[to] = append(radj[to], from)
	}
	for _, e := range b.staticEdge {
		addAdj(e.From.Name(), e.To.Name())
	}
	// Conditional edges only declare a source; without evaluating the
	// predicate the possible targets are unknown, so a conditional source is
	// treated as having an edge to every registered node and to End.
	for _, ce := range b.condEdge {
		for _, name := range b.nodeOrder {
			addAdj(ce.From.Name(), name)
		}
		addAdj(ce.From.Name(), graph.End.Name())
	}

	reachableFromStart := bfs(adj, graph.Start.Name())
	reachableToEnd := bfs(radj, graph.End.Name())

	for _, name := range b.nodeOrder {
		if !reachableFromStart[name] {
			violations = append(violations, Violation{Kind: UnreachableNode, NodeName: name})
		}
		if !reachableToEnd[name] && !hasConditionalOut(b.condEdge, name) {
			violations = append(violations, Violation{Kind: NoTerminal, NodeName: name})
		}
	}

	if cyc := findUnbreakableCycle(b.nodeOrder, b.staticEdge, b.condEdge); cyc != "" {
		violations = append(violations, Violation{Kind: Cycle, NodeName: cyc})
	}

	if len(violations) > 0 {
		return nil, &CompileError{Violations: violations}
	}

	nodes := make(map[string]graph.Node, len(b.nodes))
	for k, v := range b.nodes {
		nodes[k] = v
	}
	staticAdj := make(map[string][]graph.NodeKind)
	for _, e := range b.staticEdge {
		staticAdj[e.From.Name()] = append(staticAdj[e.From.Name()], e.To)
	}
	condByName := make(map[string][]graph.ConditionalPredicate)
	for _, ce := range b.condEdge {
		condByName[ce.From.Name()] = append(condByName[ce.From.Name()], ce.Predicate)
	}

	entry := make([]graph.NodeKind, len(entryTargets))
	for i, name := range entryTargets {
		entry[i] = graph.Custom(name)
	}

	return &CompiledGraph{
		nodes:       nodes,
		staticAdj:   staticAdj,
		conditional: condByName,
		entry:       entry,
	}, nil
}

func bfs(adj map[string][]string, start string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range adj[n] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

func hasConditionalOut(condEdge []graph.ConditionalEdge, name string) bool {
	for _, ce := range condEdge {
		if ce.From.Name() == name {
			return true
		}
	}
	return false
}

// findUnbreakableCycle reports the name of a node participating in a cycle
// made up entirely of static edges (no conditional edge able to break it),
// or "" if none exists. Conditional edges are assumed breakable: the
// predicate may choose not to re-enter the cycle.
func findUnbreakableCycle(order []string, staticEdge []graph.Edge, condEdge []graph.ConditionalEdge) string {
	staticAdj := make(map[string][]string)
	hasCond := make(map[string]bool)
	for _, e := range staticEdge {
		if e.From.IsVirtual() || e.To.IsVirtual() {
			continue
		}
		staticAdj[e.From.Name()] = append(staticAdj[e.From.Name()], e.To.Name())
	}
	for _, ce := range condEdge {
		hasCond[ce.From.Name()] = true
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var found string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		targets := append([]string{}, staticAdj[n]...)
		sort.Strings(targets)
		for _, next := range targets {
			if hasCond[n] {
				// n also has a conditional out-edge; the static cycle
				// through it is considered breakable.
				continue
			}
			switch color[next] {
			case gray:
				found = next
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	sorted := append([]string{}, order...)
	sort.Strings(sorted)
	for _, n := range sorted {
		if color[n] == white {
			if visit(n) {
				return found
			}
		}
	}
	return ""
}
