package graph

// Edge is a static, unconditional connection between two nodes: whenever
// From just ran, To is always part of the candidate next frontier (see
// graph/router).
type Edge struct {
	From NodeKind
	To   NodeKind
}

// ConditionalPredicate evaluates a StateSnapshot and returns the names of
// zero or more target nodes to route to. Predicates must be pure and
// deterministic: the router is a pure function of (snapshot, just-ran set),
// and a non-deterministic predicate breaks that guarantee (see spec.md §9,
// Open Questions).
//
// Names that don't resolve to a registered node (or Start/End) are skipped
// with a warning diagnostic; they do not fail routing.
type ConditionalPredicate func(snapshot StateSnapshot) []string

// ConditionalEdge attaches a predicate to a source node. Unlike Edge, the
// destination is resolved dynamically, once per superstep, by evaluating
// Predicate against that step's snapshot.
type ConditionalEdge struct {
	From      NodeKind
	Predicate ConditionalPredicate
}
