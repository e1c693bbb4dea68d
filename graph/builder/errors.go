package builder

import "strings"

// ViolationKind enumerates the named compilation failure variants from
// spec.md §4.2.
type ViolationKind string

const (
	MissingEntry               ViolationKind = "missing_entry"
	UnknownNode                ViolationKind = "unknown_node"
	DuplicateNode              ViolationKind = "duplicate_node"
	AttemptedToRegisterVirtual ViolationKind = "attempted_to_register_virtual"
	DuplicateEdge              ViolationKind = "duplicate_edge"
	UnreachableNode            ViolationKind = "unreachable_node"
	NoTerminal                 ViolationKind = "no_terminal"
	Cycle                      ViolationKind = "cycle"
)

// Violation is a single compilation failure, naming the offending node (and,
// for DuplicateEdge, the edge's other endpoint).
type Violation struct {
	Kind     ViolationKind
	NodeName string
	Other    string
}

func (v Violation) String() string {
	switch v.Kind {
	case DuplicateEdge:
		return string(v.Kind) + ": " + v.NodeName + " -> " + v.Other
	case MissingEntry:
		return string(v.Kind)
	default:
		return string(v.Kind) + ": " + v.NodeName
	}
}

// CompileError aggregates every violation detected during Compile.
type CompileError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "graph compile failed: " + strings.Join(parts, "; ")
}

// Has reports whether the error contains at least one violation of kind.
func (e *CompileError) Has(kind ViolationKind) bool {
	for _, v := range e.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}
