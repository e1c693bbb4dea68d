package graph

import "context"

// Node is the contract every user computation implements. Run receives an
// immutable snapshot of shared state plus a per-invocation NodeContext, and
// returns either a NodePartial describing its contribution or a fatal
// NodeError.
//
// Nodes within the same superstep run concurrently: an implementation must
// not rely on ordering between sibling nodes and must not touch global
// mutable state exposed by the framework. Side effects are permitted, but
// emission via ctx.Emit is the only sanctioned channel for observability
// output — it is best-effort and must never panic or fail the node.
//
// If the runner cancels the session, in-flight Run calls receive
// cooperative cancellation through the supplied context.Context; a node
// that returns after cancellation has its result discarded by the
// runner, which does not merge a superstep whose context was cancelled.
type Node interface {
	Run(ctx context.Context, snapshot StateSnapshot, nctx NodeContext) (NodePartial, error)
}

// NodeFunc adapts a plain function to the Node interface, mirroring the
// common pattern of defining nodes as closures instead of named types.
type NodeFunc func(ctx context.Context, snapshot StateSnapshot, nctx NodeContext) (NodePartial, error)

// Run implements Node for NodeFunc.
func (f NodeFunc) Run(ctx context.Context, snapshot StateSnapshot, nctx NodeContext) (NodePartial, error) {
	return f(ctx, snapshot, nctx)
}

// EventEmitter is the minimal surface a NodeContext needs to let a node
// publish diagnostic events without importing the event bus package
// directly (which would create an import cycle with graph/emit). The bus's
// concrete type satisfies this interface.
type EventEmitter interface {
	EmitDiagnostic(scope, message string)
}

// NodeContext carries per-invocation metadata and the shared event emitter
// into a node's Run call.
type NodeContext struct {
	// NodeID is the Name() of the NodeKind currently executing.
	NodeID string

	// Step is the superstep number this invocation belongs to.
	Step int

	// SessionID identifies the session this invocation belongs to.
	SessionID string

	emitter EventEmitter
}

// NewNodeContext builds a NodeContext for one node invocation.
func NewNodeContext(sessionID, nodeID string, step int, emitter EventEmitter) NodeContext {
	return NodeContext{SessionID: sessionID, NodeID: nodeID, Step: step, emitter: emitter}
}

// Emit publishes a diagnostic event best-effort. It never panics: a nil
// emitter, or one that panics internally, is silently absorbed so node
// logic can call Emit unconditionally.
func (c NodeContext) Emit(scope, message string) {
	if c.emitter == nil {
		return
	}
	defer func() { _ = recover() }()
	c.emitter.EmitDiagnostic(scope, message)
}

// NodeError is the structured, fatal error a node returns to abort its
// current invocation. It carries enough context (which node, what kind of
// failure, and an optional cause) for the runner to report a precise
// RunnerError.
type NodeError struct {
	// Kind is one of the NodeError* constants below.
	Kind string

	// Reason is a human-readable explanation specific to this failure.
	Reason string

	// NodeID identifies the node that produced this error.
	NodeID string

	// Cause is the underlying error, if any (e.g. from a Provider call).
	Cause error
}

// NodeError kinds, per spec.md §4.1.
const (
	NodeErrorMissingInput     = "missing_input"
	NodeErrorValidationFailed = "validation_failed"
	NodeErrorProvider         = "provider"
	NodeErrorInternal         = "internal"
)

// Error implements the error interface.
func (e *NodeError) Error() string {
	msg := e.Kind + ": " + e.Reason
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause, enabling errors.Is/errors.As chains.
func (e *NodeError) Unwrap() error { return e.Cause }

// MissingInput builds a NodeError for an input the node required but did
// not find in the snapshot.
func MissingInput(nodeID, reason string) *NodeError {
	return &NodeError{Kind: NodeErrorMissingInput, Reason: reason, NodeID: nodeID}
}

// ValidationFailed builds a NodeError for input that failed validation.
func ValidationFailed(nodeID, reason string) *NodeError {
	return &NodeError{Kind: NodeErrorValidationFailed, Reason: reason, NodeID: nodeID}
}

// ProviderError builds a NodeError wrapping an external provider failure.
func ProviderError(nodeID string, cause error) *NodeError {
	return &NodeError{Kind: NodeErrorProvider, Reason: cause.Error(), NodeID: nodeID, Cause: cause}
}

// InternalError builds a NodeError for an unexpected internal failure.
func InternalError(nodeID string, cause error) *NodeError {
	reason := "internal error"
	if cause != nil {
		reason = cause.Error()
	}
	return &NodeError{Kind: NodeErrorInternal, Reason: reason, NodeID: nodeID, Cause: cause}
}
