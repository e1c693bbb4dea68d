// Package emit provides the Weavegraph event bus: a process-wide,
// per-runner broadcast hub that streams node/diagnostic/LLM events to
// pluggable sinks without ever blocking the pipeline on a slow consumer.
package emit

import "time"

// Kind distinguishes the three event families the bus carries.
type Kind string

const (
	// KindNode marks a node execution lifecycle event.
	KindNode Kind = "node"

	// KindDiagnostic marks a scope/message diagnostic, including the
	// reserved stream-end sentinel (see StreamEndScope).
	KindDiagnostic Kind = "diagnostic"

	// KindLLM marks an opaque LLM streaming payload. Weavegraph's core
	// never interprets the payload; integrators define its shape.
	KindLLM Kind = "llm"
)

// Node lifecycle phases.
const (
	PhaseStart    = "start"
	PhaseComplete = "complete"
)

// StreamEndScope is the reserved diagnostic scope emitted exactly once,
// as the final event of a run, by invoke_streaming-style entry points.
// Streaming consumers use it as a terminator.
const StreamEndScope = "__stream_end__"

// Event is the single wire type the bus carries. Which fields are
// meaningful depends on Kind: Node events set NodeID/Step/Phase,
// Diagnostic events set Scope/Message, LLM events set Payload.
type Event struct {
	Kind Kind `json:"kind"`

	// SessionID identifies the run that produced this event.
	SessionID string `json:"session_id"`

	// Step is the superstep number, or zero for session-level events.
	Step int `json:"step"`

	// NodeID identifies the node, for Kind == KindNode.
	NodeID string `json:"node_id,omitempty"`

	// Phase is PhaseStart or PhaseComplete, for Kind == KindNode.
	Phase string `json:"phase,omitempty"`

	// Scope and Message carry a diagnostic, for Kind == KindDiagnostic.
	Scope   string `json:"scope,omitempty"`
	Message string `json:"message,omitempty"`

	// Payload carries an opaque LLM token/chunk/final value, for
	// Kind == KindLLM. The core never inspects it.
	Payload any `json:"payload,omitempty"`

	// Meta carries free-form structured context common to all kinds
	// (duration, error detail, checkpoint id, ...).
	Meta map[string]any `json:"meta,omitempty"`

	// When records when the event was published.
	When time.Time `json:"when"`
}

// NewNodeEvent builds a KindNode event.
func NewNodeEvent(sessionID string, step int, nodeID, phase string) Event {
	return Event{Kind: KindNode, SessionID: sessionID, Step: step, NodeID: nodeID, Phase: phase, When: timeNow()}
}

// NewDiagnosticEvent builds a KindDiagnostic event.
func NewDiagnosticEvent(sessionID string, step int, scope, message string) Event {
	return Event{Kind: KindDiagnostic, SessionID: sessionID, Step: step, Scope: scope, Message: message, When: timeNow()}
}

// NewStreamEndEvent builds the reserved stream-end sentinel for sessionID.
func NewStreamEndEvent(sessionID string, step int) Event {
	return NewDiagnosticEvent(sessionID, step, StreamEndScope, "stream complete")
}

// NewLLMEvent builds a KindLLM event carrying an opaque payload.
func NewLLMEvent(sessionID string, step int, payload any) Event {
	return Event{Kind: KindLLM, SessionID: sessionID, Step: step, Payload: payload, When: timeNow()}
}

// IsStreamEnd reports whether e is the reserved stream-end sentinel.
func (e Event) IsStreamEnd() bool {
	return e.Kind == KindDiagnostic && e.Scope == StreamEndScope
}
