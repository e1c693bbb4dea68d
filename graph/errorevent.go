package graph

import "time"

// ErrorEvent is a structured, non-fatal diagnostic a node can attach to the
// errors channel to describe a recoverable problem without aborting the
// graph. It is distinct from NodeError, which is fatal and surfaces through
// the runner (see errors.go).
type ErrorEvent struct {
	// Scope names the subsystem or node that produced the diagnostic,
	// e.g. "node:validate" or "router".
	Scope string `json:"scope"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`

	// When is the time the diagnostic was produced.
	When time.Time `json:"when"`

	// Tags carries free-form structured context (node id, retry count, ...).
	Tags map[string]string `json:"tags,omitempty"`
}

// NewErrorEvent builds an ErrorEvent stamped with the current time.
func NewErrorEvent(scope, message string, tags map[string]string) ErrorEvent {
	return ErrorEvent{
		Scope:   scope,
		Message: message,
		When:    nowFunc(),
		Tags:    tags,
	}
}

// nowFunc is indirected so tests can substitute a deterministic clock.
var nowFunc = time.Now
