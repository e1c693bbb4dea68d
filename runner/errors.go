package runner

import "fmt"

// RunnerError is the structured runtime failure a Runner surfaces once a
// session can no longer proceed, per spec.md §7.
type RunnerError struct {
	// Kind is one of the RunnerError* constants below.
	Kind string

	// SessionID identifies the session that failed.
	SessionID string

	// Step is the superstep during which the failure occurred, or 0 if
	// not applicable.
	Step int

	// NodeID identifies the offending node, for RunnerErrorNodeFailed.
	NodeID string

	// Cause is the underlying error, if any.
	Cause error
}

// RunnerError kinds, per spec.md §7.
const (
	RunnerErrorNodeFailed       = "node_failed"
	RunnerErrorBarrierFailed    = "barrier_failed"
	RunnerErrorCheckpointFailed = "checkpoint_failed"
	RunnerErrorCancelled        = "cancelled"
	RunnerErrorTimeout          = "timeout"
)

// Error implements the error interface.
func (e *RunnerError) Error() string {
	msg := fmt.Sprintf("runner: %s: session=%s", e.Kind, e.SessionID)
	if e.Step > 0 {
		msg += fmt.Sprintf(" step=%d", e.Step)
	}
	if e.NodeID != "" {
		msg += " node=" + e.NodeID
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, enabling errors.Is/errors.As chains.
func (e *RunnerError) Unwrap() error { return e.Cause }

// NodeFailed builds a RunnerError for a fatal NodeError under FailAbort.
func NodeFailed(sessionID string, step int, nodeID string, cause error) *RunnerError {
	return &RunnerError{Kind: RunnerErrorNodeFailed, SessionID: sessionID, Step: step, NodeID: nodeID, Cause: cause}
}

// BarrierFailedErr builds a RunnerError for a panicking reducer. Named
// with an Err suffix to avoid colliding with the barrier package's own
// Merge semantics (Merge itself cannot fail; this is for the recover()
// path around it in the step loop).
func BarrierFailedErr(sessionID string, step int, cause error) *RunnerError {
	return &RunnerError{Kind: RunnerErrorBarrierFailed, SessionID: sessionID, Step: step, Cause: cause}
}

// CheckpointFailed builds a RunnerError for a fatal checkpoint write
// failure (FailOnCheckpointError == true).
func CheckpointFailed(sessionID string, step int, cause error) *RunnerError {
	return &RunnerError{Kind: RunnerErrorCheckpointFailed, SessionID: sessionID, Step: step, Cause: cause}
}

// Cancelled builds a RunnerError for a session aborted or context-cancelled
// mid-run.
func Cancelled(sessionID string) *RunnerError {
	return &RunnerError{Kind: RunnerErrorCancelled, SessionID: sessionID}
}

// Timeout builds a RunnerError for a session whose per-step wall-clock
// budget was exceeded.
func Timeout(sessionID string, step int) *RunnerError {
	return &RunnerError{Kind: RunnerErrorTimeout, SessionID: sessionID, Step: step}
}
