package runner

import (
	"context"

	"github.com/weavegraph/weavegraph/graph"
)

// WorkflowHandle is returned by InvokeStreaming, InvokeWithChannel, and
// InvokeWithSinks: the session runs in a background goroutine, and the
// handle is the caller's means to wait for it or cut it short.
type WorkflowHandle struct {
	// SessionID identifies the session running in the background.
	SessionID string

	done   chan struct{}
	result *graph.VersionedState
	err    error
	runner *Runner
}

// Join blocks until the session reaches a terminal state or ctx is done,
// whichever comes first, and returns the final state plus any RunnerError
// the session terminated with.
func (h *WorkflowHandle) Join(ctx context.Context) (*graph.VersionedState, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Abort signals the session's cancellation token; in-flight node tasks
// receive cooperative cancellation (see spec.md §5).
func (h *WorkflowHandle) Abort() error {
	return h.runner.Abort(h.SessionID)
}
