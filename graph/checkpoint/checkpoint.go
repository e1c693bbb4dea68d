// Package checkpoint persists and restores session state: a Checkpointer
// captures (VersionedState, frontier, versions_seen) at every step boundary
// so a session can resume exactly where it left off. See spec.md §4.7.
package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/weavegraph/weavegraph/graph"
)

// ErrNotFound reports that a session or step range has no recorded
// checkpoint. The Checkpointers in this package do not return it:
// LoadLatest reports a missing session with ok == false, and ListSteps
// returns no checkpoints.
var ErrNotFound = errors.New("checkpoint: not found")

// Checkpoint is one recorded step boundary for a session: the state after
// the barrier merged that step's partials, the frontier computed for the
// next step, and the versions_seen map that drives the scheduler's
// ran/skipped decision on resume.
type Checkpoint struct {
	SessionID       string
	Step            int
	State           *graph.VersionedState
	Frontier        []graph.NodeKind
	VersionsSeen    graph.VersionsSeen
	RanNodes        []graph.NodeKind
	SkippedNodes    []graph.NodeKind
	UpdatedChannels []string
	ConcurrencyLimit int
	CreatedAt       time.Time
}

// Checkpointer is the persistence contract a runner uses to survive
// restarts: save a step, load the latest step to resume from, list a
// session's history, and clean up a finished session.
type Checkpointer interface {
	// LoadLatest returns the most recently saved checkpoint for sessionID.
	// ok is false (and Checkpoint the zero value) if the session has never
	// been saved.
	LoadLatest(ctx context.Context, sessionID string) (cp Checkpoint, ok bool, err error)

	// Save persists cp. Implementations must make the "latest" pointer and
	// the step record visible atomically: a concurrent LoadLatest never
	// observes a step insert without the corresponding latest-pointer
	// update, or vice versa.
	Save(ctx context.Context, cp Checkpoint) error

	// ListSteps returns every checkpoint recorded for sessionID with step
	// numbers in [from, to], ordered by step ascending. A zero-value range
	// (from == 0 && to == 0) returns the full history.
	ListSteps(ctx context.Context, sessionID string, from, to int) ([]Checkpoint, error)

	// DeleteSession removes every checkpoint recorded for sessionID.
	DeleteSession(ctx context.Context, sessionID string) error
}

// cloneCheckpoint deep-copies cp so a caller holding a reference to a
// checkpoint already handed to Save cannot mutate what a Checkpointer has
// stored (or vice versa for LoadLatest/ListSteps results).
func cloneCheckpoint(cp Checkpoint) Checkpoint {
	out := cp
	if cp.State != nil {
		out.State = &graph.VersionedState{
			Messages: cp.State.Messages.Snapshot(),
			Errors:   cp.State.Errors.Snapshot(),
			Extras:   cp.State.Extras.Snapshot(),
		}
	}
	out.Frontier = append([]graph.NodeKind(nil), cp.Frontier...)
	out.RanNodes = append([]graph.NodeKind(nil), cp.RanNodes...)
	out.SkippedNodes = append([]graph.NodeKind(nil), cp.SkippedNodes...)
	out.UpdatedChannels = append([]string(nil), cp.UpdatedChannels...)
	out.VersionsSeen = cp.VersionsSeen.Clone()
	return out
}
