package runner

import (
	"context"
	"sync"

	"github.com/weavegraph/weavegraph/graph"
)

// sessionState names a node in the per-session state machine described in
// spec.md §4.8.
type sessionState string

const (
	sessionCreated  sessionState = "created"
	sessionIdle     sessionState = "idle"
	sessionRunning  sessionState = "running"
	sessionFinished sessionState = "finished"
	sessionFailed   sessionState = "failed"
	sessionAborted  sessionState = "aborted"
)

// session is the runner's private bookkeeping for one session-id: its
// VersionedState, the versions-seen map that drives scheduler filtering,
// and the set of nodes that ran in the previous step (the router's
// justRan input). Fields are read and written under mu; Runner does not
// prevent two step loops for the same session id from running at once.
type session struct {
	mu sync.Mutex

	id           string
	state        sessionState
	vstate       *graph.VersionedState
	versionsSeen graph.VersionsSeen
	justRan      []graph.NodeKind
	step         int
	degraded     bool

	cancel context.CancelFunc
}

func newSession(id string, initial *graph.VersionedState) *session {
	if initial == nil {
		initial = graph.NewVersionedState()
	}
	return &session{
		id:           id,
		state:        sessionIdle,
		vstate:       initial,
		versionsSeen: graph.NewVersionsSeen(),
	}
}

func (s *session) setState(state sessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *session) currentState() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
