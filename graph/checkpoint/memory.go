package checkpoint

import (
	"context"
	"sort"
	"sync"
)

// MemoryCheckpointer keeps only the latest checkpoint per session, in
// process memory. Grounded on the teacher's store.MemStore map+mutex
// design, trimmed to the latest-only semantics spec.md §4.7 calls for in
// its in-memory implementation (full step history is the SQL backends'
// job).
type MemoryCheckpointer struct {
	mu     sync.RWMutex
	latest map[string]Checkpoint
}

// NewMemoryCheckpointer returns an empty MemoryCheckpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{latest: make(map[string]Checkpoint)}
}

func (m *MemoryCheckpointer) LoadLatest(_ context.Context, sessionID string) (Checkpoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.latest[sessionID]
	if !ok {
		return Checkpoint{}, false, nil
	}
	return cloneCheckpoint(cp), true, nil
}

func (m *MemoryCheckpointer) Save(_ context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[cp.SessionID] = cloneCheckpoint(cp)
	return nil
}

// ListSteps returns the single latest checkpoint wrapped in a slice if it
// falls within [from, to] (or unconditionally for the zero-value full-range
// query), since MemoryCheckpointer retains no earlier history.
func (m *MemoryCheckpointer) ListSteps(_ context.Context, sessionID string, from, to int) ([]Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.latest[sessionID]
	if !ok {
		return nil, nil
	}
	if from == 0 && to == 0 {
		return []Checkpoint{cloneCheckpoint(cp)}, nil
	}
	if cp.Step < from || cp.Step > to {
		return nil, nil
	}
	return []Checkpoint{cloneCheckpoint(cp)}, nil
}

func (m *MemoryCheckpointer) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.latest, sessionID)
	return nil
}

// sessionIDs returns every session currently tracked, sorted, for tests
// that want to assert on the checkpointer's full known-session set.
func (m *MemoryCheckpointer) sessionIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.latest))
	for id := range m.latest {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
