package checkpoint

import (
	"context"
	"testing"

	"github.com/weavegraph/weavegraph/graph"
)

func sampleCheckpoint(sessionID string, step int) Checkpoint {
	state := graph.NewVersionedState()
	state.Messages.Items = append(state.Messages.Items, graph.NewUserMessage("hi"))
	state.Messages.Version = 1
	seen := graph.NewVersionsSeen()
	seen.Record("greet", graph.ChannelMessages, 1)
	return Checkpoint{
		SessionID:    sessionID,
		Step:         step,
		State:        state,
		Frontier:     []graph.NodeKind{graph.Custom("greet")},
		VersionsSeen: seen,
		RanNodes:     []graph.NodeKind{graph.Custom("greet")},
	}
}

func TestMemoryCheckpointerLoadLatestMissingSession(t *testing.T) {
	m := NewMemoryCheckpointer()
	_, ok, err := m.LoadLatest(context.Background(), "s1")
	if err != nil || ok {
		t.Fatalf("expected ok=false, err=nil for unknown session, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryCheckpointerSaveAndLoadLatestRoundtrips(t *testing.T) {
	m := NewMemoryCheckpointer()
	ctx := context.Background()
	if err := m.Save(ctx, sampleCheckpoint("s1", 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := m.Save(ctx, sampleCheckpoint("s1", 2)); err != nil {
		t.Fatalf("save: %v", err)
	}

	cp, ok, err := m.LoadLatest(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected to load latest, got ok=%v err=%v", ok, err)
	}
	if cp.Step != 2 {
		t.Errorf("expected latest step 2, got %d", cp.Step)
	}
	if len(cp.State.Messages.Items) != 1 || cp.State.Messages.Items[0].Content != "hi" {
		t.Errorf("expected state to round-trip, got %+v", cp.State.Messages.Items)
	}
}

func TestMemoryCheckpointerLoadLatestIsACopy(t *testing.T) {
	m := NewMemoryCheckpointer()
	ctx := context.Background()
	must(t, m.Save(ctx, sampleCheckpoint("s1", 1)))

	cp, _, _ := m.LoadLatest(ctx, "s1")
	cp.State.Messages.Items[0] = graph.NewUserMessage("mutated")

	fresh, _, _ := m.LoadLatest(ctx, "s1")
	if fresh.State.Messages.Items[0].Content != "hi" {
		t.Error("expected LoadLatest to return an independent copy, mutation leaked into stored checkpoint")
	}
}

func TestMemoryCheckpointerDeleteSession(t *testing.T) {
	m := NewMemoryCheckpointer()
	ctx := context.Background()
	must(t, m.Save(ctx, sampleCheckpoint("s1", 1)))
	must(t, m.Save(ctx, sampleCheckpoint("s2", 1)))

	must(t, m.DeleteSession(ctx, "s1"))

	if ids := m.sessionIDs(); len(ids) != 1 || ids[0] != "s2" {
		t.Errorf("expected only s2 to remain, got %v", ids)
	}
	if _, ok, _ := m.LoadLatest(ctx, "s1"); ok {
		t.Error("expected s1 to be gone after DeleteSession")
	}
}

func TestMemoryCheckpointerListStepsReturnsLatestOnly(t *testing.T) {
	m := NewMemoryCheckpointer()
	ctx := context.Background()
	must(t, m.Save(ctx, sampleCheckpoint("s1", 5)))

	steps, err := m.ListSteps(ctx, "s1", 0, 0)
	if err != nil || len(steps) != 1 || steps[0].Step != 5 {
		t.Fatalf("expected [step 5], got %v err=%v", steps, err)
	}

	steps, err = m.ListSteps(ctx, "s1", 1, 4)
	if err != nil || len(steps) != 0 {
		t.Fatalf("expected no steps in range [1,4], got %v err=%v", steps, err)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
