package checkpoint

import (
	"context"
	"testing"

	"github.com/weavegraph/weavegraph/graph"
)

func newTestSQLiteCheckpointer(t *testing.T) *SQLiteCheckpointer {
	t.Helper()
	c, err := NewSQLiteCheckpointer(":memory:")
	if err != nil {
		t.Fatalf("failed to create test checkpointer: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSQLiteCheckpointerLoadLatestMissingSession(t *testing.T) {
	c := newTestSQLiteCheckpointer(t)
	_, ok, err := c.LoadLatest(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("expected ok=false, err=nil for unknown session, got ok=%v err=%v", ok, err)
	}
}

func TestSQLiteCheckpointerSaveAndLoadLatestRoundtrips(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCheckpointer(t)

	must(t, c.Save(ctx, sampleCheckpoint("run-1", 1)))
	must(t, c.Save(ctx, sampleCheckpoint("run-1", 2)))

	cp, ok, err := c.LoadLatest(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("expected latest checkpoint, got ok=%v err=%v", ok, err)
	}
	if cp.Step != 2 {
		t.Errorf("expected latest step 2, got %d", cp.Step)
	}
	if len(cp.State.Messages.Items) != 1 || cp.State.Messages.Items[0].Content != "hi" {
		t.Errorf("expected state to round-trip, got %+v", cp.State.Messages.Items)
	}
	seen, observed := cp.VersionsSeen.Observed("greet", graph.ChannelMessages)
	if !observed || seen != 1 {
		t.Errorf("expected versions_seen to round-trip, got seen=%d observed=%v", seen, observed)
	}
}

func TestSQLiteCheckpointerOutOfOrderSavesLastSaveBecomesLatest(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCheckpointer(t)

	must(t, c.Save(ctx, sampleCheckpoint("run-1", 5)))
	must(t, c.Save(ctx, sampleCheckpoint("run-1", 3)))

	cp, ok, err := c.LoadLatest(ctx, "run-1")
	if err != nil || !ok || cp.Step != 3 {
		t.Fatalf("expected last Save (step 3) to be the new latest pointer, got step=%d ok=%v err=%v", cp.Step, ok, err)
	}
}

func TestSQLiteCheckpointerListStepsReturnsFullHistoryInOrder(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCheckpointer(t)

	for _, step := range []int{1, 2, 3} {
		must(t, c.Save(ctx, sampleCheckpoint("run-1", step)))
	}

	steps, err := c.ListSteps(ctx, "run-1", 0, 0)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i, step := range steps {
		if step.Step != i+1 {
			t.Errorf("expected step %d at index %d, got %d", i+1, i, step.Step)
		}
	}
}

func TestSQLiteCheckpointerListStepsRespectsRange(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCheckpointer(t)

	for _, step := range []int{1, 2, 3, 4} {
		must(t, c.Save(ctx, sampleCheckpoint("run-1", step)))
	}

	steps, err := c.ListSteps(ctx, "run-1", 2, 3)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != 2 || steps[0].Step != 2 || steps[1].Step != 3 {
		t.Fatalf("expected steps [2,3], got %v", steps)
	}
}

func TestSQLiteCheckpointerDeleteSessionCascadesSteps(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCheckpointer(t)

	must(t, c.Save(ctx, sampleCheckpoint("run-1", 1)))
	must(t, c.DeleteSession(ctx, "run-1"))

	if _, ok, _ := c.LoadLatest(ctx, "run-1"); ok {
		t.Error("expected session to be gone after DeleteSession")
	}
	steps, err := c.ListSteps(ctx, "run-1", 0, 0)
	if err != nil || len(steps) != 0 {
		t.Errorf("expected cascaded step deletion, got steps=%v err=%v", steps, err)
	}
}

func TestEncodeDecodeNodeKindRoundtrips(t *testing.T) {
	cases := []graph.NodeKind{graph.Start, graph.End, graph.Custom("greet")}
	for _, k := range cases {
		encoded := EncodeNodeKind(k)
		decoded, err := DecodeNodeKind(encoded)
		if err != nil {
			t.Fatalf("decode %q: %v", encoded, err)
		}
		if !decoded.Equal(k) {
			t.Errorf("expected round-trip for %v, got %v via %q", k, decoded, encoded)
		}
	}
}

func TestDecodeNodeKindRejectsUnknownEncoding(t *testing.T) {
	if _, err := DecodeNodeKind("bogus"); err == nil {
		t.Error("expected an error decoding an unrecognized node kind string")
	}
}
