package graph

import "testing"

func TestNewReducerRegistryHasDefaults(t *testing.T) {
	r := NewReducerRegistry()
	for _, ch := range []string{ChannelMessages, ChannelErrors, ChannelExtras} {
		if _, ok := r.Lookup(ch); !ok {
			t.Errorf("expected default reducer registered for %q", ch)
		}
	}
	if _, ok := r.Lookup("bogus"); ok {
		t.Error("expected no reducer for an unregistered channel")
	}
}

func TestRegisterOverridesChannel(t *testing.T) {
	r := NewReducerRegistry()
	custom := func(current any, updates []any) (any, bool) { return "custom", true }
	r.Register(ChannelExtras, custom)
	red, ok := r.Lookup(ChannelExtras)
	if !ok {
		t.Fatal("expected reducer present")
	}
	next, changed := red(nil, nil)
	if next != "custom" || !changed {
		t.Error("expected overridden reducer to be used")
	}
}

func TestMessagesReducerAppendsAndNoOpsOnEmpty(t *testing.T) {
	cur := []Message{NewUserMessage("a")}
	next, changed := MessagesReducer(cur, nil)
	if changed {
		t.Error("expected no-op on empty updates")
	}
	if gotSlice, _ := next.([]Message); len(gotSlice) != 1 {
		t.Error("expected current returned unmodified")
	}

	next, changed = MessagesReducer(cur, []any{[]Message{NewUserMessage("b")}})
	if !changed {
		t.Error("expected changed=true when updates are non-empty")
	}
	got := next.([]Message)
	if len(got) != 2 || got[1].Content != "b" {
		t.Errorf("unexpected merged messages: %+v", got)
	}
	// Original slice must not be mutated in place.
	if len(cur) != 1 {
		t.Error("reducer must not mutate its current input in place")
	}
}

func TestErrorsReducerAppends(t *testing.T) {
	cur := []ErrorEvent{NewErrorEvent("s", "m", nil)}
	next, changed := ErrorsReducer(cur, []any{[]ErrorEvent{NewErrorEvent("s2", "m2", nil)}})
	if !changed {
		t.Fatal("expected changed=true")
	}
	got := next.([]ErrorEvent)
	if len(got) != 2 {
		t.Errorf("expected 2 errors, got %d", len(got))
	}
}

func TestExtrasReducerLastWriterWinsInOrder(t *testing.T) {
	cur := map[string]any{"x": 1}
	next, changed := ExtrasReducer(cur, []any{
		map[string]any{"x": 2, "y": "a"},
		map[string]any{"x": 3},
	})
	if !changed {
		t.Fatal("expected changed=true")
	}
	got := next.(map[string]any)
	if got["x"] != 3 {
		t.Errorf("expected last writer (x=3) to win, got %v", got["x"])
	}
	if got["y"] != "a" {
		t.Errorf("expected y to survive from the earlier update, got %v", got["y"])
	}
	if cur["x"] != 1 {
		t.Error("reducer must not mutate its current input in place")
	}
}

func TestExtrasReducerNoOpOnEmptyUpdates(t *testing.T) {
	cur := map[string]any{"x": 1}
	next, changed := ExtrasReducer(cur, []any{map[string]any{}})
	if changed {
		t.Error("expected changed=false when no keys are actually written")
	}
	if next.(map[string]any)["x"] != 1 {
		t.Error("expected current returned when nothing changed")
	}
}
