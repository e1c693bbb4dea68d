package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestStdoutSinkWritesNodeLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStdoutSink(&buf)
	err := sink.Handle(NewNodeEvent("s1", 1, "greet", PhaseComplete))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(buf.String(), "greet") || !strings.Contains(buf.String(), "complete") {
		t.Errorf("unexpected stdout line: %q", buf.String())
	}
}

func TestJSONLSinkWritesOneJSONObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)
	if err := sink.Handle(NewDiagnosticEvent("s1", 0, "scope", "hi")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := sink.Handle(NewDiagnosticEvent("s1", 1, "scope", "bye")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("line not valid JSON: %v", err)
	}
	if ev.Message != "hi" {
		t.Errorf("expected message hi, got %q", ev.Message)
	}
}

func TestMemorySinkHistoryWithFilter(t *testing.T) {
	sink := NewMemorySink()
	sink.Handle(NewNodeEvent("s1", 0, "a", PhaseStart))
	sink.Handle(NewNodeEvent("s1", 1, "b", PhaseComplete))
	sink.Handle(NewDiagnosticEvent("s1", 2, "scope", "msg"))

	nodeOnly := sink.HistoryWithFilter("s1", HistoryFilter{Kind: KindNode})
	if len(nodeOnly) != 2 {
		t.Fatalf("expected 2 node events, got %d", len(nodeOnly))
	}

	minStep := 1
	late := sink.HistoryWithFilter("s1", HistoryFilter{MinStep: &minStep})
	if len(late) != 2 {
		t.Fatalf("expected 2 events at or after step 1, got %d", len(late))
	}
}

func TestMemorySinkClear(t *testing.T) {
	sink := NewMemorySink()
	sink.Handle(NewDiagnosticEvent("s1", 0, "scope", "msg"))
	sink.Clear("s1")
	if len(sink.History("s1")) != 0 {
		t.Error("expected history to be cleared")
	}
}

func TestChannelSinkForwardsAndDropsWhenFull(t *testing.T) {
	out := make(chan Event, 1)
	sink := NewChannelSink(out)

	if err := sink.Handle(NewDiagnosticEvent("s1", 0, "scope", "one")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	// Second send should drop silently since out is full and unread.
	if err := sink.Handle(NewDiagnosticEvent("s1", 1, "scope", "two")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	ev := <-out
	if ev.Message != "one" {
		t.Errorf("expected first event to survive, got %q", ev.Message)
	}
}
