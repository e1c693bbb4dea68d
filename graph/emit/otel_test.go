package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attributeMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{})
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func TestOTelSinkHandleCreatesSpanForNodeEvent(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	sink := NewOTelSink(tp.Tracer("test"))
	ev := NewNodeEvent("s1", 1, "greet", PhaseComplete)
	if err := sink.Handle(ev); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "greet.complete" {
		t.Errorf("span name = %q, want %q", span.Name, "greet.complete")
	}

	attrs := attributeMap(span.Attributes)
	if got := attrs["session_id"]; got != "s1" {
		t.Errorf("session_id = %v, want %q", got, "s1")
	}
	if got := attrs["step"]; got != int64(1) {
		t.Errorf("step = %v, want %d", got, 1)
	}
	if got := attrs["node_id"]; got != "greet" {
		t.Errorf("node_id = %v, want %q", got, "greet")
	}
}

func TestOTelSinkHandleRecordsErrorFromMeta(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	sink := NewOTelSink(tp.Tracer("test"))
	ev := NewDiagnosticEvent("s1", 2, "step", "node failed")
	ev.Meta = map[string]any{"error": "validation failed"}
	if err := sink.Handle(ev); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Status.Code != codes.Error {
		t.Errorf("expected span status Error, got %v", span.Status.Code)
	}
	if len(span.Events) == 0 {
		t.Error("expected RecordError to attach an exception event")
	}
}
