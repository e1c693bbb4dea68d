package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelSink turns every event into an immediate OpenTelemetry span: a point
// in time rather than a duration, named after the event kind and tagged
// with session/step/node attributes. Errors carried in Meta["error"] mark
// the span as failed.
type OTelSink struct {
	tracer trace.Tracer
}

// NewOTelSink wraps an OpenTelemetry tracer (e.g. otel.Tracer("weavegraph"))
// as a Sink.
func NewOTelSink(tracer trace.Tracer) *OTelSink {
	return &OTelSink{tracer: tracer}
}

// Name implements Sink.
func (s *OTelSink) Name() string { return "otel" }

// Handle implements Sink.
func (s *OTelSink) Handle(event Event) error {
	name := string(event.Kind)
	if event.Kind == KindNode {
		name = event.NodeID + "." + event.Phase
	} else if event.Kind == KindDiagnostic {
		name = event.Scope
	}

	_, span := s.tracer.Start(context.Background(), name)
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", event.SessionID),
		attribute.Int("step", event.Step),
	)
	if event.NodeID != "" {
		span.SetAttributes(attribute.String("node_id", event.NodeID))
	}
	if event.Message != "" {
		span.SetAttributes(attribute.String("message", event.Message))
	}
	for k, v := range event.Meta {
		span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", v)))
	}
	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
	return nil
}
