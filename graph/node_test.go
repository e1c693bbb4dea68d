package graph

import (
	"context"
	"errors"
	"testing"
)

func TestNodeFuncAdapter(t *testing.T) {
	var called bool
	n := NodeFunc(func(ctx context.Context, snapshot StateSnapshot, nctx NodeContext) (NodePartial, error) {
		called = true
		return NewNodePartial().WithMessages(NewAssistantMessage("hi")), nil
	})

	out, err := n.Run(context.Background(), StateSnapshot{}, NodeContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected underlying function to be invoked")
	}
	if out.Messages[0].Content != "hi" {
		t.Errorf("unexpected output: %+v", out)
	}
}

type recordingEmitter struct {
	scope, message string
	calls          int
}

func (e *recordingEmitter) EmitDiagnostic(scope, message string) {
	e.scope, e.message = scope, message
	e.calls++
}

func TestNodeContextEmitForwardsToEmitter(t *testing.T) {
	rec := &recordingEmitter{}
	nctx := NewNodeContext("sess", "node", 1, rec)
	nctx.Emit("scope", "msg")
	if rec.calls != 1 || rec.scope != "scope" || rec.message != "msg" {
		t.Errorf("unexpected emitter state: %+v", rec)
	}
}

func TestNodeContextEmitToleratesNilEmitter(t *testing.T) {
	nctx := NewNodeContext("sess", "node", 1, nil)
	nctx.Emit("scope", "msg") // must not panic
}

type panickingEmitter struct{}

func (panickingEmitter) EmitDiagnostic(scope, message string) { panic("boom") }

func TestNodeContextEmitRecoversFromPanickingEmitter(t *testing.T) {
	nctx := NewNodeContext("sess", "node", 1, panickingEmitter{})
	nctx.Emit("scope", "msg") // must not panic
}

func TestNodeErrorConstructorsAndUnwrap(t *testing.T) {
	cause := errors.New("boom")

	cases := []struct {
		name string
		err  *NodeError
		kind string
	}{
		{"missing input", MissingInput("n1", "need x"), NodeErrorMissingInput},
		{"validation failed", ValidationFailed("n1", "bad x"), NodeErrorValidationFailed},
		{"provider", ProviderError("n1", cause), NodeErrorProvider},
		{"internal", InternalError("n1", cause), NodeErrorInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Kind != tc.kind {
				t.Errorf("expected kind %q, got %q", tc.kind, tc.err.Kind)
			}
			if tc.err.NodeID != "n1" {
				t.Errorf("expected node id n1, got %q", tc.err.NodeID)
			}
			if tc.err.Error() == "" {
				t.Error("expected non-empty Error() string")
			}
		})
	}

	wrapped := ProviderError("n1", cause)
	if !errors.Is(wrapped, cause) {
		t.Error("expected errors.Is to see through Unwrap to the cause")
	}

	bareInternal := InternalError("n1", nil)
	if bareInternal.Reason != "internal error" {
		t.Errorf("expected default reason for a nil cause, got %q", bareInternal.Reason)
	}
}
