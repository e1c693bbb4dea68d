package emit

import (
	"fmt"
	"io"
	"os"
)

// StdoutSink writes a human-readable line per event to the configured
// writer. It mirrors the teacher's text-mode LogEmitter formatting.
type StdoutSink struct {
	writer io.Writer
}

// NewStdoutSink returns a StdoutSink writing to w. A nil w defaults to
// os.Stdout.
func NewStdoutSink(w io.Writer) *StdoutSink {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutSink{writer: w}
}

// Name implements Sink.
func (s *StdoutSink) Name() string { return "stdout" }

// Handle implements Sink.
func (s *StdoutSink) Handle(event Event) error {
	switch event.Kind {
	case KindNode:
		_, err := fmt.Fprintf(s.writer, "[%s] session=%s step=%d node=%s phase=%s\n",
			event.Kind, event.SessionID, event.Step, event.NodeID, event.Phase)
		return err
	case KindDiagnostic:
		_, err := fmt.Fprintf(s.writer, "[%s] session=%s step=%d scope=%s msg=%s\n",
			event.Kind, event.SessionID, event.Step, event.Scope, event.Message)
		return err
	default:
		_, err := fmt.Fprintf(s.writer, "[%s] session=%s step=%d payload=%v\n",
			event.Kind, event.SessionID, event.Step, event.Payload)
		return err
	}
}
