package emit

import (
	"encoding/json"
	"io"
)

// JSONLSink writes one JSON-encoded event per line, suitable for machine
// consumption (log shipping, offline replay analysis).
type JSONLSink struct {
	writer io.Writer
}

// NewJSONLSink returns a JSONLSink writing newline-delimited JSON to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{writer: w}
}

// Name implements Sink.
func (s *JSONLSink) Name() string { return "jsonl" }

// Handle implements Sink.
func (s *JSONLSink) Handle(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = s.writer.Write(line)
	return err
}
