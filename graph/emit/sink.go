package emit

import "time"

// Sink receives events published to the bus. Implementations should be
// fast and non-blocking where possible: the bus serializes delivery
// per-sink, so a slow sink only ever delays itself, never its siblings or
// the pipeline that publishes events.
//
// Handle must not panic. A returned error is recorded against the sink's
// health counters and reported on the diagnostics stream; it never aborts
// the pipeline (spec.md §4.6).
type Sink interface {
	// Name labels the sink for health reporting and logs.
	Name() string

	// Handle processes a single event. Errors are non-fatal.
	Handle(event Event) error
}

// Health is a point-in-time snapshot of one sink's failure history.
type Health struct {
	Sink         string    `json:"sink"`
	ErrorCount   int64     `json:"error_count"`
	LastError    string    `json:"last_error,omitempty"`
	LastErrorAt  time.Time `json:"last_error_at,omitempty"`
}
