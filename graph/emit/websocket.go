package emit

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketSink streams JSON-encoded events to a single WebSocket
// connection, for remote dashboards watching a run live. It reuses the
// bus's own Event JSON encoding rather than inventing a bespoke wire
// format, unlike the ad-hoc per-event-type message types a hand-rolled
// streaming protocol would need.
type WebSocketSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSink wraps an already-established WebSocket connection as a
// Sink. The caller owns the connection's lifecycle (handshake, close).
func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn}
}

// Name implements Sink.
func (s *WebSocketSink) Name() string { return "websocket" }

// Handle implements Sink.
func (s *WebSocketSink) Handle(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
