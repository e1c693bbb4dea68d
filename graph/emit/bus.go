package emit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCapacity is the default bounded broadcast buffer size used when a
// Bus is constructed with capacity <= 0, per spec.md §4.6.
const DefaultCapacity = 1024

// SinkDiagnostic is one record on the diagnostics stream: a single sink
// failure occurrence.
type SinkDiagnostic struct {
	Sink       string    `json:"sink"`
	Occurrence int64     `json:"occurrence"`
	Error      string    `json:"error"`
	When       time.Time `json:"when"`
}

// Bus is the broadcast hub described in spec.md §4.6: a bounded,
// multi-producer/multi-consumer fan-out for the primary event stream, a
// separate smaller diagnostics stream for sink failures, and a set of
// registered Sinks invoked on every published event.
//
// Publish never blocks on a slow subscriber or a slow sink: both are
// served through bounded per-consumer queues, and a consumer that falls
// behind has events dropped on its behalf. A subscriber that drops an event
// is flagged (Subscription.Lagged) and is sent a lag marker if its buffer
// has room for it (the timed-poll helper filters markers out); a sink gets
// no marker.
//
// A Bus also implements graph.EventEmitter, so it can be handed directly
// to a NodeContext.
type Bus struct {
	mu          sync.Mutex
	capacity    int
	subs        map[uint64]*subscription
	diagSubs    map[uint64]chan SinkDiagnostic
	nextID      uint64
	sinks       []Sink
	sinkQueues  map[string]chan Event
	health      map[string]*Health
	dropped     atomic.Int64
	closed      bool
	wg          sync.WaitGroup
}

// New creates a Bus with the given broadcast buffer capacity. A
// non-positive capacity uses DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity:   capacity,
		subs:       make(map[uint64]*subscription),
		diagSubs:   make(map[uint64]chan SinkDiagnostic),
		sinkQueues: make(map[string]chan Event),
		health:     make(map[string]*Health),
	}
}

// AddSink registers a sink and starts its dedicated delivery worker. Calls
// to a single sink's Handle are serialized by that worker, matching the
// "sinks may be single-threaded" contract in spec.md §5; different sinks
// still run concurrently with each other.
func (b *Bus) AddSink(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	queue := make(chan Event, b.capacity)
	b.sinks = append(b.sinks, sink)
	b.sinkQueues[sink.Name()] = queue
	b.health[sink.Name()] = &Health{Sink: sink.Name()}

	b.wg.Add(1)
	go b.runSink(sink, queue)
}

func (b *Bus) runSink(sink Sink, queue chan Event) {
	defer b.wg.Done()
	for event := range queue {
		if err := b.safeHandle(sink, event); err != nil {
			b.recordSinkError(sink.Name(), err)
		}
	}
}

func (b *Bus) safeHandle(sink Sink, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", sink.Name(), r)
		}
	}()
	return sink.Handle(event)
}

func (b *Bus) recordSinkError(name string, err error) {
	b.mu.Lock()
	h, ok := b.health[name]
	if !ok {
		h = &Health{Sink: name}
		b.health[name] = h
	}
	h.ErrorCount++
	h.LastError = err.Error()
	h.LastErrorAt = timeNow()
	occurrence := h.ErrorCount
	diags := make([]chan SinkDiagnostic, 0, len(b.diagSubs))
	for _, ch := range b.diagSubs {
		diags = append(diags, ch)
	}
	b.mu.Unlock()

	rec := SinkDiagnostic{Sink: name, Occurrence: occurrence, Error: err.Error(), When: timeNow()}
	for _, ch := range diags {
		select {
		case ch <- rec:
		default:
			// Diagnostics stream is best-effort too: a full buffer drops
			// the record rather than blocking sink delivery.
		}
	}
}

// Publish fans an event out to every subscriber and every registered sink
// without blocking on any of them. Subscribers (and sinks) that can't keep
// up lose events past their buffer's capacity; Publish itself always
// returns immediately.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	queues := make([]chan Event, 0, len(b.sinkQueues))
	for _, q := range b.sinkQueues {
		queues = append(queues, q)
	}
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, event)
	}
	for _, q := range queues {
		select {
		case q <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// EmitDiagnostic implements graph.EventEmitter by publishing a
// KindDiagnostic event with the given scope and message, an empty
// SessionID and step 0.
// Weavegraph nodes call this indirectly through NodeContext.Emit.
func (b *Bus) EmitDiagnostic(scope, message string) {
	b.Publish(NewDiagnosticEvent("", 0, scope, message))
}

func (b *Bus) deliver(s *subscription, event Event) {
	select {
	case s.ch <- event:
	default:
		b.dropped.Add(1)
		s.lagged.Store(true)
		// Best-effort lag marker: if the buffer has room for exactly one
		// more item, let the consumer observe that it fell behind.
		select {
		case s.ch <- Event{Kind: KindDiagnostic, Scope: lagScope, SessionID: event.SessionID, When: timeNow()}:
		default:
		}
	}
}

const lagScope = "__lag__"

// IsLagMarker reports whether e is a lag marker emitted on a subscriber's
// behalf after it fell behind the broadcast buffer.
func IsLagMarker(e Event) bool {
	return e.Kind == KindDiagnostic && e.Scope == lagScope
}

// subscription is one consumer's bounded view of the primary event stream.
type subscription struct {
	ch     chan Event
	lagged atomic.Bool
}

// Subscription is the handle returned by Bus.Subscribe, convertible to an
// async iterator (Chan), a blocking iterator (Next), or a timed poll
// (Poll) per spec.md §4.6.
type Subscription struct {
	bus *Bus
	id  uint64
	sub *subscription
}

// Subscribe registers a new consumer of the primary event stream.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	sub := &subscription{ch: make(chan Event, b.capacity)}
	b.subs[id] = sub
	return &Subscription{bus: b, id: id, sub: sub}
}

// SubscribeDiagnostics registers a new consumer of the sink-failure
// diagnostics stream.
func (b *Bus) SubscribeDiagnostics() (<-chan SinkDiagnostic, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan SinkDiagnostic, b.capacity/4+1)
	b.diagSubs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.diagSubs, id)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Chan exposes the subscription as a receive-only channel: an async
// iterator over `range sub.Chan()`.
func (s *Subscription) Chan() <-chan Event {
	return s.sub.ch
}

// Next blocks until an event arrives or ctx is done, acting as a blocking
// iterator.
func (s *Subscription) Next(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-s.sub.ch:
		return ev, ok
	case <-ctx.Done():
		return Event{}, false
	}
}

// Poll waits up to timeout for the next event, automatically skipping lag
// markers so callers see only substantive events.
func (s *Subscription) Poll(timeout time.Duration) (Event, bool) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		timer := time.NewTimer(remaining)
		select {
		case ev, ok := <-s.sub.ch:
			timer.Stop()
			if !ok {
				return Event{}, false
			}
			if IsLagMarker(ev) {
				if time.Now().After(deadline) {
					return Event{}, false
				}
				continue
			}
			return ev, true
		case <-timer.C:
			return Event{}, false
		}
	}
}

// Lagged reports whether this subscription has ever dropped an event due
// to buffer exhaustion.
func (s *Subscription) Lagged() bool {
	return s.sub.lagged.Load()
}

// Unsubscribe removes the subscription from the bus.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}

// HealthSnapshot returns a point-in-time Health record for every
// registered sink.
func (b *Bus) HealthSnapshot() []Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Health, 0, len(b.health))
	for _, h := range b.health {
		out = append(out, *h)
	}
	return out
}

// DroppedEvents returns the cumulative count of events dropped across all
// subscribers and sinks due to buffer exhaustion.
func (b *Bus) DroppedEvents() int64 {
	return b.dropped.Load()
}

// Close stops accepting new events, drains sink workers, and closes every
// subscriber channel. It is safe to call once at the end of a run.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, q := range b.sinkQueues {
		close(q)
	}
	for _, s := range b.subs {
		close(s.ch)
	}
	for _, ch := range b.diagSubs {
		close(ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
