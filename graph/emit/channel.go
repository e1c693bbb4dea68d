package emit

// ChannelSink forwards every event onto a plain Go channel, the building
// block behind runner.App's invoke_with_channel convenience wrapper. Like
// Bus.Publish, forwarding never blocks: a full channel drops the event.
type ChannelSink struct {
	out chan<- Event
}

// NewChannelSink wraps out as a Sink. The caller owns out and is
// responsible for draining it.
func NewChannelSink(out chan<- Event) *ChannelSink {
	return &ChannelSink{out: out}
}

// Name implements Sink.
func (s *ChannelSink) Name() string { return "channel" }

// Handle implements Sink.
func (s *ChannelSink) Handle(event Event) error {
	select {
	case s.out <- event:
	default:
	}
	return nil
}
