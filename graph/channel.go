package graph

// Channel names recognized by the default reducer registry. User code may
// register additional channels under other names (see graph.ReducerRegistry),
// but these three always exist on a freshly created VersionedState.
const (
	ChannelMessages = "messages"
	ChannelErrors   = "errors"
	ChannelExtras   = "extras"
)

// MessagesChannel is a versioned, ordered sequence of Message values.
// The default reducer appends updates in sorted-node order.
type MessagesChannel struct {
	Items   []Message
	Version int64
}

// Snapshot returns a read-only copy of the channel's current contents.
func (c MessagesChannel) Snapshot() MessagesChannel {
	items := make([]Message, len(c.Items))
	copy(items, c.Items)
	return MessagesChannel{Items: items, Version: c.Version}
}

// ErrorsChannel is a versioned, ordered sequence of ErrorEvent values.
// The default reducer appends updates in sorted-node order.
type ErrorsChannel struct {
	Items   []ErrorEvent
	Version int64
}

// Snapshot returns a read-only copy of the channel's current contents.
func (c ErrorsChannel) Snapshot() ErrorsChannel {
	items := make([]ErrorEvent, len(c.Items))
	copy(items, c.Items)
	return ErrorsChannel{Items: items, Version: c.Version}
}

// ExtrasChannel is a versioned mapping from string keys to opaque
// JSON-compatible values. The default reducer merges maps, with the last
// writer in sorted-node order winning key collisions among sibling
// partials within a single step.
type ExtrasChannel struct {
	Items   map[string]any
	Version int64
}

// Snapshot returns a read-only copy of the channel's current contents.
func (c ExtrasChannel) Snapshot() ExtrasChannel {
	items := make(map[string]any, len(c.Items))
	for k, v := range c.Items {
		items[k] = v
	}
	return ExtrasChannel{Items: items, Version: c.Version}
}

// VersionedState is the full state for one session: the three built-in
// channels, each independently versioned. A channel's version increases by
// exactly one at a barrier boundary if and only if its contents changed
// during that barrier (graph/barrier enforces this invariant).
//
// VersionedState is owned by the runner for the lifetime of a session.
// Concurrent node tasks within a superstep never see a VersionedState
// directly; they receive an immutable StateSnapshot instead.
type VersionedState struct {
	Messages MessagesChannel
	Errors   ErrorsChannel
	Extras   ExtrasChannel
}

// NewVersionedState returns an empty VersionedState with all channel
// versions at zero.
func NewVersionedState() *VersionedState {
	return &VersionedState{
		Messages: MessagesChannel{Items: []Message{}},
		Errors:   ErrorsChannel{Items: []ErrorEvent{}},
		Extras:   ExtrasChannel{Items: map[string]any{}},
	}
}

// Snapshot produces an immutable StateSnapshot for the next superstep. The
// snapshot is a deep copy of each channel's current contents, so it remains
// bit-identical for every concurrent node task that reads it even while the
// runner later mutates VersionedState at the barrier.
func (s *VersionedState) Snapshot() StateSnapshot {
	return StateSnapshot{
		Messages: s.Messages.Snapshot(),
		Errors:   s.Errors.Snapshot(),
		Extras:   s.Extras.Snapshot(),
	}
}

// StateSnapshot is the immutable view of VersionedState handed to every
// node task in a superstep. Two snapshots produced from states with equal
// channel contents and versions are observationally equal, which is what
// makes routing and node execution pure functions of the snapshot.
type StateSnapshot struct {
	Messages MessagesChannel
	Errors   ErrorsChannel
	Extras   ExtrasChannel
}

// ChannelVersion returns the version of the named channel, or (0, false) if
// the channel is not one of the three built-ins.
func (s StateSnapshot) ChannelVersion(name string) (int64, bool) {
	switch name {
	case ChannelMessages:
		return s.Messages.Version, true
	case ChannelErrors:
		return s.Errors.Version, true
	case ChannelExtras:
		return s.Extras.Version, true
	default:
		return 0, false
	}
}

// VersionsSeen is the per-node record of the last channel version each node
// observed. The scheduler consults it to decide whether a node in the
// frontier must re-run (see graph/scheduler).
type VersionsSeen map[string]map[string]int64

// NewVersionsSeen returns an empty VersionsSeen map.
func NewVersionsSeen() VersionsSeen {
	return make(VersionsSeen)
}

// Clone returns a deep copy, so callers can hand out a VersionsSeen without
// letting a concurrent writer mutate the copy out from under them.
func (v VersionsSeen) Clone() VersionsSeen {
	out := make(VersionsSeen, len(v))
	for node, channels := range v {
		cc := make(map[string]int64, len(channels))
		for ch, ver := range channels {
			cc[ch] = ver
		}
		out[node] = cc
	}
	return out
}

// Observed returns the version node last saw for channel, and whether the
// node has any recorded history at all for that channel.
func (v VersionsSeen) Observed(node, channel string) (int64, bool) {
	channels, ok := v[node]
	if !ok {
		return 0, false
	}
	ver, ok := channels[channel]
	return ver, ok
}

// Record sets the version node has now observed for channel.
func (v VersionsSeen) Record(node, channel string, version int64) {
	channels, ok := v[node]
	if !ok {
		channels = make(map[string]int64)
		v[node] = channels
	}
	channels[channel] = version
}
