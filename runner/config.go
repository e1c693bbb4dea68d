// Package runner wraps a compiled graph and a checkpointer into a
// session-driven executor: create a session, drive it through the
// superstep loop to completion, or stream its progress over the event
// bus. See spec.md §4.8.
package runner

import (
	"time"

	"github.com/weavegraph/weavegraph/graph/emit"
	"github.com/weavegraph/weavegraph/graph/scheduler"
)

// FailMode decides what happens to a session when a node returns a fatal
// NodeError during a superstep.
type FailMode string

const (
	// FailContinue records the error as a synthetic ErrorEvent and lets
	// the session continue. This is the default.
	FailContinue FailMode = FailMode(scheduler.PolicyContinue)

	// FailAbort terminates the session with RunnerErrorNodeFailed as soon
	// as any node in a superstep errors.
	FailAbort FailMode = FailMode(scheduler.PolicyAbort)
)

// RuntimeConfig configures a Runner, per spec.md §6.
type RuntimeConfig struct {
	// ConcurrencyLimit bounds how many nodes run concurrently within one
	// superstep. Zero falls back to scheduler.DefaultConcurrencyLimit.
	ConcurrencyLimit int

	// AutosaveEveryStep saves a checkpoint after every superstep. Default
	// true; when false, a checkpoint is saved only after the superstep that
	// finishes the session. There is no separate manual-save call.
	AutosaveEveryStep bool

	// FailMode governs NodeError handling across the whole runner.
	FailMode FailMode

	// EventBusCapacity sizes the internal event bus's broadcast buffer.
	// Zero falls back to emit.DefaultCapacity.
	EventBusCapacity int

	// GracePeriod bounds how long a cancelled superstep waits for in-flight
	// node tasks to return; tasks still running after it are abandoned
	// without being logged. Zero falls back to scheduler.DefaultDrainGrace.
	GracePeriod time.Duration

	// FailOnCheckpointError makes a checkpoint write failure fatal
	// (RunnerErrorCheckpointFailed) instead of degrading the session and
	// continuing in memory.
	FailOnCheckpointError bool

	// DefaultStepTimeout bounds the wall-clock time of a single
	// superstep. Zero disables the bound. Per-node timeouts are a
	// separate, node-level concern (graph.NodePolicy.Timeout); this is the
	// runner's own per-step budget (spec.md §5).
	DefaultStepTimeout time.Duration
}

// DefaultRuntimeConfig returns the zero-value-safe defaults used when New
// is called without overriding a field.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		ConcurrencyLimit:      scheduler.DefaultConcurrencyLimit,
		AutosaveEveryStep:     true,
		FailMode:              FailContinue,
		EventBusCapacity:      emit.DefaultCapacity,
		GracePeriod:           scheduler.DefaultDrainGrace,
		FailOnCheckpointError: false,
	}
}

// runnerConfig is the internal superset of RuntimeConfig: it additionally
// carries construction-only knobs (an externally supplied bus or metrics
// collector) that aren't part of the spec's RuntimeConfig field list but
// still need the same Options-struct-or-functional-options acceptance that
// New offers, mirroring the teacher's engineConfig/Options split.
type runnerConfig struct {
	RuntimeConfig
	Metrics *scheduler.Metrics
	Bus     *emit.Bus
}

// Option mutates a Runner's configuration at construction time. Prefer
// these over a RuntimeConfig literal when only a handful of fields need
// overriding from the defaults.
type Option func(*runnerConfig)

// WithConcurrencyLimit overrides RuntimeConfig.ConcurrencyLimit.
func WithConcurrencyLimit(n int) Option {
	return func(c *runnerConfig) { c.ConcurrencyLimit = n }
}

// WithFailMode overrides RuntimeConfig.FailMode.
func WithFailMode(m FailMode) Option {
	return func(c *runnerConfig) { c.FailMode = m }
}

// WithAutosaveEveryStep overrides RuntimeConfig.AutosaveEveryStep.
func WithAutosaveEveryStep(b bool) Option {
	return func(c *runnerConfig) { c.AutosaveEveryStep = b }
}

// WithEventBusCapacity overrides RuntimeConfig.EventBusCapacity.
func WithEventBusCapacity(n int) Option {
	return func(c *runnerConfig) { c.EventBusCapacity = n }
}

// WithGracePeriod overrides RuntimeConfig.GracePeriod.
func WithGracePeriod(d time.Duration) Option {
	return func(c *runnerConfig) { c.GracePeriod = d }
}

// WithFailOnCheckpointError overrides RuntimeConfig.FailOnCheckpointError.
func WithFailOnCheckpointError(b bool) Option {
	return func(c *runnerConfig) { c.FailOnCheckpointError = b }
}

// WithStepTimeout overrides RuntimeConfig.DefaultStepTimeout.
func WithStepTimeout(d time.Duration) Option {
	return func(c *runnerConfig) { c.DefaultStepTimeout = d }
}

// WithMetrics attaches a scheduler.Metrics collector. Nil (the default)
// disables metrics collection; Metrics is nil-safe throughout the
// scheduler, so this is purely additive.
func WithMetrics(m *scheduler.Metrics) Option {
	return func(c *runnerConfig) { c.Metrics = m }
}

// WithBus supplies an externally owned event bus instead of letting New
// construct one from EventBusCapacity. Useful when sinks must be attached
// before the first event is published.
func WithBus(b *emit.Bus) Option {
	return func(c *runnerConfig) { c.Bus = b }
}
