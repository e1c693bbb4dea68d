package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/weavegraph/weavegraph/graph"
	"github.com/weavegraph/weavegraph/graph/barrier"
	"github.com/weavegraph/weavegraph/graph/builder"
	"github.com/weavegraph/weavegraph/graph/checkpoint"
	"github.com/weavegraph/weavegraph/graph/emit"
	"github.com/weavegraph/weavegraph/graph/router"
	"github.com/weavegraph/weavegraph/graph/scheduler"
)

// App is the invoke-oriented facade a caller uses to run a graph to
// completion without managing session lifecycle directly, per spec.md §6.
type App interface {
	// Invoke creates a session, drives it to completion, and returns its
	// final state.
	Invoke(ctx context.Context, initial *graph.VersionedState) (*graph.VersionedState, error)

	// InvokeStreaming is like Invoke but returns immediately with a handle;
	// the session runs in a background goroutine and its progress is
	// visible on EventStream.
	InvokeStreaming(ctx context.Context, initial *graph.VersionedState) (*WorkflowHandle, error)

	// InvokeWithChannel is like InvokeStreaming but also returns a channel
	// of the events published for this session (those whose SessionID
	// matches), ending with its stream-end event and closed after it.
	// Events published through Bus.EmitDiagnostic carry no session id and
	// are not forwarded.
	InvokeWithChannel(ctx context.Context, initial *graph.VersionedState) (*WorkflowHandle, <-chan emit.Event, error)

	// InvokeWithSinks attaches sinks to the runner's event bus before
	// starting, then behaves like InvokeStreaming.
	InvokeWithSinks(ctx context.Context, initial *graph.VersionedState, sinks ...emit.Sink) (*WorkflowHandle, error)

	// EventStream subscribes to every event the runner's bus publishes,
	// across all sessions.
	EventStream() *emit.Subscription
}

// AppRunner is the session-oriented facade for callers that want explicit
// control over session lifecycle (step-by-step execution, manual resume),
// per spec.md §6.
type AppRunner interface {
	// CreateSession registers a new session with the given initial state
	// (nil starts from an empty VersionedState) and returns its id.
	CreateSession(ctx context.Context, initial *graph.VersionedState) (string, error)

	// RunUntilComplete drives sessionID through supersteps until it reaches
	// End, a fatal abort, or ctx is done.
	RunUntilComplete(ctx context.Context, sessionID string) (*graph.VersionedState, error)

	// RunOneSuperstep advances sessionID by exactly one superstep and
	// reports whether the session is now finished.
	RunOneSuperstep(ctx context.Context, sessionID string) (finished bool, err error)

	// Resume loads sessionID's latest checkpoint and continues it from
	// there. It is an error to resume a session with no saved checkpoint.
	Resume(ctx context.Context, sessionID string) (*graph.VersionedState, error)

	// Abort cancels sessionID's in-flight superstep, if any, and marks the
	// session Aborted once the current step unwinds.
	Abort(sessionID string) error
}

// Runner implements both App and AppRunner over one compiled graph and one
// checkpoint backend.
type Runner struct {
	compiled     *builder.CompiledGraph
	checkpointer checkpoint.Checkpointer
	reducers     *graph.ReducerRegistry
	cfg          runnerConfig
	bus          *emit.Bus

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds a Runner over compiled, persisting checkpoints through
// checkpointer. opts may hold RuntimeConfig values and Option functions;
// if several RuntimeConfig values are given the last one wins, and the
// Option functions are applied on top of it.
func New(compiled *builder.CompiledGraph, checkpointer checkpoint.Checkpointer, opts ...any) *Runner {
	cfg := runnerConfig{RuntimeConfig: DefaultRuntimeConfig()}
	var fnOpts []Option
	for _, opt := range opts {
		switch v := opt.(type) {
		case RuntimeConfig:
			cfg.RuntimeConfig = v
		case Option:
			fnOpts = append(fnOpts, v)
		}
	}
	for _, fn := range fnOpts {
		fn(&cfg)
	}

	bus := cfg.Bus
	if bus == nil {
		bus = emit.New(cfg.EventBusCapacity)
	}

	return &Runner{
		compiled:     compiled,
		checkpointer: checkpointer,
		reducers:     graph.NewReducerRegistry(),
		cfg:          cfg,
		bus:          bus,
		sessions:     make(map[string]*session),
	}
}

func (r *Runner) getSession(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// CreateSession implements AppRunner.
func (r *Runner) CreateSession(ctx context.Context, initial *graph.VersionedState) (string, error) {
	id := uuid.NewString()
	s := newSession(id, initial)
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	s.setState(sessionCreated)
	s.setState(sessionIdle)
	return id, nil
}

// Invoke implements App.
func (r *Runner) Invoke(ctx context.Context, initial *graph.VersionedState) (*graph.VersionedState, error) {
	id, err := r.CreateSession(ctx, initial)
	if err != nil {
		return nil, err
	}
	return r.RunUntilComplete(ctx, id)
}

// InvokeStreaming implements App.
func (r *Runner) InvokeStreaming(ctx context.Context, initial *graph.VersionedState) (*WorkflowHandle, error) {
	id, err := r.CreateSession(ctx, initial)
	if err != nil {
		return nil, err
	}
	return r.startBackground(ctx, id), nil
}

// InvokeWithChannel implements App.
func (r *Runner) InvokeWithChannel(ctx context.Context, initial *graph.VersionedState) (*WorkflowHandle, <-chan emit.Event, error) {
	id, err := r.CreateSession(ctx, initial)
	if err != nil {
		return nil, nil, err
	}
	sub := r.bus.Subscribe()
	out := make(chan emit.Event)
	go func() {
		defer close(out)
		for ev := range sub.Chan() {
			if ev.SessionID != id {
				continue
			}
			out <- ev
			if ev.IsStreamEnd() {
				return
			}
		}
	}()
	return r.startBackground(ctx, id), out, nil
}

// InvokeWithSinks implements App.
func (r *Runner) InvokeWithSinks(ctx context.Context, initial *graph.VersionedState, sinks ...emit.Sink) (*WorkflowHandle, error) {
	for _, sink := range sinks {
		r.bus.AddSink(sink)
	}
	return r.InvokeStreaming(ctx, initial)
}

// EventStream implements App.
func (r *Runner) EventStream() *emit.Subscription {
	return r.bus.Subscribe()
}

func (r *Runner) startBackground(ctx context.Context, id string) *WorkflowHandle {
	h := &WorkflowHandle{SessionID: id, done: make(chan struct{}), runner: r}
	go func() {
		defer close(h.done)
		h.result, h.err = r.RunUntilComplete(ctx, id)
	}()
	return h
}

// RunUntilComplete implements AppRunner.
func (r *Runner) RunUntilComplete(ctx context.Context, sessionID string) (*graph.VersionedState, error) {
	s, ok := r.getSession(sessionID)
	if !ok {
		return nil, errors.New("runner: unknown session " + sessionID)
	}

	for {
		finished, err := r.runOneSuperstep(ctx, s)
		if err != nil {
			r.bus.Publish(emit.NewStreamEndEvent(sessionID, s.step))
			return s.vstate, err
		}
		if finished {
			r.bus.Publish(emit.NewStreamEndEvent(sessionID, s.step))
			return s.vstate, nil
		}
		select {
		case <-ctx.Done():
			s.setState(sessionAborted)
			r.bus.Publish(emit.NewStreamEndEvent(sessionID, s.step))
			return s.vstate, Cancelled(sessionID)
		default:
		}
	}
}

// RunOneSuperstep implements AppRunner.
func (r *Runner) RunOneSuperstep(ctx context.Context, sessionID string) (bool, error) {
	s, ok := r.getSession(sessionID)
	if !ok {
		return false, errors.New("runner: unknown session " + sessionID)
	}
	return r.runOneSuperstep(ctx, s)
}

// Resume implements AppRunner: it loads sessionID's latest checkpoint,
// rehydrates a session around it, and drives it to completion with
// RunUntilComplete.
func (r *Runner) Resume(ctx context.Context, sessionID string) (*graph.VersionedState, error) {
	cp, ok, err := r.checkpointer.LoadLatest(ctx, sessionID)
	if err != nil {
		return nil, CheckpointFailed(sessionID, 0, err)
	}
	if !ok {
		return nil, errors.New("runner: no checkpoint to resume for session " + sessionID)
	}

	s := newSession(sessionID, cp.State)
	s.versionsSeen = cp.VersionsSeen
	s.justRan = cp.RanNodes
	s.step = cp.Step
	s.setState(sessionIdle)

	r.mu.Lock()
	r.sessions[sessionID] = s
	r.mu.Unlock()

	return r.RunUntilComplete(ctx, sessionID)
}

// Abort implements AppRunner.
func (r *Runner) Abort(sessionID string) error {
	s, ok := r.getSession(sessionID)
	if !ok {
		return errors.New("runner: unknown session " + sessionID)
	}
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.setState(sessionAborted)
	return nil
}

// runOneSuperstep implements the step loop described in spec.md §4.8: route
// the frontier, short-circuit on End or an empty frontier, run the
// superstep, merge at the barrier (skipped entirely if the step aborted),
// autosave, and emit the step diagnostic.
func (r *Runner) runOneSuperstep(ctx context.Context, s *session) (finished bool, err error) {
	s.setState(sessionRunning)

	snapshot := s.vstate.Snapshot()

	var frontier router.Frontier
	if s.step == 0 && s.justRan == nil {
		frontier = router.Entry(r.compiled)
	} else {
		frontier = router.Route(r.compiled, snapshot, s.justRan)
	}
	for _, w := range frontier.Warnings {
		r.bus.EmitDiagnostic("route", w)
	}

	if frontier.Terminated || len(frontier.Targets) == 0 {
		s.setState(sessionFinished)
		return true, nil
	}

	stepCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.DefaultStepTimeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, r.cfg.DefaultStepTimeout)
	} else {
		stepCtx, cancel = context.WithCancel(ctx)
	}
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	result := scheduler.RunSuperstep(stepCtx, r.compiled, frontier.Targets, snapshot, s.versionsSeen, scheduler.Options{
		ConcurrencyLimit: r.cfg.ConcurrencyLimit,
		Policy:           scheduler.Policy(r.cfg.FailMode),
		DrainGrace:       r.cfg.GracePeriod,
		Emitter:          r.bus,
		SessionID:        s.id,
		Step:             s.step + 1,
		Metrics:          r.cfg.Metrics,
	})

	if result.Cancelled || stepCtx.Err() != nil {
		s.setState(sessionAborted)
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			return false, Timeout(s.id, s.step+1)
		}
		return false, Cancelled(s.id)
	}

	if result.Aborted {
		// spec.md S5: no checkpoint is written for the failing step when
		// FailAbort terminates the session; the barrier merge itself is
		// skipped so NewState/NewVersionsSeen never advance past the
		// failure point.
		s.setState(sessionFailed)
		return false, NodeFailed(s.id, s.step+1, result.AbortErr.NodeID, result.AbortErr)
	}

	var report barrier.StepReport
	var mergePanic any
	func() {
		defer func() { mergePanic = recover() }()
		report = barrier.Merge(s.step+1, s.vstate, s.versionsSeen, r.reducers, result)
	}()
	if mergePanic != nil {
		s.setState(sessionFailed)
		return false, BarrierFailedErr(s.id, s.step+1, fmt.Errorf("reducer panic: %v", mergePanic))
	}

	s.mu.Lock()
	s.versionsSeen = report.NewVersionsSeen
	s.justRan = report.Ran
	s.step = report.Step
	s.mu.Unlock()

	r.bus.EmitDiagnostic("step", "superstep completed")

	next := router.Route(r.compiled, s.vstate.Snapshot(), report.Ran)

	if r.cfg.AutosaveEveryStep || next.Terminated || len(next.Targets) == 0 {
		if err := r.saveCheckpoint(ctx, s, report, next); err != nil {
			if r.cfg.FailOnCheckpointError {
				s.setState(sessionFailed)
				return false, CheckpointFailed(s.id, s.step, err)
			}
			s.mu.Lock()
			s.degraded = true
			s.mu.Unlock()
			r.bus.EmitDiagnostic("checkpoint", "save failed: "+err.Error())
		}
	}

	if next.Terminated || len(next.Targets) == 0 {
		s.setState(sessionFinished)
		return true, nil
	}

	s.setState(sessionIdle)
	return false, nil
}

func (r *Runner) saveCheckpoint(ctx context.Context, s *session, report barrier.StepReport, next router.Frontier) error {
	return r.checkpointer.Save(ctx, checkpoint.Checkpoint{
		SessionID:        s.id,
		Step:             report.Step,
		State:            s.vstate,
		Frontier:         next.Targets,
		VersionsSeen:     s.versionsSeen,
		RanNodes:         report.Ran,
		SkippedNodes:     report.Skipped,
		UpdatedChannels:  report.UpdatedChannels,
		ConcurrencyLimit: r.cfg.ConcurrencyLimit,
	})
}
