// Package scheduler executes one superstep: it filters a frontier to the
// nodes that actually need to run, fans them out with bounded concurrency,
// and collects their results for the barrier. See spec.md §4.4.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weavegraph/weavegraph/graph"
	"github.com/weavegraph/weavegraph/graph/builder"
)

// int32Counter is a tiny atomic counter for the in-flight active-node gauge.
type int32Counter struct{ v int32 }

func (c *int32Counter) inc()     { atomic.AddInt32(&c.v, 1) }
func (c *int32Counter) dec()     { atomic.AddInt32(&c.v, -1) }
func (c *int32Counter) get() int { return int(atomic.LoadInt32(&c.v)) }

// Policy decides what happens to the session when a node returns a fatal
// NodeError.
type Policy string

const (
	// PolicyContinue records the error and lets the session continue. This
	// is the default.
	PolicyContinue Policy = "continue"

	// PolicyAbort fails the entire step when any node errors.
	PolicyAbort Policy = "abort"
)

// Options configures one RunSuperstep call.
type Options struct {
	// ConcurrencyLimit bounds the number of node tasks running at once.
	// Zero or negative falls back to DefaultConcurrencyLimit.
	ConcurrencyLimit int

	// Policy governs NodeError handling. Empty defaults to PolicyContinue.
	Policy Policy

	// DrainGrace bounds how long RunSuperstep waits for in-flight tasks to
	// return after ctx is cancelled before giving up on them.
	DrainGrace time.Duration

	// Emitter receives best-effort diagnostic events. May be nil.
	Emitter graph.EventEmitter

	// SessionID and Step are stamped into each node's NodeContext.
	SessionID string
	Step      int

	// Metrics records Prometheus observations for this step. May be nil.
	Metrics *Metrics
}

// DefaultConcurrencyLimit is used when Options.ConcurrencyLimit is unset.
const DefaultConcurrencyLimit = 4

// DefaultDrainGrace is used when Options.DrainGrace is unset.
const DefaultDrainGrace = 5 * time.Second

// StepResult is everything the barrier needs from one superstep.
type StepResult struct {
	Ran       []graph.NodeKind
	Skipped   []graph.NodeKind
	Partials  map[string]graph.NodePartial
	Cancelled bool

	// Aborted is true when Options.Policy == PolicyAbort and at least one
	// node returned a NodeError. AbortErr names the first such error found
	// in sorted-node order.
	Aborted  bool
	AbortErr *graph.NodeError
}

type taskResult struct {
	nodeID  string
	partial graph.NodePartial
	nodeErr *graph.NodeError
}

// RunSuperstep filters frontier to the nodes that must run (per
// versionsSeen), executes them concurrently under compiled's node table, and
// returns the collected StepResult.
func RunSuperstep(
	ctx context.Context,
	compiled *builder.CompiledGraph,
	frontier []graph.NodeKind,
	snapshot graph.StateSnapshot,
	versionsSeen graph.VersionsSeen,
	opts Options,
) StepResult {
	limit := opts.ConcurrencyLimit
	if limit <= 0 {
		limit = DefaultConcurrencyLimit
	}
	grace := opts.DrainGrace
	if grace <= 0 {
		grace = DefaultDrainGrace
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyContinue
	}

	ran, skipped := filterFrontier(frontier, snapshot, versionsSeen)
	for _, kind := range skipped {
		opts.Metrics.incSkipped(opts.SessionID, kind.Name())
	}

	sem := make(chan struct{}, limit)
	results := make(chan taskResult, len(ran))
	var wg sync.WaitGroup
	var active int32Counter

	for _, kind := range ran {
		node, ok := compiled.Node(kind.Name())
		if !ok {
			// A frontier entry with no registered node is a router/builder
			// bug, not a runtime condition to recover from gracefully; it
			// is surfaced as an internal NodeError so the barrier still
			// sees a well-formed result.
			results <- taskResult{nodeID: kind.Name(), nodeErr: graph.InternalError(kind.Name(), nil)}
			continue
		}

		wg.Add(1)
		go func(nodeID string, node graph.Node) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- taskResult{nodeID: nodeID, nodeErr: graph.InternalError(nodeID, ctx.Err())}
				return
			}
			defer func() { <-sem }()

			opts.Metrics.incRan(opts.SessionID, nodeID)
			active.inc()
			opts.Metrics.SetActiveNodes(active.get())
			defer func() {
				active.dec()
				opts.Metrics.SetActiveNodes(active.get())
			}()

			nctx := graph.NewNodeContext(opts.SessionID, nodeID, opts.Step, opts.Emitter)
			nctx.Emit("node:"+nodeID, "start")
			start := time.Now()
			partial, err := node.Run(ctx, snapshot, nctx)
			elapsed := time.Since(start)
			nctx.Emit("node:"+nodeID, "complete")
			if err != nil {
				nodeErr := asNodeError(nodeID, err)
				opts.Metrics.observeNodeLatency(opts.SessionID, nodeID, "error", elapsed)
				results <- taskResult{nodeID: nodeID, nodeErr: nodeErr}
				return
			}
			opts.Metrics.observeNodeLatency(opts.SessionID, nodeID, "success", elapsed)
			results <- taskResult{nodeID: nodeID, partial: partial}
		}(kind.Name(), node)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	cancelled := false
	select {
	case <-done:
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(grace):
			cancelled = true
		}
	}

	// results is buffered to exactly len(ran) and intentionally never
	// closed: on the cancelled path a task may still be running past
	// grace, and a stray send from it into a closed channel would panic
	// the whole process. Draining non-blockingly instead means an
	// abandoned task's eventual send just lands in its reserved slot,
	// unread and harmless.
	collected := make([]taskResult, 0, len(ran))
drain:
	for len(collected) < len(ran) {
		select {
		case r := <-results:
			collected = append(collected, r)
		default:
			break drain
		}
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].nodeID < collected[j].nodeID })

	partials := make(map[string]graph.NodePartial, len(collected))
	var abortErr *graph.NodeError
	for _, r := range collected {
		if r.nodeErr != nil {
			ev := graph.NewErrorEvent("node:"+r.nodeID, r.nodeErr.Error(), map[string]string{
				"node_id": r.nodeID,
				"kind":    r.nodeErr.Kind,
			})
			partials[r.nodeID] = graph.NewNodePartial().WithErrors(ev)
			if policy == PolicyAbort && abortErr == nil {
				abortErr = r.nodeErr
			}
			continue
		}
		partials[r.nodeID] = r.partial
	}

	if abortErr != nil {
		opts.Metrics.incAborted(opts.SessionID)
	}

	return StepResult{
		Ran:       ran,
		Skipped:   skipped,
		Partials:  partials,
		Cancelled: cancelled,
		Aborted:   abortErr != nil,
		AbortErr:  abortErr,
	}
}

// filterFrontier partitions frontier into ran and skipped per spec.md
// §4.4 step 1. End bypasses the filter entirely: callers are expected to
// handle End termination before invoking RunSuperstep.
func filterFrontier(frontier []graph.NodeKind, snapshot graph.StateSnapshot, versionsSeen graph.VersionsSeen) (ran, skipped []graph.NodeKind) {
	for _, kind := range frontier {
		if kind.IsEnd() || kind.IsStart() {
			continue
		}
		if hasAdvanced(kind, snapshot, versionsSeen) {
			ran = append(ran, kind)
		} else {
			skipped = append(skipped, kind)
		}
	}
	return ran, skipped
}

func hasAdvanced(kind graph.NodeKind, snapshot graph.StateSnapshot, versionsSeen graph.VersionsSeen) bool {
	for _, channel := range []string{graph.ChannelMessages, graph.ChannelErrors, graph.ChannelExtras} {
		current, _ := snapshot.ChannelVersion(channel)
		seen, observed := versionsSeen.Observed(kind.Name(), channel)
		if !observed || current > seen {
			return true
		}
	}
	return false
}

func asNodeError(nodeID string, err error) *graph.NodeError {
	if nodeErr, ok := err.(*graph.NodeError); ok {
		return nodeErr
	}
	return graph.InternalError(nodeID, err)
}
