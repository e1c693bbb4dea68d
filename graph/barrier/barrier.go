// Package barrier implements the deterministic merge step between
// supersteps: it folds a set of per-node partials into VersionedState
// through the reducer registry, in canonical sorted-node order. See
// spec.md §4.5.
package barrier

import (
	"sort"

	"github.com/weavegraph/weavegraph/graph"
	"github.com/weavegraph/weavegraph/graph/scheduler"
)

// StepReport is everything a caller needs to know about one completed
// superstep: who ran, who was skipped, which channels actually changed,
// and the resulting state.
type StepReport struct {
	Step            int
	Ran             []graph.NodeKind
	Skipped         []graph.NodeKind
	UpdatedChannels []string
	NewState        *graph.VersionedState
	NewVersionsSeen graph.VersionsSeen
	Aborted         bool
	AbortErr        *graph.NodeError
}

// Merge folds result's partials into state through registry, advancing
// exactly the channels whose contents changed, then returns the resulting
// StepReport. state is mutated in place; versionsSeen is not (Merge
// returns a new map via Clone).
//
// Merge never itself fails: a reducer is required to be total on valid
// inputs (see graph.Reducer), so there is no error path here. Step-level
// failure is carried through result.Aborted/AbortErr instead.
func Merge(
	step int,
	state *graph.VersionedState,
	versionsSeen graph.VersionsSeen,
	registry *graph.ReducerRegistry,
	result scheduler.StepResult,
) StepReport {
	nodeIDs := make([]string, 0, len(result.Partials))
	for id := range result.Partials {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	var updated []string

	if changed := mergeMessages(state, registry, result.Partials, nodeIDs); changed {
		updated = append(updated, graph.ChannelMessages)
	}
	if changed := mergeErrors(state, registry, result.Partials, nodeIDs); changed {
		updated = append(updated, graph.ChannelErrors)
	}
	if changed := mergeExtras(state, registry, result.Partials, nodeIDs); changed {
		updated = append(updated, graph.ChannelExtras)
	}

	newSeen := versionsSeen.Clone()
	for _, kind := range result.Ran {
		newSeen.Record(kind.Name(), graph.ChannelMessages, state.Messages.Version)
		newSeen.Record(kind.Name(), graph.ChannelErrors, state.Errors.Version)
		newSeen.Record(kind.Name(), graph.ChannelExtras, state.Extras.Version)
	}

	return StepReport{
		Step:            step,
		Ran:             result.Ran,
		Skipped:         result.Skipped,
		UpdatedChannels: updated,
		NewState:        state,
		NewVersionsSeen: newSeen,
		Aborted:         result.Aborted,
		AbortErr:        result.AbortErr,
	}
}

func mergeMessages(state *graph.VersionedState, registry *graph.ReducerRegistry, partials map[string]graph.NodePartial, nodeIDs []string) bool {
	var updates []any
	for _, id := range nodeIDs {
		if msgs := partials[id].Messages; len(msgs) > 0 {
			updates = append(updates, msgs)
		}
	}
	reducer, ok := registry.Lookup(graph.ChannelMessages)
	if !ok || len(updates) == 0 {
		return false
	}
	next, changed := reducer(state.Messages.Items, updates)
	if !changed {
		return false
	}
	state.Messages.Items, _ = next.([]graph.Message)
	state.Messages.Version++
	return true
}

func mergeErrors(state *graph.VersionedState, registry *graph.ReducerRegistry, partials map[string]graph.NodePartial, nodeIDs []string) bool {
	var updates []any
	for _, id := range nodeIDs {
		if errs := partials[id].Errors; len(errs) > 0 {
			updates = append(updates, errs)
		}
	}
	reducer, ok := registry.Lookup(graph.ChannelErrors)
	if !ok || len(updates) == 0 {
		return false
	}
	next, changed := reducer(state.Errors.Items, updates)
	if !changed {
		return false
	}
	state.Errors.Items, _ = next.([]graph.ErrorEvent)
	state.Errors.Version++
	return true
}

func mergeExtras(state *graph.VersionedState, registry *graph.ReducerRegistry, partials map[string]graph.NodePartial, nodeIDs []string) bool {
	var updates []any
	for _, id := range nodeIDs {
		if extras := partials[id].Extras; len(extras) > 0 {
			updates = append(updates, extras)
		}
	}
	reducer, ok := registry.Lookup(graph.ChannelExtras)
	if !ok || len(updates) == 0 {
		return false
	}
	next, changed := reducer(state.Extras.Items, updates)
	if !changed {
		return false
	}
	state.Extras.Items, _ = next.(map[string]any)
	state.Extras.Version++
	return true
}
