package checkpoint

import (
	"fmt"
	"strings"

	"github.com/weavegraph/weavegraph/graph"
)

const customPrefix = "Custom:"

// EncodeNodeKind returns the canonical persisted string for k: "Start",
// "End", or "Custom:<name>". This encoding is fixed and versioned per
// spec.md §4.7; changing it requires a migration for any already-persisted
// checkpoint.
func EncodeNodeKind(k graph.NodeKind) string {
	switch {
	case k.IsStart():
		return "Start"
	case k.IsEnd():
		return "End"
	default:
		return customPrefix + k.Name()
	}
}

// DecodeNodeKind parses a string produced by EncodeNodeKind.
func DecodeNodeKind(s string) (graph.NodeKind, error) {
	switch {
	case s == "Start":
		return graph.Start, nil
	case s == "End":
		return graph.End, nil
	case strings.HasPrefix(s, customPrefix):
		return graph.Custom(strings.TrimPrefix(s, customPrefix)), nil
	default:
		return graph.NodeKind{}, fmt.Errorf("checkpoint: invalid node kind encoding %q", s)
	}
}

func encodeNodeKinds(kinds []graph.NodeKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = EncodeNodeKind(k)
	}
	return out
}

func decodeNodeKinds(names []string) ([]graph.NodeKind, error) {
	out := make([]graph.NodeKind, len(names))
	for i, name := range names {
		k, err := DecodeNodeKind(name)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}
