package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/weavegraph/weavegraph/graph"
)

// stateDTO is the JSON-serializable mirror of graph.VersionedState. The SQL
// backends store one of these per row rather than relying on the struct's
// unexported-free layout staying source-compatible across versions.
type stateDTO struct {
	Messages struct {
		Items   []graph.Message `json:"items"`
		Version int64           `json:"version"`
	} `json:"messages"`
	Errors struct {
		Items   []graph.ErrorEvent `json:"items"`
		Version int64              `json:"version"`
	} `json:"errors"`
	Extras struct {
		Items   map[string]any `json:"items"`
		Version int64          `json:"version"`
	} `json:"extras"`
}

func toStateDTO(s *graph.VersionedState) stateDTO {
	var dto stateDTO
	dto.Messages.Items = s.Messages.Items
	dto.Messages.Version = s.Messages.Version
	dto.Errors.Items = s.Errors.Items
	dto.Errors.Version = s.Errors.Version
	dto.Extras.Items = s.Extras.Items
	dto.Extras.Version = s.Extras.Version
	return dto
}

func (dto stateDTO) toState() *graph.VersionedState {
	s := graph.NewVersionedState()
	s.Messages.Items = dto.Messages.Items
	s.Messages.Version = dto.Messages.Version
	s.Errors.Items = dto.Errors.Items
	s.Errors.Version = dto.Errors.Version
	s.Extras.Items = dto.Extras.Items
	s.Extras.Version = dto.Extras.Version
	if s.Messages.Items == nil {
		s.Messages.Items = []graph.Message{}
	}
	if s.Errors.Items == nil {
		s.Errors.Items = []graph.ErrorEvent{}
	}
	if s.Extras.Items == nil {
		s.Extras.Items = map[string]any{}
	}
	return s
}

func marshalState(s *graph.VersionedState) ([]byte, error) {
	return json.Marshal(toStateDTO(s))
}

func unmarshalState(data []byte) (*graph.VersionedState, error) {
	var dto stateDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal state: %w", err)
	}
	return dto.toState(), nil
}

func marshalNodeKinds(kinds []graph.NodeKind) ([]byte, error) {
	return json.Marshal(encodeNodeKinds(kinds))
}

func unmarshalNodeKinds(data []byte) ([]graph.NodeKind, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal node kinds: %w", err)
	}
	return decodeNodeKinds(names)
}

func marshalUpdatedChannels(channels []string) ([]byte, error) {
	if channels == nil {
		channels = []string{}
	}
	return json.Marshal(channels)
}

func unmarshalUpdatedChannels(data []byte) ([]string, error) {
	var channels []string
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal updated_channels: %w", err)
	}
	return channels, nil
}

func marshalVersionsSeen(v graph.VersionsSeen) ([]byte, error) {
	return json.Marshal(map[string]map[string]int64(v))
}

func unmarshalVersionsSeen(data []byte) (graph.VersionsSeen, error) {
	var raw map[string]map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal versions_seen: %w", err)
	}
	if raw == nil {
		raw = map[string]map[string]int64{}
	}
	return graph.VersionsSeen(raw), nil
}
