package graph

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/tmc/langchaingo/llms"
)

// Reducer merges a new value for a state key into the current one.
type Reducer func(current, incoming any) (any, error)

// Schema defines per-key update logic for the graph state.
type Schema struct {
	reducers map[string]Reducer
}

// NewSchema creates an empty schema. Keys without a reducer are overwritten.
func NewSchema() *Schema {
	return &Schema{reducers: make(map[string]Reducer)}
}

// RegisterReducer installs a reducer for a key.
func (s *Schema) RegisterReducer(key string, reducer Reducer) *Schema {
	s.reducers[key] = reducer
	return s
}

// Init returns an empty state.
func (s *Schema) Init() State {
	return make(State)
}

// Update merges an update into the current state, applying reducers.
// The current state is not mutated.
func (s *Schema) Update(current, update State) (State, error) {
	result := make(State, len(current)+len(update))
	maps.Copy(result, current)

	for k, v := range update {
		if reducer, ok := s.reducers[k]; ok {
			merged, err := reducer(result[k], v)
			if err != nil {
				return nil, fmt.Errorf("failed to reduce key %s: %w", k, err)
			}
			result[k] = merged
		} else {
			result[k] = v
		}
	}
	return result, nil
}

// NewMessageSchema returns a schema where "messages" accumulates
// llms.MessageContent values. This is the schema chat-style graphs use.
func NewMessageSchema() *Schema {
	return NewSchema().RegisterReducer("messages", AddMessages)
}

// OverwriteReducer replaces the old value with the new one.
func OverwriteReducer(current, incoming any) (any, error) {
	return incoming, nil
}

// AppendReducer appends the incoming value(s) to the current []any slice.
func AppendReducer(current, incoming any) (any, error) {
	slice, err := toAnySlice(current)
	if err != nil {
		return nil, err
	}
	add, err := toAnySlice(incoming)
	if err != nil {
		return nil, err
	}
	return append(slice, add...), nil
}

func toAnySlice(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	default:
		return []any{t}, nil
	}
}

// AddMessages accumulates chat messages. It accepts a single message or a
// slice on either side.
func AddMessages(current, incoming any) (any, error) {
	msgs, err := toMessages(current)
	if err != nil {
		return nil, fmt.Errorf("current messages: %w", err)
	}
	add, err := toMessages(incoming)
	if err != nil {
		return nil, fmt.Errorf("incoming messages: %w", err)
	}
	return append(msgs, add...), nil
}

func toMessages(v any) ([]llms.MessageContent, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case llms.MessageContent:
		return []llms.MessageContent{t}, nil
	case []llms.MessageContent:
		return t, nil
	case map[string]any:
		msg, err := decodeMessage(t)
		if err != nil {
			return nil, err
		}
		return []llms.MessageContent{msg}, nil
	case []any:
		msgs := make([]llms.MessageContent, 0, len(t))
		for _, item := range t {
			switch m := item.(type) {
			case llms.MessageContent:
				msgs = append(msgs, m)
			case map[string]any:
				msg, err := decodeMessage(m)
				if err != nil {
					return nil, err
				}
				msgs = append(msgs, msg)
			default:
				return nil, fmt.Errorf("unexpected message type %T", item)
			}
		}
		return msgs, nil
	default:
		return nil, fmt.Errorf("unexpected messages value type %T", v)
	}
}

// decodeMessage rebuilds a message that went through the JSON round-trip of a
// persistent checkpoint store, using the message type's own codec.
func decodeMessage(m map[string]any) (llms.MessageContent, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return llms.MessageContent{}, fmt.Errorf("failed to re-encode message: %w", err)
	}
	var msg llms.MessageContent
	if err := json.Unmarshal(raw, &msg); err != nil {
		return llms.MessageContent{}, fmt.Errorf("failed to decode message: %w", err)
	}
	return msg, nil
}

// Messages extracts the accumulated messages from a state.
func Messages(state State) []llms.MessageContent {
	msgs, err := toMessages(state["messages"])
	if err != nil {
		return nil
	}
	return msgs
}
