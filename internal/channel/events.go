package channel

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Frame types sent by the service.
const (
	TypeStatus       = "status"
	TypeAgentMessage = "agent_message"
	TypeError        = "error"
)

// Event is a decoded inbound frame. The concrete type is one of
// StatusEvent, AgentMessageEvent, ErrorEvent or UnknownEvent.
type Event interface {
	Type() string
	sealed()
}

// StatusEvent reports generation progress.
type StatusEvent struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// AgentMessageEvent carries one message produced by an agent.
type AgentMessageEvent struct {
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ErrorEvent reports that generation halted.
type ErrorEvent struct {
	Message string `json:"message"`
}

// UnknownEvent is any frame whose type this client does not handle.
type UnknownEvent struct {
	Kind string
	Data json.RawMessage
}

func (StatusEvent) Type() string       { return TypeStatus }
func (AgentMessageEvent) Type() string { return TypeAgentMessage }
func (ErrorEvent) Type() string        { return TypeError }
func (e UnknownEvent) Type() string    { return e.Kind }

func (StatusEvent) sealed()       {}
func (AgentMessageEvent) sealed() {}
func (ErrorEvent) sealed()        {}
func (UnknownEvent) sealed()      {}

// Completed reports whether the status marks the end of generation.
func (e StatusEvent) Completed() bool {
	return e.Status == "completed"
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var (
	errNoType = errors.New("frame has no type")
	errNoData = errors.New("frame has no data object")
)

// Decode parses a {type, data} frame.
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, newDecodeError(frame, err)
	}
	if env.Type == "" {
		return nil, newDecodeError(frame, errNoType)
	}

	switch env.Type {
	case TypeStatus:
		var ev StatusEvent
		if err := decodeData(env.Data, &ev); err != nil {
			return nil, newDecodeError(frame, err)
		}
		return ev, nil
	case TypeAgentMessage:
		var ev AgentMessageEvent
		if err := decodeData(env.Data, &ev); err != nil {
			return nil, newDecodeError(frame, err)
		}
		return ev, nil
	case TypeError:
		var ev ErrorEvent
		if err := decodeData(env.Data, &ev); err != nil {
			return nil, newDecodeError(frame, err)
		}
		return ev, nil
	default:
		return UnknownEvent{Kind: env.Type, Data: env.Data}, nil
	}
}

func decodeData(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNoData
	}
	return json.Unmarshal(trimmed, v)
}
