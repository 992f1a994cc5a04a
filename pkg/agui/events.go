// Package agui defines the wire protocol spoken between the bridge and its
// clients: the inbound run request and the ordered event stream emitted while
// a turn is being processed. Events are framed as server-sent events, one
// JSON object per frame, flushed as they are produced.
package agui

import "time"

// ProtocolVersion identifies the event protocol spoken on the stream.
const ProtocolVersion = "AG-UI 1.0"

// RunInput is the inbound request that opens a turn. One request maps to
// exactly one turn on the session identified by (AppID, UserID).
type RunInput struct {
	AppID   string `json:"app_id"`
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// EventType tags the variants of the outbound event stream.
type EventType string

const (
	EventTurnStarted      EventType = "turn_started"
	EventTextDelta        EventType = "text_delta"
	EventToolCallStarted  EventType = "tool_call_started"
	EventToolCallFinished EventType = "tool_call_finished"
	EventTurnFinished     EventType = "turn_finished"
	EventTurnFailed       EventType = "turn_failed"
)

// Terminal reports whether t ends a turn. Exactly one terminal event is
// emitted per turn and nothing follows it.
func (t EventType) Terminal() bool {
	return t == EventTurnFinished || t == EventTurnFailed
}

// ToolCall describes a requested tool execution as announced on the stream.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult carries the normalized outcome of a tool execution. Outcome is
// one of SUCCESS, TOOL_NOT_FOUND, INVALID_ARGUMENTS or EXECUTION_ERROR;
// Payload holds the structured value on success and diagnostic data
// otherwise, Error holds a human-readable description for error outcomes.
type ToolResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Event is one frame on the stream. Type selects which of the optional
// fields are populated.
type Event struct {
	Type       EventType   `json:"type"`
	TurnID     string      `json:"turn_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Delta      string      `json:"delta,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// NewEvent builds an event frame stamped with the current time.
func NewEvent(typ EventType, turnID string) Event {
	return Event{Type: typ, TurnID: turnID, Timestamp: time.Now()}
}
