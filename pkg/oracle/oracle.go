// Package oracle defines the reasoning boundary of the bridge. An Oracle
// consumes the conversation history, the available tool schemas and a new
// user message, and produces the step sequence for one turn: text deltas,
// tool-call requests and an end-of-turn marker. The bridge drives the steps;
// it never implements the decision logic itself.
package oracle

import (
	"context"

	"github.com/edderleonardo/adk-agui-tutorial/pkg/tools"
)

// StepKind tags the step variants an oracle can produce.
type StepKind string

const (
	StepTextDelta StepKind = "text_delta"
	StepToolCall  StepKind = "tool_call"
	StepEndTurn   StepKind = "end_turn"
)

// Step is one unit of oracle output.
type Step struct {
	Kind     StepKind
	Text     string         // set for StepTextDelta
	ToolName string         // set for StepToolCall
	ToolArgs map[string]any // set for StepToolCall
}

// Text builds a text-delta step.
func Text(s string) Step { return Step{Kind: StepTextDelta, Text: s} }

// Call builds a tool-call step.
func Call(name string, args map[string]any) Step {
	return Step{Kind: StepToolCall, ToolName: name, ToolArgs: args}
}

// End builds an end-of-turn step.
func End() Step { return Step{Kind: StepEndTurn} }

// ToolTrace records one tool exchange inside an assistant message, so past
// tool use can be replayed into the oracle's context.
type ToolTrace struct {
	Name    string
	Args    map[string]any
	Payload any
	IsError bool
	Error   string
}

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation history handed to the oracle.
type Message struct {
	Role       Role
	Content    string
	ToolTraces []ToolTrace // tool exchanges made while producing this message
}

// Request carries everything an oracle needs to produce a turn's steps.
// The oracle is invoked fresh per turn with the session's accumulated
// history.
type Request struct {
	AppID       string
	UserID      string
	SessionID   string
	TurnID      string
	History     []Message
	Tools       []tools.Schema
	UserMessage string
}

// ToolResult is the oracle-facing view of a dispatched tool call's outcome,
// fed back before the oracle continues reasoning.
type ToolResult struct {
	Name    string
	Payload any
	IsError bool
	Error   string
}

// Stream yields the step sequence for one turn. After a StepToolCall the
// caller must feed the result via Provide before calling Next again; the
// oracle is logically blocked on it. Next returns an error on unrecoverable
// oracle failure, which ends the turn.
type Stream interface {
	Next(ctx context.Context) (Step, error)
	Provide(ctx context.Context, result ToolResult) error
	Close() error
}

// Oracle produces the step sequence for a turn. Implementations wrap a
// concrete model provider; alternative providers can be substituted freely.
type Oracle interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}
