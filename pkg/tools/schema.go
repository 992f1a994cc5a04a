// Package tools implements the callable-tool subsystem: declared schemas, a
// startup-time registry and the dispatcher that validates and executes
// invocations on behalf of the agent.
package tools

import "context"

// ParamType enumerates the primitive parameter types a tool may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// Param declares one named tool parameter. A parameter without Required set
// may be omitted by the caller; Default, when non-nil, is filled in before
// execution.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
}

// Schema declares a tool: its unique name, a description surfaced to the
// oracle and to /info, and the ordered parameter list.
type Schema struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`
}

// Param returns the declared parameter with the given name.
func (s Schema) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Func is the executable body of a tool. Implementations are expected to be
// pure and fast; the args map has already been validated and defaulted
// against the schema. A returned error or a panic is reported to the caller
// as an EXECUTION_ERROR outcome, never propagated.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Tool pairs a schema with its executable body.
type Tool struct {
	Schema Schema
	Fn     Func
}
