package tools

import (
	"fmt"

	"github.com/edderleonardo/adk-agui-tutorial/pkg/apperrors"
)

// Registry holds the set of callable tools. It is populated once during
// process initialization and treated as read-only afterwards, so concurrent
// lookups need no locking beyond safe publication at startup.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. It fails if a tool of the same name already exists
// or the schema is structurally invalid.
func (r *Registry) Register(schema Schema, fn Func) error {
	if schema.Name == "" {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, "tool schema has no name", nil)
	}
	if fn == nil {
		return apperrors.New(apperrors.ErrCodeConfigInvalid,
			fmt.Sprintf("tool %q has no function", schema.Name), nil)
	}
	if _, exists := r.tools[schema.Name]; exists {
		return apperrors.New(apperrors.ErrCodeDuplicateTool,
			fmt.Sprintf("tool %q already registered", schema.Name), nil)
	}
	seen := make(map[string]bool, len(schema.Params))
	for _, p := range schema.Params {
		if seen[p.Name] {
			return apperrors.New(apperrors.ErrCodeConfigInvalid,
				fmt.Sprintf("tool %q declares parameter %q twice", schema.Name, p.Name), nil)
		}
		seen[p.Name] = true
	}
	r.order = append(r.order, schema.Name)
	r.tools[schema.Name] = Tool{Schema: schema, Fn: fn}
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Schemas returns the registered schemas in registration order.
func (r *Registry) Schemas() []Schema {
	out := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Schema)
	}
	return out
}
