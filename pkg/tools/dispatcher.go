package tools

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
)

// Outcome tags the result of one tool invocation.
type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeToolNotFound     Outcome = "TOOL_NOT_FOUND"
	OutcomeInvalidArguments Outcome = "INVALID_ARGUMENTS"
	OutcomeExecutionError   Outcome = "EXECUTION_ERROR"
)

// Invocation is a single requested execution of one tool. The ID is unique
// within the owning turn and ties the start and finish events together.
type Invocation struct {
	ID   string
	Tool string
	Args map[string]any
}

// Result is the normalized envelope around a tool's raw result. Exactly one
// Result is produced per Invocation. Payload carries the tool's structured
// value on success and diagnostic data otherwise; Err is a human-readable
// description for error outcomes.
type Result struct {
	InvocationID string
	Tool         string
	Outcome      Outcome
	Payload      any
	Err          string
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool { return r.Outcome == OutcomeSuccess }

// Dispatcher validates invocations against the registry and executes them.
// A failure of any single invocation is terminal for that invocation only:
// it is folded into the Result and never propagates to the caller as an
// error, letting the oracle decide whether to recover conversationally.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	log      logr.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout bounds each tool execution. A timed-out execution is reported
// as an EXECUTION_ERROR outcome. Zero means no per-call bound.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithLogger sets the dispatcher logger.
func WithLogger(log logr.Logger) DispatcherOption {
	return func(disp *Dispatcher) { disp.log = log }
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry, log: logr.Discard()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Invoke resolves, validates and executes one invocation. Validation order:
// registry lookup, then argument validation, then execution.
func (d *Dispatcher) Invoke(ctx context.Context, inv Invocation) Result {
	tool, ok := d.registry.Lookup(inv.Tool)
	if !ok {
		d.log.V(1).Info("tool not found", "tool", inv.Tool, "invocation", inv.ID)
		return Result{
			InvocationID: inv.ID,
			Tool:         inv.Tool,
			Outcome:      OutcomeToolNotFound,
			Payload:      map[string]any{"known_tools": d.registry.Names()},
			Err:          fmt.Sprintf("tool not found: %s", inv.Tool),
		}
	}

	args, err := validateArgs(tool.Schema, inv.Args)
	if err != nil {
		d.log.V(1).Info("invalid arguments", "tool", inv.Tool, "invocation", inv.ID, "error", err.Error())
		return Result{
			InvocationID: inv.ID,
			Tool:         inv.Tool,
			Outcome:      OutcomeInvalidArguments,
			Err:          err.Error(),
		}
	}

	payload, err := d.execute(ctx, tool, args)
	if err != nil {
		d.log.Error(err, "tool execution failed", "tool", inv.Tool, "invocation", inv.ID)
		return Result{
			InvocationID: inv.ID,
			Tool:         inv.Tool,
			Outcome:      OutcomeExecutionError,
			Err:          fmt.Sprintf("tool %s failed: %v", inv.Tool, err),
		}
	}

	return Result{
		InvocationID: inv.ID,
		Tool:         inv.Tool,
		Outcome:      OutcomeSuccess,
		Payload:      payload,
	}
}

// execute runs the tool body with panic recovery and the optional per-call
// timeout. The tool function itself always runs to completion; a timeout or
// cancellation only abandons the wait for its result.
func (d *Dispatcher) execute(ctx context.Context, tool Tool, args map[string]any) (any, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	type outcome struct {
		payload any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		payload, err := tool.Fn(ctx, args)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		return out.payload, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// validateArgs checks supplied arguments against the schema: unknown
// parameters are rejected, required parameters must be present, every value
// must coerce to its declared type. Defaults are filled for absent optional
// parameters. All offending parameters are reported, not just the first.
func validateArgs(schema Schema, supplied map[string]any) (map[string]any, error) {
	var errs *multierror.Error

	for name := range supplied {
		if _, ok := schema.Param(name); !ok {
			errs = multierror.Append(errs, fmt.Errorf("unknown parameter %q", name))
		}
	}

	out := make(map[string]any, len(schema.Params))
	for _, p := range schema.Params {
		raw, present := supplied[p.Name]
		if !present || raw == nil {
			if p.Required {
				errs = multierror.Append(errs, fmt.Errorf("missing required parameter %q", p.Name))
			} else if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		coerced, err := coerce(p.Type, raw)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("parameter %q: %w", p.Name, err))
			continue
		}
		out[p.Name] = coerced
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// coerce converts a decoded JSON value to the declared parameter type.
// JSON numbers arrive as float64; integral floats are accepted for integer
// parameters and integers widen to number.
func coerce(typ ParamType, v any) (any, error) {
	switch typ {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		return b, nil
	case TypeInteger:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int(n), nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("expected number, got %T", v)
		}
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", typ)
	}
}
