package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) (*Dispatcher, *Registry) {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(Schema{
		Name:        "lookup",
		Description: "echoes its validated arguments",
		Params: []Param{
			{Name: "query", Type: TypeString, Required: true},
			{Name: "limit", Type: TypeInteger},
			{Name: "max_price", Type: TypeNumber},
			{Name: "in_stock_only", Type: TypeBoolean, Default: false},
		},
	}, echoFn))
	return NewDispatcher(reg, opts...), reg
}

func TestInvokeSuccess(t *testing.T) {
	disp, _ := newTestDispatcher(t)

	res := disp.Invoke(context.Background(), Invocation{
		ID:   "inv-1",
		Tool: "lookup",
		Args: map[string]any{"query": "keyboard"},
	})

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.True(t, res.OK())
	assert.Equal(t, "inv-1", res.InvocationID)
	assert.Equal(t, "lookup", res.Tool)
	assert.Empty(t, res.Err)

	args, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "keyboard", args["query"])
	// Defaults are filled for absent optional parameters.
	assert.Equal(t, false, args["in_stock_only"])
}

func TestInvokeToolNotFound(t *testing.T) {
	disp, reg := newTestDispatcher(t)

	res := disp.Invoke(context.Background(), Invocation{ID: "inv-1", Tool: "get_wether"})

	assert.Equal(t, OutcomeToolNotFound, res.Outcome)
	assert.False(t, res.OK())
	assert.Contains(t, res.Err, "get_wether")

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, reg.Names(), payload["known_tools"])
}

func TestInvokeInvalidArgumentsAggregated(t *testing.T) {
	disp, _ := newTestDispatcher(t)

	res := disp.Invoke(context.Background(), Invocation{
		ID:   "inv-1",
		Tool: "lookup",
		Args: map[string]any{
			"limit":   "ten",
			"unknown": true,
		},
	})

	assert.Equal(t, OutcomeInvalidArguments, res.Outcome)
	// All problems are reported, not just the first.
	assert.Contains(t, res.Err, `missing required parameter "query"`)
	assert.Contains(t, res.Err, `unknown parameter "unknown"`)
	assert.Contains(t, res.Err, `parameter "limit"`)
}

func TestInvokeCoercion(t *testing.T) {
	disp, _ := newTestDispatcher(t)

	// JSON numbers arrive as float64; integral values coerce to int and
	// integers widen to float64.
	res := disp.Invoke(context.Background(), Invocation{
		ID:   "inv-1",
		Tool: "lookup",
		Args: map[string]any{
			"query":     "mouse",
			"limit":     float64(3),
			"max_price": 100,
		},
	})
	require.Equal(t, OutcomeSuccess, res.Outcome, res.Err)

	args := res.Payload.(map[string]any)
	assert.Equal(t, 3, args["limit"])
	assert.Equal(t, float64(100), args["max_price"])

	res = disp.Invoke(context.Background(), Invocation{
		ID:   "inv-2",
		Tool: "lookup",
		Args: map[string]any{"query": "mouse", "limit": 2.5},
	})
	assert.Equal(t, OutcomeInvalidArguments, res.Outcome)
}

func TestInvokeExecutionErrorFromError(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Schema{Name: "failing"}, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("backend unavailable")
	}))
	disp := NewDispatcher(reg)

	res := disp.Invoke(context.Background(), Invocation{ID: "inv-1", Tool: "failing"})

	assert.Equal(t, OutcomeExecutionError, res.Outcome)
	assert.Contains(t, res.Err, "backend unavailable")
	assert.Nil(t, res.Payload)
}

func TestInvokeExecutionErrorFromPanic(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Schema{Name: "panicking"}, func(context.Context, map[string]any) (any, error) {
		panic("boom")
	}))
	disp := NewDispatcher(reg)

	res := disp.Invoke(context.Background(), Invocation{ID: "inv-1", Tool: "panicking"})

	assert.Equal(t, OutcomeExecutionError, res.Outcome)
	assert.Contains(t, res.Err, "boom")
}

func TestInvokeTimeout(t *testing.T) {
	reg := NewRegistry()
	block := make(chan struct{})
	require.NoError(t, reg.Register(Schema{Name: "slow"}, func(context.Context, map[string]any) (any, error) {
		<-block
		return "done", nil
	}))
	t.Cleanup(func() { close(block) })

	disp := NewDispatcher(reg, WithTimeout(20*time.Millisecond))

	res := disp.Invoke(context.Background(), Invocation{ID: "inv-1", Tool: "slow"})

	assert.Equal(t, OutcomeExecutionError, res.Outcome)
	assert.Contains(t, res.Err, "deadline")
}
