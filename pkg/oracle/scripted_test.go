package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedReplaysSteps(t *testing.T) {
	orc := NewScripted(
		Text("hello"),
		Call("get_weather", map[string]any{"location": "Paris"}),
		End(),
	)
	ctx := context.Background()

	st, err := orc.Stream(ctx, Request{UserMessage: "hi"})
	require.NoError(t, err)
	defer st.Close()

	step, err := st.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepTextDelta, step.Kind)
	assert.Equal(t, "hello", step.Text)

	step, err = st.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepToolCall, step.Kind)
	assert.Equal(t, "get_weather", step.ToolName)

	// The script is blocked on the tool result.
	_, err = st.Next(ctx)
	require.Error(t, err)

	require.NoError(t, st.Provide(ctx, ToolResult{Name: "get_weather", Payload: map[string]any{"condition": "sunny"}}))

	step, err = st.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepEndTurn, step.Kind)

	results := orc.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "get_weather", results[0].Name)

	reqs := orc.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hi", reqs[0].UserMessage)
}

func TestScriptedUnexpectedResult(t *testing.T) {
	orc := NewScripted(Text("hello"), End())
	ctx := context.Background()

	st, err := orc.Stream(ctx, Request{})
	require.NoError(t, err)
	defer st.Close()

	assert.Error(t, st.Provide(ctx, ToolResult{Name: "get_weather"}))
}

func TestScriptedFailAfter(t *testing.T) {
	orc := NewScripted(Text("a"), Text("b"), End())
	orc.FailAfter = 1
	orc.FailErr = errors.New("synthetic failure")
	ctx := context.Background()

	st, err := orc.Stream(ctx, Request{})
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Next(ctx)
	require.NoError(t, err)
	_, err = st.Next(ctx)
	assert.ErrorIs(t, err, orc.FailErr)
}

func TestScriptedExhaustionWithoutEndTurn(t *testing.T) {
	orc := NewScripted(Text("a"))
	ctx := context.Background()

	st, err := orc.Stream(ctx, Request{})
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Next(ctx)
	require.NoError(t, err)
	_, err = st.Next(ctx)
	assert.Error(t, err)
}
