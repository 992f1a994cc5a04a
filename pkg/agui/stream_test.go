package agui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamWriterFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewStreamWriter(rec)
	require.NoError(t, err)

	ev := NewEvent(EventTextDelta, "turn-1")
	ev.Delta = "hello"
	require.NoError(t, w.Send(ev))

	resp := rec.Result()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: "))
	assert.True(t, strings.HasSuffix(body, "\n\n"))
	assert.True(t, rec.Flushed)
}

// noFlushWriter hides the recorder's Flush method so the writer sees a
// transport that cannot stream.
type noFlushWriter struct{ http.ResponseWriter }

func TestStreamWriterRequiresFlusher(t *testing.T) {
	_, err := NewStreamWriter(noFlushWriter{httptest.NewRecorder()})
	assert.Error(t, err)
}

func TestStreamRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewStreamWriter(rec)
	require.NoError(t, err)

	started := NewEvent(EventTurnStarted, "turn-1")
	delta := NewEvent(EventTextDelta, "turn-1")
	delta.Delta = "partial text"
	call := NewEvent(EventToolCallStarted, "turn-1")
	call.ToolCall = &ToolCall{ID: "inv-1", Name: "get_weather", Args: map[string]any{"location": "Paris"}}
	result := NewEvent(EventToolCallFinished, "turn-1")
	result.ToolResult = &ToolResult{ID: "inv-1", Name: "get_weather", Outcome: "SUCCESS", Payload: map[string]any{"condition": "sunny"}}
	finished := NewEvent(EventTurnFinished, "turn-1")

	for _, ev := range []Event{started, delta, call, result, finished} {
		require.NoError(t, w.Send(ev))
	}

	r := NewStreamReader(rec.Body)
	var got []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, ev)
	}

	require.Len(t, got, 5)
	assert.Equal(t, EventTurnStarted, got[0].Type)
	assert.Equal(t, "partial text", got[1].Delta)
	require.NotNil(t, got[2].ToolCall)
	assert.Equal(t, "get_weather", got[2].ToolCall.Name)
	assert.Equal(t, "Paris", got[2].ToolCall.Args["location"])
	require.NotNil(t, got[3].ToolResult)
	assert.Equal(t, "SUCCESS", got[3].ToolResult.Outcome)
	assert.Equal(t, "inv-1", got[3].ToolResult.ID)
	assert.Equal(t, EventTurnFinished, got[4].Type)
	for _, ev := range got {
		assert.Equal(t, "turn-1", ev.TurnID)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestStreamReaderSkipsNonDataLines(t *testing.T) {
	input := ": keepalive\n\ndata: {\"type\":\"turn_started\",\"turn_id\":\"t1\"}\n\n"
	r := NewStreamReader(strings.NewReader(input))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, EventTurnStarted, ev.Type)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventTypeTerminal(t *testing.T) {
	assert.True(t, EventTurnFinished.Terminal())
	assert.True(t, EventTurnFailed.Terminal())
	assert.False(t, EventTurnStarted.Terminal())
	assert.False(t, EventTextDelta.Terminal())
	assert.False(t, EventToolCallStarted.Terminal())
	assert.False(t, EventToolCallFinished.Terminal())
}
