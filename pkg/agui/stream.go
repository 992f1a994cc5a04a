package agui

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// StreamWriter frames events onto an HTTP response as server-sent events.
// Send blocks until the frame has been handed to the transport, so a slow
// client exerts backpressure on the producer instead of losing frames.
type StreamWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewStreamWriter prepares w for event streaming. It returns an error if the
// underlying writer cannot flush incrementally, since buffering the whole
// stream would defeat the protocol.
func NewStreamWriter(w http.ResponseWriter) (*StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("agui: response writer does not support streaming")
	}
	return &StreamWriter{w: w, flusher: flusher}, nil
}

// Send writes one event frame and flushes it to the client.
func (s *StreamWriter) Send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("agui: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("agui: write frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// StreamReader decodes server-sent event frames back into events. It is the
// client-side counterpart of StreamWriter and is used by the chat command
// and by tests.
type StreamReader struct {
	scanner *bufio.Scanner
}

// NewStreamReader wraps r for frame-by-frame decoding.
func NewStreamReader(r io.Reader) *StreamReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamReader{scanner: sc}
}

// Next returns the next event on the stream, or io.EOF when the stream ends.
func (r *StreamReader) Next() (Event, error) {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return Event{}, fmt.Errorf("agui: decode frame: %w", err)
		}
		return ev, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
