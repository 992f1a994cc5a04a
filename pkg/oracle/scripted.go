package oracle

import (
	"context"
	"fmt"
	"sync"
)

// Scripted is an Oracle that replays a fixed step sequence. It backs the
// bridge and server tests and doubles as a stand-in provider when no model
// credentials are available.
type Scripted struct {
	// Steps is the sequence to replay per turn.
	Steps []Step
	// FailAfter, when >= 0, makes Next fail with FailErr after that many
	// steps have been produced.
	FailAfter int
	FailErr   error
	// StreamErr, when set, makes Stream itself fail.
	StreamErr error

	mu       sync.Mutex
	requests []Request
	results  []ToolResult
}

// NewScripted builds a scripted oracle replaying the given steps.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{Steps: steps, FailAfter: -1}
}

// Requests returns every request the oracle has seen.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Results returns every tool result fed back so far.
func (s *Scripted) Results() []ToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ToolResult, len(s.results))
	copy(out, s.results)
	return out
}

// Stream implements Oracle.
func (s *Scripted) Stream(ctx context.Context, req Request) (Stream, error) {
	if s.StreamErr != nil {
		return nil, s.StreamErr
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return &scriptedStream{parent: s}, nil
}

type scriptedStream struct {
	parent  *Scripted
	pos     int
	pending bool // a tool-call step awaits its result
}

func (st *scriptedStream) Next(ctx context.Context) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}
	if st.pending {
		return Step{}, fmt.Errorf("oracle: next called before tool result was provided")
	}
	if st.parent.FailAfter >= 0 && st.pos >= st.parent.FailAfter {
		err := st.parent.FailErr
		if err == nil {
			err = fmt.Errorf("oracle: scripted failure")
		}
		return Step{}, err
	}
	if st.pos >= len(st.parent.Steps) {
		return Step{}, fmt.Errorf("oracle: script exhausted without end_turn")
	}
	step := st.parent.Steps[st.pos]
	st.pos++
	if step.Kind == StepToolCall {
		st.pending = true
	}
	return step, nil
}

func (st *scriptedStream) Provide(ctx context.Context, result ToolResult) error {
	if !st.pending {
		return fmt.Errorf("oracle: unexpected tool result")
	}
	st.pending = false
	st.parent.mu.Lock()
	st.parent.results = append(st.parent.results, result)
	st.parent.mu.Unlock()
	return nil
}

func (st *scriptedStream) Close() error { return nil }
