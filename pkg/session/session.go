// Package session manages per-user conversational state: one session per
// (app id, user id) pair, holding the ordered turn history, evicted after an
// idle timeout. The store is the single serialization point for concurrent
// requests against the same key.
package session

import (
	"sync"
	"time"

	"github.com/edderleonardo/adk-agui-tutorial/pkg/tools"
)

// State is the session lifecycle state.
type State string

const (
	StateActive  State = "ACTIVE"
	StateExpired State = "EXPIRED"
)

// ToolExchange records one tool invocation and its result within a turn.
type ToolExchange struct {
	Invocation tools.Invocation
	Result     tools.Result
}

// Turn is one request/response exchange. It is assembled by the turn runner
// and becomes immutable once appended to the session history.
type Turn struct {
	ID            string
	UserMessage   string
	AssistantText string
	ToolExchanges []ToolExchange
	StartedAt     time.Time
	EndedAt       time.Time
	Failed        bool
	FailReason    string
}

// Session is the conversational state for one (app id, user id) pair. All
// instances are owned by the Store; turns against one session are serialized
// through the run lock.
type Session struct {
	ID        string
	AppID     string
	UserID    string
	CreatedAt time.Time

	// runMu serializes turns. Held for the whole duration of a turn, so
	// concurrent requests for the same session queue instead of racing.
	runMu sync.Mutex

	mu         sync.Mutex
	state      State
	lastActive time.Time
	history    []*Turn
}

// Acquire blocks until this session is free to run a turn and returns the
// release function.
func (s *Session) Acquire() (release func()) {
	s.runMu.Lock()
	return s.runMu.Unlock
}

// AppendTurn appends a completed turn to the history and refreshes the
// activity timestamp.
func (s *Session) AppendTurn(t *Turn, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, t)
	s.lastActive = now
}

// History returns a snapshot of the turn history.
func (s *Session) History() []*Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Turn, len(s.history))
	copy(out, s.history)
	return out
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive returns the last activity timestamp.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = now
}

func (s *Session) idleSince(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive) > timeout
}

// expire marks the session EXPIRED and discards its history.
func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateExpired
	s.history = nil
}
