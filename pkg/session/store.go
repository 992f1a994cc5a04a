package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// Defaults for the store configuration.
const (
	DefaultIdleTimeout   = time.Hour
	DefaultSweepInterval = time.Minute
)

// Config controls session eviction.
type Config struct {
	// IdleTimeout is how long a session may sit without activity before it
	// expires and its history is discarded.
	IdleTimeout time.Duration
	// SweepInterval is how often the background sweeper runs.
	SweepInterval time.Duration
}

type key struct {
	appID  string
	userID string
}

// Store is the process-wide table of active sessions. It is constructed
// explicitly and injected into the request-handling layer; Start/Stop bound
// the background sweeper's lifecycle.
type Store struct {
	cfg Config
	log logr.Logger
	now func() time.Time

	mu       sync.Mutex
	sessions map[key]*Session

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store logger.
func WithStoreLogger(log logr.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// WithClock overrides the store's time source. Used by tests to drive
// expiry deterministically.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a session store.
func NewStore(cfg Config, opts ...StoreOption) *Store {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	s := &Store{
		cfg:      cfg,
		log:      logr.Discard(),
		now:      time.Now,
		sessions: make(map[key]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the ACTIVE session for (appID, userID), creating one
// if none exists. An expired entry is discarded transparently and a fresh
// session returned. Creation races for the same key are serialized here, so
// exactly one session object results.
func (st *Store) GetOrCreate(appID, userID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	k := key{appID: appID, userID: userID}
	now := st.now()

	if s, ok := st.sessions[k]; ok {
		if st.retire(k, s, now) == nil {
			s.touch(now)
			return s
		}
	}

	s := &Session{
		ID:         uuid.NewString(),
		AppID:      appID,
		UserID:     userID,
		CreatedAt:  now,
		state:      StateActive,
		lastActive: now,
	}
	st.sessions[k] = s
	st.log.V(1).Info("session created", "app", appID, "user", userID, "session", s.ID)
	return s
}

// retire expires and removes s if it has been idle past the timeout and no
// turn is currently running against it. It returns the retired session, or
// nil if the session stays.
func (st *Store) retire(k key, s *Session, now time.Time) *Session {
	if !s.idleSince(now, st.cfg.IdleTimeout) {
		return nil
	}
	// A session with a turn in flight is busy, not idle.
	if !s.runMu.TryLock() {
		return nil
	}
	s.runMu.Unlock()

	s.expire()
	delete(st.sessions, k)
	st.log.V(1).Info("session expired", "app", k.appID, "user", k.userID, "session", s.ID)
	return s
}

// Sweep expires every session idle past the timeout and returns how many
// were evicted. It is also called periodically by the background sweeper.
func (st *Store) Sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	evicted := 0
	for k, s := range st.sessions {
		if st.retire(k, s, now) != nil {
			evicted++
		}
	}
	return evicted
}

// Len returns the number of ACTIVE sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Start launches the background sweeper. It returns immediately; the
// sweeper runs until Stop is called or ctx is canceled.
func (st *Store) Start(ctx context.Context) {
	st.mu.Lock()
	if st.started {
		st.mu.Unlock()
		return
	}
	st.started = true
	st.mu.Unlock()

	go func() {
		defer close(st.done)
		ticker := time.NewTicker(st.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := st.Sweep(st.now()); n > 0 {
					st.log.V(1).Info("swept sessions", "evicted", n)
				}
			case <-ctx.Done():
				return
			case <-st.stop:
				return
			}
		}
	}()
}

// Stop terminates the background sweeper and waits for it to exit. It is a
// no-op if the sweeper was never started.
func (st *Store) Stop() {
	st.mu.Lock()
	started := st.started
	st.mu.Unlock()
	if !started {
		return
	}
	st.stopOnce.Do(func() { close(st.stop) })
	<-st.done
}
