package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for driving expiry.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	st := NewStore(Config{})

	a := st.GetOrCreate("shop", "alice")
	b := st.GetOrCreate("shop", "alice")
	assert.Same(t, a, b)
	assert.Equal(t, StateActive, a.State())

	// Different key components give independent sessions.
	other := st.GetOrCreate("shop", "bob")
	assert.NotSame(t, a, other)
	otherApp := st.GetOrCreate("support", "alice")
	assert.NotSame(t, a, otherApp)
	assert.NotSame(t, other, otherApp)
	assert.Equal(t, 3, st.Len())
}

func TestExpiredSessionIsReplacedLazily(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(Config{IdleTimeout: time.Hour}, WithClock(clock.Now))

	first := st.GetOrCreate("shop", "alice")
	first.AppendTurn(&Turn{ID: "t1", UserMessage: "hi"}, clock.Now())

	clock.Advance(time.Hour + time.Minute)

	second := st.GetOrCreate("shop", "alice")
	require.NotSame(t, first, second)
	assert.Equal(t, StateExpired, first.State())
	assert.Empty(t, first.History(), "expiry discards history")
	assert.Equal(t, StateActive, second.State())
	assert.Empty(t, second.History(), "replacement starts fresh")
}

func TestActivityDefersExpiry(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(Config{IdleTimeout: time.Hour}, WithClock(clock.Now))

	first := st.GetOrCreate("shop", "alice")
	clock.Advance(59 * time.Minute)
	// A lookup inside the window refreshes the idle clock.
	assert.Same(t, first, st.GetOrCreate("shop", "alice"))
	clock.Advance(59 * time.Minute)
	assert.Same(t, first, st.GetOrCreate("shop", "alice"))
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(Config{IdleTimeout: time.Hour}, WithClock(clock.Now))

	st.GetOrCreate("shop", "alice")
	st.GetOrCreate("shop", "bob")
	clock.Advance(30 * time.Minute)
	st.GetOrCreate("shop", "carol")
	require.Equal(t, 3, st.Len())

	clock.Advance(45 * time.Minute)

	evicted := st.Sweep(clock.Now())
	assert.Equal(t, 2, evicted, "alice and bob idle past the timeout, carol not")
	assert.Equal(t, 1, st.Len())
}

func TestSweepSkipsBusySessions(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(Config{IdleTimeout: time.Hour}, WithClock(clock.Now))

	sess := st.GetOrCreate("shop", "alice")
	release := sess.Acquire()
	defer release()

	clock.Advance(2 * time.Hour)

	assert.Equal(t, 0, st.Sweep(clock.Now()), "a session with a turn in flight is busy, not idle")
	assert.Same(t, sess, st.GetOrCreate("shop", "alice"))
}

func TestAcquireSerializesTurns(t *testing.T) {
	st := NewStore(Config{})
	sess := st.GetOrCreate("shop", "alice")

	var order []int
	var mu sync.Mutex
	record := func(n int) {
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
	}

	release := sess.Acquire()
	secondRunning := make(chan struct{})
	go func() {
		release := sess.Acquire()
		defer release()
		record(2)
		close(secondRunning)
	}()

	record(1)
	release()
	<-secondRunning

	assert.Equal(t, []int{1, 2}, order)
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	st := NewStore(Config{})
	st.Stop()
}
