package session

import (
	"sync"
	"testing"
	"time"

	"github.com/passgate/passgate/internal/passgate/domain"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func TestManagerCreateAndGet(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	mgr := NewManager(DefaultIdleTimeout, clock)

	sess := mgr.Create()
	require.NotEmpty(t, sess.ID)
	require.Equal(t, domain.PhaseAnonymous, sess.State.Phase)

	got, ok := mgr.Get(sess.ID)
	require.True(t, ok)
	require.Same(t, sess, got)

	_, ok = mgr.Get("no-such-session")
	require.False(t, ok)
}

func TestManagerSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	mgr := NewManager(DefaultIdleTimeout, nil)

	a := mgr.Create()
	b := mgr.Create()
	require.NotEqual(t, a.ID, b.ID)

	a.Lock()
	a.State.Phase = domain.PhaseAuthenticated
	a.State.AuthenticatedUsername = "alice"
	a.Unlock()

	// Mutating one session never leaks into another.
	require.Equal(t, domain.PhaseAnonymous, b.State.Phase)
	require.Empty(t, b.State.AuthenticatedUsername)
}

func TestManagerIdleExpiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	mgr := NewManager(30*time.Minute, clock)

	sess := mgr.Create()

	t.Run("activity refreshes the deadline", func(t *testing.T) {
		clock.Advance(20 * time.Minute)
		_, ok := mgr.Get(sess.ID)
		require.True(t, ok)

		clock.Advance(20 * time.Minute)
		_, ok = mgr.Get(sess.ID)
		require.True(t, ok)
	})

	t.Run("idle session is dropped on resume", func(t *testing.T) {
		clock.Advance(31 * time.Minute)
		_, ok := mgr.Get(sess.ID)
		require.False(t, ok)
		require.Zero(t, mgr.Len())
	})
}

func TestManagerPruneIdle(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	mgr := NewManager(30*time.Minute, clock)

	idle1 := mgr.Create()
	idle2 := mgr.Create()

	clock.Advance(31 * time.Minute)
	live := mgr.Create()

	removed := mgr.PruneIdle(clock.Now())
	require.Equal(t, 2, removed)
	require.Equal(t, 1, mgr.Len())

	_, ok := mgr.Get(idle1.ID)
	require.False(t, ok)
	_, ok = mgr.Get(idle2.ID)
	require.False(t, ok)
	_, ok = mgr.Get(live.ID)
	require.True(t, ok)

	// A second prune at the same instant is a no-op.
	require.Zero(t, mgr.PruneIdle(clock.Now()))
}

func TestManagerDelete(t *testing.T) {
	t.Parallel()

	mgr := NewManager(DefaultIdleTimeout, nil)
	sess := mgr.Create()

	mgr.Delete(sess.ID)
	_, ok := mgr.Get(sess.ID)
	require.False(t, ok)

	// Deleting again is a no-op.
	mgr.Delete(sess.ID)
}
