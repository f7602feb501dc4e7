package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/passgate/passgate/internal/passgate/domain"
	"github.com/passgate/passgate/internal/passgate/store"
	"github.com/passgate/passgate/internal/passgate/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
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

// fixedCodes always hands out the same code, making outcomes deterministic.
type fixedCodes struct {
	code string
}

func (c fixedCodes) Code() string { return c.code }

func newTestRegistry(t *testing.T, clock *fakeClock) *RegistryService {
	t.Helper()
	return NewRegistryService(memory.NewStore(), fixedCodes{code: "4821"}, clock, DefaultOTPTTL)
}

func TestRegistryIssue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	registry := newTestRegistry(t, clock)

	t.Run("record carries code username and window", func(t *testing.T) {
		rec, err := registry.Issue(ctx, "alice")
		require.NoError(t, err)

		require.NotEmpty(t, rec.AttemptKey)
		require.Equal(t, "4821", rec.Code)
		require.Equal(t, "alice", rec.Username)
		require.Equal(t, clock.Now(), rec.CreatedAt)
		require.Equal(t, clock.Now().Add(DefaultOTPTTL), rec.ExpiresAt)

		got, err := registry.Lookup(ctx, rec.AttemptKey)
		require.NoError(t, err)
		require.Equal(t, rec, got)
	})

	t.Run("back to back issues never collide", func(t *testing.T) {
		first, err := registry.Issue(ctx, "bob")
		require.NoError(t, err)
		second, err := registry.Issue(ctx, "bob")
		require.NoError(t, err)

		require.NotEqual(t, first.AttemptKey, second.AttemptKey)

		// Both records are independently retrievable.
		_, err = registry.Lookup(ctx, first.AttemptKey)
		require.NoError(t, err)
		_, err = registry.Lookup(ctx, second.AttemptKey)
		require.NoError(t, err)
	})

	t.Run("codes stay in the four digit range", func(t *testing.T) {
		source := PseudoRandomCodes{}
		for range 500 {
			code := source.Code()
			require.Len(t, code, 4)

			n, err := strconv.Atoi(code)
			require.NoError(t, err)
			require.GreaterOrEqual(t, n, 1000)
			require.LessOrEqual(t, n, 9999)
		}
	})
}

func TestRegistryConsume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("correct code within window", func(t *testing.T) {
		clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		registry := newTestRegistry(t, clock)

		rec, err := registry.Issue(ctx, "alice")
		require.NoError(t, err)

		clock.Advance(30 * time.Second)

		outcome, err := registry.Consume(ctx, rec.AttemptKey, rec.Code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeValid, outcome)

		// Single use: the record is gone.
		_, err = registry.Lookup(ctx, rec.AttemptKey)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("redeemed key cannot be replayed", func(t *testing.T) {
		clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		registry := newTestRegistry(t, clock)

		rec, err := registry.Issue(ctx, "alice")
		require.NoError(t, err)

		outcome, err := registry.Consume(ctx, rec.AttemptKey, rec.Code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeValid, outcome)

		outcome, err = registry.Consume(ctx, rec.AttemptKey, rec.Code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeNotFound, outcome)
	})

	t.Run("mismatch keeps the record for retry", func(t *testing.T) {
		clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		registry := newTestRegistry(t, clock)

		rec, err := registry.Issue(ctx, "alice")
		require.NoError(t, err)

		outcome, err := registry.Consume(ctx, rec.AttemptKey, "0000")
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeMismatch, outcome)

		// Retry with the right code still succeeds.
		outcome, err = registry.Consume(ctx, rec.AttemptKey, rec.Code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeValid, outcome)
	})

	t.Run("valid just inside the window", func(t *testing.T) {
		clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		registry := newTestRegistry(t, clock)

		rec, err := registry.Issue(ctx, "alice")
		require.NoError(t, err)

		clock.Advance(DefaultOTPTTL - time.Second)

		outcome, err := registry.Consume(ctx, rec.AttemptKey, rec.Code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeValid, outcome)
	})

	t.Run("expired exactly at the boundary", func(t *testing.T) {
		clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		registry := newTestRegistry(t, clock)

		rec, err := registry.Issue(ctx, "alice")
		require.NoError(t, err)

		clock.Advance(DefaultOTPTTL)

		outcome, err := registry.Consume(ctx, rec.AttemptKey, rec.Code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeExpired, outcome)

		// The expired record is dropped on the spot.
		_, err = registry.Lookup(ctx, rec.AttemptKey)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired even with the correct code", func(t *testing.T) {
		clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		registry := newTestRegistry(t, clock)

		rec, err := registry.Issue(ctx, "alice")
		require.NoError(t, err)

		clock.Advance(DefaultOTPTTL + 5*time.Second)

		outcome, err := registry.Consume(ctx, rec.AttemptKey, rec.Code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeExpired, outcome)
	})

	t.Run("unknown key", func(t *testing.T) {
		clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		registry := newTestRegistry(t, clock)

		outcome, err := registry.Consume(ctx, "no-such-key", "4821")
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeNotFound, outcome)
	})

	t.Run("concurrent redeems produce at most one valid", func(t *testing.T) {
		clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		registry := newTestRegistry(t, clock)

		rec, err := registry.Issue(ctx, "alice")
		require.NoError(t, err)

		const workers = 16
		outcomes := make(chan domain.Outcome, workers)

		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, err := registry.Consume(ctx, rec.AttemptKey, rec.Code)
				require.NoError(t, err)
				outcomes <- outcome
			}()
		}
		wg.Wait()
		close(outcomes)

		valid := 0
		for outcome := range outcomes {
			if outcome == domain.OutcomeValid {
				valid++
			}
		}
		require.Equal(t, 1, valid)
	})
}

func TestRegistryRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	registry := newTestRegistry(t, clock)

	rec, err := registry.Issue(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, registry.Revoke(ctx, rec.AttemptKey))

	// A revoked key can never be redeemed, even within its window.
	outcome, err := registry.Consume(ctx, rec.AttemptKey, rec.Code)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeNotFound, outcome)

	// Revoking a missing key is a no-op.
	require.NoError(t, registry.Revoke(ctx, rec.AttemptKey))
}

func TestRegistrySweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	registry := newTestRegistry(t, clock)

	stale1, err := registry.Issue(ctx, "alice")
	require.NoError(t, err)
	stale2, err := registry.Issue(ctx, "bob")
	require.NoError(t, err)

	clock.Advance(DefaultOTPTTL + time.Second)

	fresh, err := registry.Issue(ctx, "carol")
	require.NoError(t, err)

	removed, err := registry.Sweep(ctx, clock.Now())
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, err = registry.Lookup(ctx, stale1.AttemptKey)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = registry.Lookup(ctx, stale2.AttemptKey)
	require.ErrorIs(t, err, store.ErrNotFound)

	// The live record survives.
	_, err = registry.Lookup(ctx, fresh.AttemptKey)
	require.NoError(t, err)

	// Sweeping again at the same instant removes nothing.
	removed, err = registry.Sweep(ctx, clock.Now())
	require.NoError(t, err)
	require.Zero(t, removed)
}
