// Package memory is the default store driver: a mutex-guarded map holding
// outstanding OTP records. It keeps no history and nothing survives a
// restart, which matches the registry's process-local design.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/passgate/passgate/internal/passgate/domain"
	"github.com/passgate/passgate/internal/passgate/store"
)

var errNestedTx = errors.New("memory: nested transactions are not supported")

type Store struct {
	mu   sync.Mutex
	otps map[string]domain.OTPRecord
}

func NewStore() *Store {
	return &Store{
		otps: make(map[string]domain.OTPRecord),
	}
}

// ApplyMigrations is a no-op; the memory driver has no schema.
func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) OTPs() store.OTPs { return &otpsRepo{s: s, locked: false} }

// Tx acquires the store mutex and returns a Tx-scoped view. The memory
// driver's transactions provide mutual exclusion, not rollback: operations
// apply immediately, and Commit/Rollback only release the lock. Callers must
// therefore order mutations last, which every registry sequence does.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memTx{s: s}, nil
}

// WithTx executes fn while holding the store mutex, automatically releasing
// it afterwards.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Ensure the lock is released even if fn panics.
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

type memTx struct {
	s    *Store
	once sync.Once
}

func (t *memTx) release() { t.once.Do(t.s.mu.Unlock) }

func (t *memTx) Commit() error   { t.release(); return nil }
func (t *memTx) Rollback() error { t.release(); return nil }

func (t *memTx) OTPs() store.OTPs               { return &otpsRepo{s: t.s, locked: true} }
func (t *memTx) ApplyMigrations() error         { return nil }
func (t *memTx) Close() error                   { return nil }
func (t *memTx) Ping(ctx context.Context) error { return ctx.Err() }

// Nested transactions are not supported; the registry never needs them.
func (t *memTx) Tx(ctx context.Context) (store.Tx, error) {
	return nil, errNestedTx
}

func (t *memTx) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errNestedTx
}

type otpsRepo struct {
	s *Store
	// locked reports whether the caller already holds the store mutex
	// (repo obtained through a Tx).
	locked bool
}

func (r *otpsRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *otpsRepo) CreateOTP(ctx context.Context, rec domain.OTPRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	r.s.otps[rec.AttemptKey] = rec
	return nil
}

func (r *otpsRepo) GetOTP(ctx context.Context, attemptKey string) (domain.OTPRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.OTPRecord{}, err
	}
	defer r.lock()()

	rec, ok := r.s.otps[attemptKey]
	if !ok {
		return domain.OTPRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *otpsRepo) DeleteOTP(ctx context.Context, attemptKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	delete(r.s.otps, attemptKey)
	return nil
}

func (r *otpsRepo) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer r.lock()()

	removed := 0
	for key, rec := range r.s.otps {
		if rec.ExpiresAt.Before(now) {
			delete(r.s.otps, key)
			removed++
		}
	}
	return removed, nil
}
