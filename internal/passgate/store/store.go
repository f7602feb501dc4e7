package store

import (
	"context"
	"errors"
	"time"

	"github.com/passgate/passgate/internal/passgate/domain"
)

// ErrNotFound reports that no record exists for the given key. Absence is a
// normal outcome for OTP lookups; callers branch on it rather than treating
// it as a failure.
var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface for the OTP registry. Concrete
// drivers (memory, sqlite) implement this. The registry service never sees a
// driver directly, so the backing store can be swapped without touching the
// session state machine.
type Store interface {
	OTPs() OTPs

	// ApplyMigrations prepares the backing schema. Drivers without a schema
	// implement it as a no-op.
	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn atomically with respect to other store operations.
	// If fn returns an error the transaction is rolled back, otherwise it is
	// committed. This is what makes check-then-delete consume sequences safe
	// under concurrent callers.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type OTPs interface {
	// CreateOTP stores a freshly issued record keyed by its attempt key.
	CreateOTP(ctx context.Context, rec domain.OTPRecord) error

	// GetOTP returns the record for an attempt key, or ErrNotFound.
	GetOTP(ctx context.Context, attemptKey string) (domain.OTPRecord, error)

	// DeleteOTP removes a record. Deleting a missing key is not an error.
	DeleteOTP(ctx context.Context, attemptKey string) error

	// DeleteExpiredOTPs removes every record with expires_at before now and
	// returns how many were removed (observability only).
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int, error)
}
