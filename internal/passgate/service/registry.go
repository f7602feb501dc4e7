package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/passgate/passgate/internal/passgate/domain"
	"github.com/passgate/passgate/internal/passgate/store"
	"github.com/passgate/passgate/pkg/clockx"
	"github.com/passgate/passgate/pkg/idx"
)

// DefaultOTPTTL is the fixed validity window of an issued passcode.
const DefaultOTPTTL = 60 * time.Second

// RegistryService issues, validates, and retires one-time passcodes. It is
// the only component that touches OTP records; sessions hold attempt keys as
// references, never the records themselves.
type RegistryService struct {
	Store store.Store
	Codes CodeSource
	Clock clockx.Clock
	TTL   time.Duration
}

// NewRegistryService wires a registry over the given store. Zero-value
// Codes/Clock/TTL fall back to the pseudo-random source, the system clock,
// and the 60-second window.
func NewRegistryService(st store.Store, codes CodeSource, clock clockx.Clock, ttl time.Duration) *RegistryService {
	if codes == nil {
		codes = PseudoRandomCodes{}
	}
	if clock == nil {
		clock = clockx.New()
	}
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}

	return &RegistryService{
		Store: st,
		Codes: codes,
		Clock: clock,
		TTL:   ttl,
	}
}

// Issue creates and stores a passcode for username and returns the record.
// The attempt key is a random ULID generated here, independent of username
// and submission time, so two attempts can never collide however close
// together they land.
func (s *RegistryService) Issue(ctx context.Context, username string) (domain.OTPRecord, error) {
	now := s.Clock.Now()

	rec := domain.OTPRecord{
		AttemptKey: idx.New().String(),
		Code:       s.Codes.Code(),
		Username:   username,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.TTL),
	}

	if err := s.Store.OTPs().CreateOTP(ctx, rec); err != nil {
		return domain.OTPRecord{}, fmt.Errorf("failed to store otp record: %w", err)
	}

	return rec, nil
}

// Lookup returns the record for an attempt key without mutating anything.
// Returns store.ErrNotFound when no record exists.
func (s *RegistryService) Lookup(ctx context.Context, attemptKey string) (domain.OTPRecord, error) {
	return s.Store.OTPs().GetOTP(ctx, attemptKey)
}

// Consume redeems an attempt key against a submitted code:
//
//   - no record            -> OutcomeNotFound
//   - past expiry          -> OutcomeExpired, record deleted
//   - wrong code           -> OutcomeMismatch, record kept for retry
//   - correct code in time -> OutcomeValid, record deleted
//
// The whole check-then-delete sequence runs in one store transaction, so two
// concurrent calls on the same key can never both observe OutcomeValid.
func (s *RegistryService) Consume(ctx context.Context, attemptKey, submittedCode string) (domain.Outcome, error) {
	now := s.Clock.Now()
	outcome := domain.OutcomeNotFound

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.OTPs().GetOTP(ctx, attemptKey)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				outcome = domain.OutcomeNotFound
				return nil
			}
			return err
		}

		if !now.Before(rec.ExpiresAt) {
			outcome = domain.OutcomeExpired
			return tx.OTPs().DeleteOTP(ctx, attemptKey)
		}

		if submittedCode != rec.Code {
			// The record survives: retry is allowed within the window.
			outcome = domain.OutcomeMismatch
			return nil
		}

		outcome = domain.OutcomeValid
		return tx.OTPs().DeleteOTP(ctx, attemptKey)
	})
	if err != nil {
		return domain.OutcomeNotFound, fmt.Errorf("failed to consume otp record: %w", err)
	}

	return outcome, nil
}

// Revoke discards an outstanding record regardless of its window, for
// attempts whose code never reached the user. Revoking a missing key is a
// no-op.
func (s *RegistryService) Revoke(ctx context.Context, attemptKey string) error {
	return s.Store.OTPs().DeleteOTP(ctx, attemptKey)
}

// Sweep deletes every record whose window closed before now and returns the
// count removed. Safe to run concurrently with Issue/Consume and idempotent:
// a second sweep at the same instant removes nothing.
func (s *RegistryService) Sweep(ctx context.Context, now time.Time) (int, error) {
	return s.Store.OTPs().DeleteExpiredOTPs(ctx, now)
}
