package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/passgate/passgate/internal/passgate/domain"
	"github.com/passgate/passgate/internal/passgate/notify"
	"github.com/passgate/passgate/internal/passgate/session"
	"github.com/passgate/passgate/pkg/clockx"
	"github.com/passgate/passgate/pkg/slogx"
)

// DefaultNotifyTimeout bounds the out-of-band delivery call. A timeout is a
// delivery failure; delivery is never retried in the background.
const DefaultNotifyTimeout = 10 * time.Second

var (
	// ErrValidation reports a malformed username, password, or code. The
	// session stays in its current phase.
	ErrValidation = errors.New("validation_failed")
	// ErrDelivery reports that the passcode could not be sent. The pending
	// attempt is aborted and the session returns to anonymous.
	ErrDelivery = errors.New("delivery_failed")
	// ErrCodeMismatch reports a wrong passcode. Retryable: the session stays
	// pending and the registry record survives.
	ErrCodeMismatch = errors.New("code_mismatch")
	// ErrAttemptExpired reports that the pending attempt's passcode expired
	// or is gone. Pending state is cleared; the user restarts the login.
	ErrAttemptExpired = errors.New("attempt_expired")
	// ErrNoPendingAttempt reports a code submission while no second factor
	// is pending.
	ErrNoPendingAttempt = errors.New("no_pending_attempt")
)

// credentialInput is the transient primary-factor submission. It is checked
// for shape only and never stored.
type credentialInput struct {
	Username string `validate:"required,max=19"`
	// number, not numeric: numeric also admits signs and decimal points.
	Password string `validate:"required,len=4,number"`
}

type codeInput struct {
	Code string `validate:"required,len=4,number"`
}

// AuthService drives the per-session authentication state machine:
// anonymous -> pending second factor -> authenticated. Every transition runs
// under the session's lock, so a client's requests can never interleave two
// transitions.
type AuthService struct {
	Registry *RegistryService
	Notifier notify.Notifier

	// NotifyAddress is the configured out-of-band destination the passcode
	// is delivered to.
	NotifyAddress string
	NotifyTimeout time.Duration

	Clock    clockx.Clock
	validate *validator.Validate
}

// NewAuthService wires the state machine over a registry and a delivery
// capability.
func NewAuthService(registry *RegistryService, notifier notify.Notifier, notifyAddress string, notifyTimeout time.Duration) *AuthService {
	if notifyTimeout <= 0 {
		notifyTimeout = DefaultNotifyTimeout
	}

	return &AuthService{
		Registry:      registry,
		Notifier:      notifier,
		NotifyAddress: notifyAddress,
		NotifyTimeout: notifyTimeout,
		Clock:         clockx.New(),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// SubmitCredentials runs the first factor. On a well-formed submission it
// issues a passcode, delivers it out-of-band, and moves the session to
// pending-second-factor. Submitting again while already pending overwrites
// the pending attempt; the superseded registry record is left to the sweep.
func (s *AuthService) SubmitCredentials(ctx context.Context, sess *session.Session, username, password string) error {
	l := slogx.FromContext(ctx)

	sess.Lock()
	defer sess.Unlock()

	in := credentialInput{Username: username, Password: password}
	if err := s.validate.Struct(in); err != nil {
		// Guard failure: no registry interaction, phase unchanged.
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	rec, err := s.Registry.Issue(ctx, username)
	if err != nil {
		return err
	}

	nctx, cancel := context.WithTimeout(ctx, s.NotifyTimeout)
	defer cancel()

	if err := s.Notifier.Notify(nctx, s.NotifyAddress, rec.Code); err != nil {
		// Delivery failure aborts the attempt entirely. The undelivered
		// record can never be redeemed, so revoke it rather than leaving it
		// for the sweep.
		_ = s.Registry.Revoke(ctx, rec.AttemptKey)
		sess.State.Reset()

		l.Warn("passcode delivery failed", "username", username, "err", err)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	sess.State.Phase = domain.PhasePendingSecondFactor
	sess.State.PendingUsername = username
	sess.State.PendingAttemptKey = rec.AttemptKey
	sess.State.AuthenticatedUsername = ""
	sess.State.LoginTimestamp = time.Time{}

	l.Info("second factor issued", "username", username, "attempt_key", rec.AttemptKey)
	return nil
}

// SubmitCode runs the second factor against the session's pending attempt.
// The mapping from registry outcomes to transitions is exhaustive: Valid
// authenticates, Mismatch stays pending, Expired and NotFound both clear the
// pending state and send the user back to the start.
func (s *AuthService) SubmitCode(ctx context.Context, sess *session.Session, code string) error {
	l := slogx.FromContext(ctx)

	sess.Lock()
	defer sess.Unlock()

	if sess.State.Phase != domain.PhasePendingSecondFactor {
		return ErrNoPendingAttempt
	}

	if err := s.validate.Struct(codeInput{Code: code}); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	outcome, err := s.Registry.Consume(ctx, sess.State.PendingAttemptKey, code)
	if err != nil {
		return err
	}

	switch outcome {
	case domain.OutcomeValid:
		sess.State.AuthenticatedUsername = sess.State.PendingUsername
		sess.State.LoginTimestamp = s.Clock.Now()
		sess.State.ClearPending()
		sess.State.Phase = domain.PhaseAuthenticated

		l.Info("login completed", "username", sess.State.AuthenticatedUsername)
		return nil

	case domain.OutcomeMismatch:
		l.Info("passcode mismatch", "username", sess.State.PendingUsername)
		return ErrCodeMismatch

	default: // OutcomeExpired, OutcomeNotFound
		username := sess.State.PendingUsername
		sess.State.Reset()

		l.Info("pending attempt no longer redeemable", "username", username, "outcome", outcome.String())
		return ErrAttemptExpired
	}
}

// Logout returns the session to anonymous. Idempotent: logging out an
// anonymous session is a no-op.
func (s *AuthService) Logout(sess *session.Session) {
	sess.Lock()
	defer sess.Unlock()

	sess.State.Reset()
}

// Phase reports the session's current phase for access-control decisions.
func (s *AuthService) Phase(sess *session.Session) domain.Phase {
	sess.Lock()
	defer sess.Unlock()

	return sess.State.Phase
}
