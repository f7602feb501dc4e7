package domain

import "time"

// Phase is a session's position in the authentication state machine.
type Phase string

const (
	PhaseAnonymous           Phase = "anonymous"
	PhasePendingSecondFactor Phase = "pending_second_factor"
	PhaseAuthenticated       Phase = "authenticated"
)

// SessionState is the per-client authentication state. Exactly one of the
// pending/authenticated field groups is populated at a time:
// PendingUsername/PendingAttemptKey iff phase is PendingSecondFactor, and
// AuthenticatedUsername/LoginTimestamp iff phase is Authenticated.
type SessionState struct {
	Phase Phase

	// Pending second factor. PendingAttemptKey is a reference into the OTP
	// registry, not ownership; the record may expire underneath it.
	PendingUsername   string
	PendingAttemptKey string

	// Authenticated.
	AuthenticatedUsername string
	LoginTimestamp        time.Time
}

// NewSessionState returns the initial anonymous state.
func NewSessionState() SessionState {
	return SessionState{Phase: PhaseAnonymous}
}

// ClearPending drops the pending second-factor fields.
func (s *SessionState) ClearPending() {
	s.PendingUsername = ""
	s.PendingAttemptKey = ""
}

// Reset returns the state to anonymous, dropping all fields.
func (s *SessionState) Reset() {
	*s = NewSessionState()
}
