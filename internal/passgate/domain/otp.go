package domain

import "time"

// OTPRecord is an outstanding one-time passcode bound to a single login
// attempt. Records are created on successful primary-credential validation
// and deleted on redemption, expiry detection, or by the periodic sweep.
type OTPRecord struct {
	AttemptKey string    // ULID, unique per login attempt
	Code       string    // 4-digit numeric string, 1000-9999
	Username   string    // identity this code authenticates
	CreatedAt  time.Time
	ExpiresAt  time.Time // CreatedAt + validity window (60s)
}

// Outcome is the result of attempting to redeem an OTP record.
type Outcome int

const (
	// OutcomeValid means the code matched in time; the record is gone.
	OutcomeValid Outcome = iota
	// OutcomeExpired means the record existed but its window had passed;
	// the record is gone.
	OutcomeExpired
	// OutcomeMismatch means the code was wrong; the record survives so the
	// user can retry within the remaining window.
	OutcomeMismatch
	// OutcomeNotFound means no record exists for the attempt key (already
	// consumed, swept, or never issued).
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeExpired:
		return "expired"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
