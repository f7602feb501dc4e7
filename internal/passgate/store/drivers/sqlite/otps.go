package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/passgate/passgate/internal/passgate/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the repo works inside
// and outside transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type otpsRepo struct {
	db querier
}

// Timestamps are stored as Unix nanoseconds so the expires_at comparison in
// SQL is numeric. Variable-width string encodings do not order correctly
// under SQL string comparison.

func (r *otpsRepo) CreateOTP(ctx context.Context, rec domain.OTPRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otps (attempt_key, code, username, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.AttemptKey,
		rec.Code,
		rec.Username,
		rec.CreatedAt.UTC().UnixNano(),
		rec.ExpiresAt.UTC().UnixNano(),
	)
	return err
}

func (r *otpsRepo) GetOTP(ctx context.Context, attemptKey string) (domain.OTPRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT attempt_key, code, username, created_at, expires_at
		FROM otps WHERE attempt_key = ?`,
		attemptKey,
	)

	var rec domain.OTPRecord
	var createdAt, expiresAt int64
	if err := row.Scan(&rec.AttemptKey, &rec.Code, &rec.Username, &createdAt, &expiresAt); err != nil {
		return domain.OTPRecord{}, mapNotFound(err)
	}

	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.ExpiresAt = time.Unix(0, expiresAt).UTC()

	return rec, nil
}

func (r *otpsRepo) DeleteOTP(ctx context.Context, attemptKey string) error {
	// Deleting a missing key is intentionally not an error.
	_, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE attempt_key = ?`, attemptKey)
	return err
}

func (r *otpsRepo) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < ?`,
		now.UTC().UnixNano())
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
