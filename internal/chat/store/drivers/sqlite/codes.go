package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/anongram/server/internal/chat/domain"
)

type codesRepo struct {
	db *sql.DB
}

// Replace upserts on the email primary key, so a racing second request
// atomically supersedes the first code.
func (r *codesRepo) Replace(ctx context.Context, code domain.VerificationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_codes (email, code, pending_username, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			code = excluded.code,
			pending_username = excluded.pending_username,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		code.Email, code.Code, code.PendingUsername, code.CreatedAt, code.ExpiresAt,
	)
	return err
}

func (r *codesRepo) Get(ctx context.Context, email string) (domain.VerificationCode, error) {
	var c domain.VerificationCode
	err := r.db.QueryRowContext(ctx, `
		SELECT email, code, pending_username, created_at, expires_at
		FROM verification_codes WHERE email = ?`, email).
		Scan(&c.Email, &c.Code, &c.PendingUsername, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		return domain.VerificationCode{}, mapNotFound(err)
	}
	return c, nil
}

func (r *codesRepo) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE email = ?`, email)
	return err
}

func (r *codesRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
