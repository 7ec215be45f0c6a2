package sqlite

import (
	"context"
	"database/sql"

	"github.com/anongram/server/internal/chat/domain"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, email, username, legacy_code, level, xp, coins, admin,
	profession, status, avatar_url, online, last_seen, created_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.LegacyCode, &u.Level, &u.XP, &u.Coins,
		&u.Admin, &u.Profession, &u.Status, &u.AvatarURL, &u.Online,
		&u.LastSeen, &u.CreatedAt,
	)
	return u, err
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.LegacyCode, u.Level, u.XP, u.Coins,
		u.Admin, u.Profession, u.Status, u.AvatarURL, u.Online,
		u.LastSeen, u.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update runs the read-modify-write inside a transaction. The store opens
// transactions with _txlock=immediate, so concurrent writers on the same row
// queue on busy_timeout instead of racing the deferred lock upgrade.
func (r *usersRepo) Update(
	ctx context.Context,
	id string,
	fn func(*domain.User) error,
) (domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	updated := u
	if err := fn(&updated); err != nil {
		return domain.User{}, err
	}

	// Identity fields are immutable through this path.
	updated.ID = u.ID
	updated.Email = u.Email
	updated.Username = u.Username

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET legacy_code = ?, level = ?, xp = ?, coins = ?,
			admin = ?, profession = ?, status = ?, avatar_url = ?,
			online = ?, last_seen = ?
		WHERE id = ?`,
		updated.LegacyCode, updated.Level, updated.XP, updated.Coins,
		updated.Admin, updated.Profession, updated.Status, updated.AvatarURL,
		updated.Online, updated.LastSeen, updated.ID,
	)
	if err != nil {
		return domain.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return updated, nil
}
