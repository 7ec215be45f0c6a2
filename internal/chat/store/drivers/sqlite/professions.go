package sqlite

import (
	"context"
	"database/sql"

	"github.com/anongram/server/internal/chat/domain"
)

type professionsRepo struct {
	db *sql.DB
}

func (r *professionsRepo) GetByID(ctx context.Context, id int) (domain.Profession, error) {
	var p domain.Profession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, min_level, description FROM professions WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.MinLevel, &p.Description)
	if err != nil {
		return domain.Profession{}, mapNotFound(err)
	}
	return p, nil
}

func (r *professionsRepo) ListAll(ctx context.Context) ([]domain.Profession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, min_level, description FROM professions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Profession
	for rows.Next() {
		var p domain.Profession
		if err := rows.Scan(&p.ID, &p.Name, &p.MinLevel, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *professionsRepo) Seed(ctx context.Context, catalog []domain.Profession) error {
	for _, p := range catalog {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO professions (id, name, min_level, description)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.MinLevel, p.Description,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
