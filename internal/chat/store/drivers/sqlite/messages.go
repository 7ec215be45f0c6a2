package sqlite

import (
	"context"
	"database/sql"

	"github.com/anongram/server/internal/chat/domain"
)

type messagesRepo struct {
	db *sql.DB
}

func (r *messagesRepo) Create(ctx context.Context, m domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, chat_id, body, type, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.ChatID, m.Body, string(m.Type), m.Read, m.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *messagesRepo) ListByChat(
	ctx context.Context,
	chatID string,
	limit int,
) ([]domain.Message, error) {
	if limit <= 0 {
		limit = -1 // sqlite treats a negative LIMIT as unbounded
	}

	// Newest limit rows, then flipped back into chronological order.
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, chat_id, body, type, read, created_at
		FROM messages WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var typ string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ChatID, &m.Body, &typ, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = domain.MessageType(typ)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *messagesRepo) MarkRead(ctx context.Context, id string) (domain.Message, error) {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return domain.Message{}, err
	}

	var m domain.Message
	var typ string
	err = r.db.QueryRowContext(ctx, `
		SELECT id, sender_id, chat_id, body, type, read, created_at
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.SenderID, &m.ChatID, &m.Body, &typ, &m.Read, &m.CreatedAt)
	if err != nil {
		return domain.Message{}, mapNotFound(err)
	}
	m.Type = domain.MessageType(typ)
	return m, nil
}
