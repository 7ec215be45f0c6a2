package memory

import (
	"context"
	"sync"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
)

type messagesRepo struct {
	mu   sync.RWMutex
	list []domain.Message
	byID map[string]int // message id -> index into list
}

func (r *messagesRepo) Create(_ context.Context, m domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; ok {
		return store.ErrAlreadyExists
	}
	r.byID[m.ID] = len(r.list)
	r.list = append(r.list, m)
	return nil
}

func (r *messagesRepo) ListByChat(
	_ context.Context,
	chatID string,
	limit int,
) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// list is append-only in creation order, so a single pass collects the
	// chat chronologically. Trim to the newest limit entries afterwards.
	var out []domain.Message
	for _, m := range r.list {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *messagesRepo) MarkRead(_ context.Context, id string) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return domain.Message{}, store.ErrNotFound
	}
	r.list[idx].Read = true
	return r.list[idx], nil
}
