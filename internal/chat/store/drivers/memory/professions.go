package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
)

type professionsRepo struct {
	mu   sync.RWMutex
	byID map[int]domain.Profession
}

func (r *professionsRepo) GetByID(_ context.Context, id int) (domain.Profession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return domain.Profession{}, store.ErrNotFound
	}
	return p, nil
}

func (r *professionsRepo) ListAll(_ context.Context) ([]domain.Profession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Profession, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *professionsRepo) Seed(_ context.Context, catalog []domain.Profession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range catalog {
		if _, ok := r.byID[p.ID]; ok {
			continue
		}
		r.byID[p.ID] = p
	}
	return nil
}
