package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
)

type usersRepo struct {
	mu         sync.RWMutex
	byID       map[string]domain.User
	byEmail    map[string]string // lowercased email -> id
	byUsername map[string]string // lowercased username -> id
}

func (r *usersRepo) Create(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(u.Email)
	username := strings.ToLower(u.Username)

	if _, ok := r.byID[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := r.byEmail[email]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := r.byUsername[username]; ok {
		return store.ErrAlreadyExists
	}

	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	r.byUsername[username] = u.ID
	return nil
}

func (r *usersRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *usersRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[strings.ToLower(username)]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *usersRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update holds the write lock for the whole read-modify-write, which is what
// gives the per-entity atomicity the store contract promises.
func (r *usersRepo) Update(
	_ context.Context,
	id string,
	fn func(*domain.User) error,
) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}

	updated := u
	if err := fn(&updated); err != nil {
		return domain.User{}, err
	}

	// Identity fields are immutable through this path.
	updated.ID = u.ID
	updated.Email = u.Email
	updated.Username = u.Username

	r.byID[id] = updated
	return updated, nil
}
