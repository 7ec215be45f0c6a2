package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
)

type codesRepo struct {
	mu      sync.RWMutex
	byEmail map[string]domain.VerificationCode
}

// Replace swaps in the new code under the write lock, so two racing requests
// for the same email leave exactly one code alive: the later one.
func (r *codesRepo) Replace(_ context.Context, code domain.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byEmail[strings.ToLower(code.Email)] = code
	return nil
}

func (r *codesRepo) Get(_ context.Context, email string) (domain.VerificationCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.VerificationCode{}, store.ErrNotFound
	}
	return code, nil
}

func (r *codesRepo) Delete(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byEmail, strings.ToLower(email))
	return nil
}

func (r *codesRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for email, code := range r.byEmail {
		if code.Expired(now) {
			delete(r.byEmail, email)
			dropped++
		}
	}
	return dropped, nil
}
