package store

import (
	"context"
	"errors"
	"time"

	"github.com/anongram/server/internal/chat/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (memory, sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. The store exclusively owns all entity collections; components
// never hold a private copy of user or message state.
//
// The concurrency contract is single-writer-per-entity: every mutation of a
// User or VerificationCode keyed by the same id/email is atomic with respect
// to concurrent callers. Drivers provide that with per-store locking (memory)
// or statement-level atomicity (sqlite) rather than optimistic retries.
type Store interface {
	Users() Users
	Codes() VerificationCodes
	Professions() Professions
	Messages() Messages

	// Close releases any underlying resources (no-op for the memory driver).
	Close() error

	// Ping verifies the backing storage is still reachable.
	Ping(ctx context.Context) error
}

type Users interface {
	// Create inserts a new user. Returns ErrAlreadyExists when the email or
	// the username collides with an existing account.
	Create(ctx context.Context, u domain.User) error

	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]domain.User, error)

	// Update applies fn to the user under the per-entity write lock and
	// persists the result. fn returning an error aborts the update. This is
	// the only mutation path, which is what makes read-modify-write sequences
	// like experience accrual safe against concurrent requests for the same
	// user.
	Update(ctx context.Context, id string, fn func(*domain.User) error) (domain.User, error)
}

type VerificationCodes interface {
	// Replace stores a pending code for an email, atomically superseding any
	// prior code for the same address. Never fails because a code is already
	// pending.
	Replace(ctx context.Context, code domain.VerificationCode) error

	// Get returns the pending code for an email or ErrNotFound.
	Get(ctx context.Context, email string) (domain.VerificationCode, error)

	// Delete discards the pending code for an email. Deleting a missing code
	// is not an error.
	Delete(ctx context.Context, email string) error

	// DeleteExpired removes every code whose expiry precedes now and reports
	// how many were dropped. Housekeeping.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type Professions interface {
	GetByID(ctx context.Context, id int) (domain.Profession, error)
	ListAll(ctx context.Context) ([]domain.Profession, error)

	// Seed installs the catalog. Idempotent: entries that already exist are
	// left untouched.
	Seed(ctx context.Context, catalog []domain.Profession) error
}

type Messages interface {
	Create(ctx context.Context, m domain.Message) error

	// ListByChat returns the newest limit messages of a chat in chronological
	// order.
	ListByChat(ctx context.Context, chatID string, limit int) ([]domain.Message, error)

	// MarkRead sets the read flag and returns the updated message.
	MarkRead(ctx context.Context, id string) (domain.Message, error)
}
