// Package memory is the default store driver: mutex-guarded maps, no
// persistence. It favors clarity over performance, which is fine for a
// single-process deployment.
package memory

import (
	"context"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
)

type Store struct {
	users       *usersRepo
	codes       *codesRepo
	professions *professionsRepo
	messages    *messagesRepo
}

func NewStore() *Store {
	return &Store{
		users: &usersRepo{
			byID:       make(map[string]domain.User),
			byEmail:    make(map[string]string),
			byUsername: make(map[string]string),
		},
		codes:       &codesRepo{byEmail: make(map[string]domain.VerificationCode)},
		professions: &professionsRepo{byID: make(map[int]domain.Profession)},
		messages:    &messagesRepo{byID: make(map[string]int)},
	}
}

func (s *Store) Users() store.Users             { return s.users }
func (s *Store) Codes() store.VerificationCodes { return s.codes }
func (s *Store) Professions() store.Professions { return s.professions }
func (s *Store) Messages() store.Messages       { return s.messages }

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

var _ store.Store = (*Store)(nil)
