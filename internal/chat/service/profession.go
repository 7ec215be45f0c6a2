package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
	"github.com/anongram/server/pkg/slogx"
)

var (
	ErrProfessionNotFound = errors.New("profession not found")
	ErrInsufficientLevel  = errors.New("user level below profession requirement")
)

// ProfessionService validates eligibility against the catalog and applies
// profession changes.
type ProfessionService struct {
	Store     store.Store
	Broadcast Broadcaster
}

func (s *ProfessionService) List(ctx context.Context) ([]domain.Profession, error) {
	return s.Store.Professions().ListAll(ctx)
}

// Assign sets the user's profession after checking the level requirement.
// Re-assigning the current profession succeeds trivially; a failed eligibility
// check leaves the user untouched.
func (s *ProfessionService) Assign(ctx context.Context, userID string, professionID int) (string, error) {
	log := slogx.FromContext(ctx)

	p, err := s.Store.Professions().GetByID(ctx, professionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrProfessionNotFound
		}
		return "", fmt.Errorf("lookup profession: %w", err)
	}

	u, err := s.Store.Users().Update(ctx, userID, func(u *domain.User) error {
		if u.Level < p.MinLevel {
			return ErrInsufficientLevel
		}
		u.Profession = p.Name
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return "", ErrUserNotFound
		case errors.Is(err, ErrInsufficientLevel):
			return "", ErrInsufficientLevel
		}
		return "", fmt.Errorf("assign profession: %w", err)
	}

	log.Debug("profession assigned",
		slog.String("user_id", u.ID),
		slog.String("profession", p.Name),
	)

	s.Broadcast.Broadcast(domain.ProfessionChanged{UserID: u.ID, Profession: p.Name})
	return p.Name, nil
}
