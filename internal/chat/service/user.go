package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
	"github.com/anongram/server/pkg/slogx"
)

// coinsPerLevel is the currency reward multiplier on level-up.
const coinsPerLevel = 10

var ErrInvalidAmount = errors.New("experience amount must be positive")

// UserService tracks presence and progression for registered users.
type UserService struct {
	Store     store.Store
	Broadcast Broadcaster

	Now func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *UserService) GetByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// RecordOnline flips the presence flag and stamps last-seen. Strict about
// unknown users.
func (s *UserService) RecordOnline(ctx context.Context, userID string) error {
	return s.setPresence(ctx, userID, true)
}

// RecordOffline downgrades presence. Called by the realtime hub when the
// last connection associated with the user goes away.
func (s *UserService) RecordOffline(ctx context.Context, userID string) error {
	return s.setPresence(ctx, userID, false)
}

func (s *UserService) setPresence(ctx context.Context, userID string, online bool) error {
	now := s.now()
	u, err := s.Store.Users().Update(ctx, userID, func(u *domain.User) error {
		u.Online = online
		u.LastSeen = now
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update presence: %w", err)
	}

	if online {
		s.Broadcast.BroadcastExcept(u.ID, domain.UserOnline{UserID: u.ID})
	} else {
		s.Broadcast.BroadcastExcept(u.ID, domain.UserOffline{
			UserID:   u.ID,
			LastSeen: u.LastSeen.UnixMilli(),
		})
	}
	return nil
}

// AwardExperience adds experience and recomputes the level. Crossing one or
// more thresholds in a single award yields exactly one level-up event and
// one reward, computed from the final level. Level never decreases through
// this path.
func (s *UserService) AwardExperience(ctx context.Context, userID string, amount int) (domain.User, error) {
	if amount <= 0 {
		return domain.User{}, ErrInvalidAmount
	}

	var oldLevel, reward int
	u, err := s.Store.Users().Update(ctx, userID, func(u *domain.User) error {
		oldLevel = u.Level
		reward = 0

		u.XP += amount
		if newLevel := domain.LevelForXP(u.XP); newLevel > u.Level {
			u.Level = newLevel
			reward = newLevel * coinsPerLevel
			u.Coins += reward
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("award experience: %w", err)
	}

	if u.Level > oldLevel {
		slogx.FromContext(ctx).Info("level up",
			slog.String("user_id", u.ID),
			slog.Int("old_level", oldLevel),
			slog.Int("new_level", u.Level),
			slog.Int("reward", reward),
		)
		s.Broadcast.Broadcast(domain.LevelUp{
			UserID:   u.ID,
			OldLevel: oldLevel,
			NewLevel: u.Level,
			Reward:   reward,
		})
	}
	return u, nil
}

// ListUsers returns the public projection of every user. Emails, legacy
// codes and verification state never leave the service layer.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.Store.Users().List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}
