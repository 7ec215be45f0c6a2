package app

import (
	"context"
	"errors"
	"time"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
	"github.com/anongram/server/pkg/idx"
)

// demoAccounts mirrors the accounts the original prototype shipped with. The
// inline codes let these accounts log in without requesting a mailed code.
var demoAccounts = []domain.User{
	{
		Email:      "admin@anongram.com",
		Username:   "Admin",
		LegacyCode: "654321",
		Level:      100,
		XP:         9900,
		Coins:      9999,
		Admin:      true,
		Profession: "System Admin",
	},
	{
		Email:      "user1@test.com",
		Username:   "UserOne",
		LegacyCode: "111222",
		Level:      1,
		Coins:      100,
		Profession: "Newcomer",
	},
	{
		Email:      "user2@test.com",
		Username:   "UserTwo",
		LegacyCode: "333444",
		Level:      1,
		Coins:      100,
		Profession: "Newcomer",
	},
	{
		Email:      "user3@test.com",
		Username:   "UserThree",
		LegacyCode: "555666",
		Level:      1,
		Coins:      100,
		Profession: "Newcomer",
	},
}

// seed installs the profession catalog and, when enabled, the demo accounts.
// Safe to run on every start: existing rows are left untouched.
func (app *Application) seed(ctx context.Context) error {
	if err := app.db.Professions().Seed(ctx, domain.DefaultProfessions()); err != nil {
		return err
	}

	if !app.cfg.SeedDemoData {
		return nil
	}

	now := time.Now().UTC()
	for _, u := range demoAccounts {
		u.ID = idx.New()
		u.CreatedAt = now
		u.LastSeen = now
		err := app.db.Users().Create(ctx, u)
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return err
		}
	}
	app.logger.Info("demo accounts seeded", "count", len(demoAccounts))
	return nil
}
