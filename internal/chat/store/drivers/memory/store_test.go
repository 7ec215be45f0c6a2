package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store"
	"github.com/stretchr/testify/require"
)

func TestUsersRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	alice := domain.User{
		ID:        "u1",
		Email:     "alice@example.com",
		Username:  "Alice",
		Level:     1,
		CreatedAt: time.Now(),
	}

	t.Run("create and lookups", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Users().Create(ctx, alice))

		got, err := st.Users().GetByID(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, alice, got)

		// Email and username lookups are case-insensitive.
		got, err = st.Users().GetByEmail(ctx, "ALICE@Example.com")
		require.NoError(t, err)
		require.Equal(t, "u1", got.ID)

		got, err = st.Users().GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "u1", got.ID)
	})

	t.Run("unique identities", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Users().Create(ctx, alice))

		dup := alice
		dup.ID = "u2"
		dup.Username = "other"
		require.ErrorIs(t, st.Users().Create(ctx, dup), store.ErrAlreadyExists)

		dup = alice
		dup.ID = "u3"
		dup.Email = "other@example.com"
		dup.Username = "ALICE"
		require.ErrorIs(t, st.Users().Create(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("missing user", func(t *testing.T) {
		st := NewStore()
		_, err := st.Users().GetByID(ctx, "ghost")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update is atomic per user", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Users().Create(ctx, alice))

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := st.Users().Update(ctx, "u1", func(u *domain.User) error {
					u.XP += 10
					return nil
				})
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := st.Users().GetByID(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, 500, got.XP)
	})

	t.Run("update error aborts the write", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Users().Create(ctx, alice))

		abort := errors.New("nope")
		_, err := st.Users().Update(ctx, "u1", func(u *domain.User) error {
			u.Coins = 1_000_000
			return abort
		})
		require.ErrorIs(t, err, abort)

		got, err := st.Users().GetByID(ctx, "u1")
		require.NoError(t, err)
		require.Zero(t, got.Coins)
	})

	t.Run("update cannot change identity fields", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Users().Create(ctx, alice))

		got, err := st.Users().Update(ctx, "u1", func(u *domain.User) error {
			u.Email = "evil@example.com"
			u.Username = "evil"
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, alice.Email, got.Email)
		require.Equal(t, alice.Username, got.Username)
	})

	t.Run("list is ordered by creation", func(t *testing.T) {
		st := NewStore()
		base := time.Now()
		for i, id := range []string{"c", "a", "b"} {
			require.NoError(t, st.Users().Create(ctx, domain.User{
				ID:        id,
				Email:     id + "@example.com",
				Username:  id,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}))
		}

		users, err := st.Users().List(ctx)
		require.NoError(t, err)
		require.Equal(t, "c", users[0].ID)
		require.Equal(t, "b", users[2].ID)
	})
}

func TestCodesRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	code := func(email, value string, expires time.Time) domain.VerificationCode {
		return domain.VerificationCode{Email: email, Code: value, ExpiresAt: expires}
	}

	t.Run("replace supersedes", func(t *testing.T) {
		st := NewStore()
		later := time.Now().Add(10 * time.Minute)

		require.NoError(t, st.Codes().Replace(ctx, code("a@example.com", "111111", later)))
		require.NoError(t, st.Codes().Replace(ctx, code("a@example.com", "222222", later)))

		got, err := st.Codes().Get(ctx, "a@example.com")
		require.NoError(t, err)
		require.Equal(t, "222222", got.Code)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Codes().Delete(ctx, "missing@example.com"))
	})

	t.Run("delete expired sweeps only stale codes", func(t *testing.T) {
		st := NewStore()
		now := time.Now()

		require.NoError(t, st.Codes().Replace(ctx, code("stale@example.com", "111111", now.Add(-time.Minute))))
		require.NoError(t, st.Codes().Replace(ctx, code("live@example.com", "222222", now.Add(time.Minute))))

		dropped, err := st.Codes().DeleteExpired(ctx, now)
		require.NoError(t, err)
		require.Equal(t, 1, dropped)

		_, err = st.Codes().Get(ctx, "stale@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.Codes().Get(ctx, "live@example.com")
		require.NoError(t, err)
	})
}

func TestProfessionsRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("seed is idempotent", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Professions().Seed(ctx, domain.DefaultProfessions()))
		require.NoError(t, st.Professions().Seed(ctx, domain.DefaultProfessions()))

		catalog, err := st.Professions().ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, catalog, 6)
	})

	t.Run("lookup by id", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Professions().Seed(ctx, domain.DefaultProfessions()))

		p, err := st.Professions().GetByID(ctx, 6)
		require.NoError(t, err)
		require.Equal(t, "Tester", p.Name)
		require.Equal(t, 5, p.MinLevel)

		_, err = st.Professions().GetByID(ctx, 999)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestMessagesRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	msg := func(id, chatID, body string, at time.Time) domain.Message {
		return domain.Message{
			ID:        id,
			SenderID:  "alice",
			ChatID:    chatID,
			Body:      body,
			Type:      domain.MessageText,
			CreatedAt: at,
		}
	}

	t.Run("list by chat honors the limit and order", func(t *testing.T) {
		st := NewStore()
		base := time.Now()
		for i := range 10 {
			require.NoError(t, st.Messages().Create(ctx,
				msg(fmt.Sprintf("m%02d", i), "global", fmt.Sprintf("msg %d", i), base.Add(time.Duration(i)*time.Second))))
		}

		got, err := st.Messages().ListByChat(ctx, "global", 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "msg 7", got[0].Body)
		require.Equal(t, "msg 9", got[2].Body)
	})

	t.Run("chats are isolated", func(t *testing.T) {
		st := NewStore()
		now := time.Now()
		require.NoError(t, st.Messages().Create(ctx, msg("m1", "global", "public", now)))
		require.NoError(t, st.Messages().Create(ctx, msg("m2", "bob", "private", now)))

		got, err := st.Messages().ListByChat(ctx, "bob", 50)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "private", got[0].Body)
	})

	t.Run("mark read", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.Messages().Create(ctx, msg("m1", "global", "hello", time.Now())))

		got, err := st.Messages().MarkRead(ctx, "m1")
		require.NoError(t, err)
		require.True(t, got.Read)

		_, err = st.Messages().MarkRead(ctx, "ghost")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
