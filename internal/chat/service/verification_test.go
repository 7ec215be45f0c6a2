package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

func newVerificationService(t *testing.T) (*VerificationService, *fakeMailer, *recordingBroadcaster) {
	t.Helper()

	mailer := &fakeMailer{}
	bcast := &recordingBroadcaster{}
	svc := &VerificationService{
		Store:     memory.NewStore(),
		Mailer:    mailer,
		Broadcast: bcast,
	}
	return svc, mailer, bcast
}

func TestRequestCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("delivers a six digit code", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)

		require.NoError(t, svc.RequestCode(ctx, "new@example.com", ""))
		require.Len(t, mailer.sent, 1)
		require.Len(t, mailer.lastCode(), 6)
		require.GreaterOrEqual(t, mailer.lastCode(), "100000")
		require.LessOrEqual(t, mailer.lastCode(), "999999")
	})

	t.Run("second request supersedes the first code", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)

		require.NoError(t, svc.RequestCode(ctx, "new@example.com", "fresh"))
		first := mailer.lastCode()
		require.NoError(t, svc.RequestCode(ctx, "new@example.com", "fresh"))
		second := mailer.lastCode()

		if first != second {
			_, err := svc.VerifyCode(ctx, "new@example.com", first, "")
			require.ErrorIs(t, err, ErrCodeMismatch)
		}
		u, err := svc.VerifyCode(ctx, "new@example.com", second, "")
		require.NoError(t, err)
		require.Equal(t, "fresh", u.Username)
	})

	t.Run("rejects taken email on registration intent", func(t *testing.T) {
		svc, _, _ := newVerificationService(t)
		seedUser(t, svc, "taken@example.com", "taken")

		err := svc.RequestCode(ctx, "taken@example.com", "someoneelse")
		require.ErrorIs(t, err, ErrDuplicateIdentity)
	})

	t.Run("rejects taken username on registration intent", func(t *testing.T) {
		svc, _, _ := newVerificationService(t)
		seedUser(t, svc, "taken@example.com", "taken")

		err := svc.RequestCode(ctx, "other@example.com", "taken")
		require.ErrorIs(t, err, ErrDuplicateIdentity)
	})

	t.Run("taken email without username is a login request", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)
		seedUser(t, svc, "taken@example.com", "taken")

		require.NoError(t, svc.RequestCode(ctx, "taken@example.com", ""))
		require.Len(t, mailer.sent, 1)
	})

	t.Run("delivery failure keeps the code verifiable", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)
		mailer.fail = errors.New("smtp: connection refused")

		err := svc.RequestCode(ctx, "new@example.com", "fresh")
		require.ErrorIs(t, err, ErrDeliveryFailed)

		// The code was stored before the mail attempt. Fish it out of the
		// store and verify it still works.
		vc, err := svc.Store.Codes().Get(ctx, "new@example.com")
		require.NoError(t, err)

		u, err := svc.VerifyCode(ctx, "new@example.com", vc.Code, "")
		require.NoError(t, err)
		require.Equal(t, "fresh", u.Username)
	})

	t.Run("slow mailer is bounded by the timeout", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)
		mailer.block = make(chan struct{})
		svc.MailTimeout = 20 * time.Millisecond

		start := time.Now()
		err := svc.RequestCode(ctx, "new@example.com", "")
		require.ErrorIs(t, err, ErrDeliveryFailed)
		require.Less(t, time.Since(start), 5*time.Second)
		close(mailer.block)
	})

	t.Run("concurrent requests leave exactly one active code", func(t *testing.T) {
		svc, _, _ := newVerificationService(t)

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = svc.RequestCode(ctx, "new@example.com", "")
			}()
		}
		wg.Wait()

		vc, err := svc.Store.Codes().Get(ctx, "new@example.com")
		require.NoError(t, err)

		u, err := svc.VerifyCode(ctx, "new@example.com", vc.Code, "fresh")
		require.NoError(t, err)
		require.NotEmpty(t, u.ID)
	})
}

func TestVerifyCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("registration creates a fresh account", func(t *testing.T) {
		svc, mailer, bcast := newVerificationService(t)

		require.NoError(t, svc.RequestCode(ctx, "new@example.com", "fresh"))
		u, err := svc.VerifyCode(ctx, "new@example.com", mailer.lastCode(), "")
		require.NoError(t, err)

		require.Equal(t, "new@example.com", u.Email)
		require.Equal(t, "fresh", u.Username)
		require.Equal(t, 1, u.Level)
		require.Equal(t, newUserCoins, u.Coins)
		require.Equal(t, newUserProfession, u.Profession)
		require.True(t, u.Online)
		require.False(t, u.Admin)

		joined := bcast.ofType(domain.EventUserJoined)
		require.Len(t, joined, 1)
		require.Equal(t, u.ID, joined[0].Except, "originator must not receive its own join event")
	})

	t.Run("code is single use", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)

		require.NoError(t, svc.RequestCode(ctx, "new@example.com", "fresh"))
		code := mailer.lastCode()

		_, err := svc.VerifyCode(ctx, "new@example.com", code, "")
		require.NoError(t, err)

		// Second submission finds no pending code. The legacy path does not
		// apply either since registered accounts have no inline code.
		_, err = svc.VerifyCode(ctx, "new@example.com", code, "")
		require.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("wrong code leaves the pending code intact", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)

		require.NoError(t, svc.RequestCode(ctx, "new@example.com", "fresh"))

		_, err := svc.VerifyCode(ctx, "new@example.com", "000000", "")
		require.ErrorIs(t, err, ErrCodeMismatch)

		_, err = svc.VerifyCode(ctx, "new@example.com", mailer.lastCode(), "")
		require.NoError(t, err)
	})

	t.Run("expiry boundary", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)

		base := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
		now := base
		svc.Now = func() time.Time { return now }

		require.NoError(t, svc.RequestCode(ctx, "new@example.com", "fresh"))
		code := mailer.lastCode()

		t.Run("valid just before the deadline", func(t *testing.T) {
			now = base.Add(10*time.Minute - time.Second)
			u, err := svc.VerifyCode(ctx, "new@example.com", code, "")
			require.NoError(t, err)
			require.Equal(t, "fresh", u.Username)
		})

		t.Run("expired just after the deadline", func(t *testing.T) {
			now = base
			require.NoError(t, svc.RequestCode(ctx, "expired@example.com", "stale"))
			code := mailer.lastCode()

			now = base.Add(10*time.Minute + time.Second)
			_, err := svc.VerifyCode(ctx, "expired@example.com", code, "")
			require.ErrorIs(t, err, ErrCodeExpired)

			// The expired code is discarded, not retryable.
			_, err = svc.VerifyCode(ctx, "expired@example.com", code, "")
			require.ErrorIs(t, err, ErrCodeNotFound)
		})
	})

	t.Run("login marks an existing user online", func(t *testing.T) {
		svc, mailer, bcast := newVerificationService(t)
		u := seedUser(t, svc, "old@example.com", "old")

		require.NoError(t, svc.RequestCode(ctx, "old@example.com", ""))
		got, err := svc.VerifyCode(ctx, "old@example.com", mailer.lastCode(), "")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.True(t, got.Online)

		online := bcast.ofType(domain.EventUserOnline)
		require.Len(t, online, 1)
		require.Equal(t, u.ID, online[0].Except)
	})

	t.Run("legacy inline code logs in a seeded account", func(t *testing.T) {
		svc, _, _ := newVerificationService(t)
		u := seedLegacyUser(t, svc, "user1@test.com", "UserOne", "111222")

		got, err := svc.VerifyCode(ctx, "user1@test.com", "111222", "")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.True(t, got.Online)
	})

	t.Run("admin code confers the admin role", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)

		require.NoError(t, svc.RequestCode(ctx, "boss@example.com", "boss"))
		svc.AdminCodes = []string{mailer.lastCode()}

		u, err := svc.VerifyCode(ctx, "boss@example.com", mailer.lastCode(), "")
		require.NoError(t, err)
		require.True(t, u.Admin)
	})

	t.Run("generated username when none was pending", func(t *testing.T) {
		svc, mailer, _ := newVerificationService(t)

		require.NoError(t, svc.RequestCode(ctx, "anon@example.com", ""))
		u, err := svc.VerifyCode(ctx, "anon@example.com", mailer.lastCode(), "")
		require.NoError(t, err)
		require.NotEmpty(t, u.Username)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		svc, _, _ := newVerificationService(t)
		_, err := svc.Login(ctx, "nobody@example.com")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("known email is marked online", func(t *testing.T) {
		svc, _, _ := newVerificationService(t)
		u := seedUser(t, svc, "old@example.com", "old")

		got, err := svc.Login(ctx, "OLD@Example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.True(t, got.Online)
	})
}

func seedUser(t *testing.T, svc *VerificationService, email, username string) domain.User {
	t.Helper()
	return seedLegacyUser(t, svc, email, username, "")
}

func seedLegacyUser(t *testing.T, svc *VerificationService, email, username, code string) domain.User {
	t.Helper()
	u := domain.User{
		ID:         "u_" + username,
		Email:      email,
		Username:   username,
		LegacyCode: code,
		Level:      1,
		Coins:      newUserCoins,
		Profession: newUserProfession,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, svc.Store.Users().Create(context.Background(), u))
	return u
}
