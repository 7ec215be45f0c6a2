package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/mail"
	"github.com/anongram/server/internal/chat/metrics"
	"github.com/anongram/server/internal/chat/store"
	"github.com/anongram/server/pkg/idx"
	"github.com/anongram/server/pkg/slogx"
)

const (
	DefaultCodeTTL     = 10 * time.Minute
	DefaultMailTimeout = 10 * time.Second

	newUserCoins      = 100
	newUserProfession = "Newcomer"
)

var (
	ErrDuplicateIdentity = errors.New("email or username already registered")
	ErrDeliveryFailed    = errors.New("verification code could not be delivered")
	ErrCodeNotFound      = errors.New("no pending code for this email")
	ErrCodeExpired       = errors.New("verification code expired")
	ErrCodeMismatch      = errors.New("verification code does not match")
	ErrUserNotFound      = errors.New("user not found")
)

// VerificationService owns the one-time code lifecycle: generation, delivery,
// validation and expiry, plus the user creation / login that follows a
// successful verification.
type VerificationService struct {
	Store     store.Store
	Mailer    mail.Sender
	Broadcast Broadcaster

	// AdminCodes is the configured allow-list. A registration that verifies
	// with one of these exact codes gets the administrator role.
	AdminCodes []string

	CodeTTL     time.Duration
	MailTimeout time.Duration

	// Now is injectable for expiry tests; defaults to time.Now.
	Now func() time.Time
}

func (s *VerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *VerificationService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return DefaultCodeTTL
}

// RequestCode generates a 6-digit code for the email, stores it (atomically
// superseding any prior pending code) and hands it to the mailer. The code
// is stored before the mail call so a slow or failing mail provider never
// holds a store lock, and a DeliveryFailed outcome still leaves the code
// verifiable if it reaches the user another way.
func (s *VerificationService) RequestCode(ctx context.Context, email, pendingUsername string) error {
	log := slogx.FromContext(ctx)

	email = strings.TrimSpace(strings.ToLower(email))
	pendingUsername = strings.TrimSpace(pendingUsername)

	// Registration intent: both identity fields must be free.
	if pendingUsername != "" {
		if _, err := s.Store.Users().GetByEmail(ctx, email); err == nil {
			return ErrDuplicateIdentity
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check email availability: %w", err)
		}
		if _, err := s.Store.Users().GetByUsername(ctx, pendingUsername); err == nil {
			return ErrDuplicateIdentity
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check username availability: %w", err)
		}
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	now := s.now()
	vc := domain.VerificationCode{
		Email:           email,
		Code:            code,
		PendingUsername: pendingUsername,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.codeTTL()),
	}
	if err := s.Store.Codes().Replace(ctx, vc); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	metrics.CodesIssued.Inc()

	timeout := s.MailTimeout
	if timeout <= 0 {
		timeout = DefaultMailTimeout
	}
	mailCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Mailer.SendCode(mailCtx, email, code); err != nil {
		log.Error("verification code delivery failed", slog.String("email", email), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	log.Debug("verification code sent", slog.String("email", email))
	return nil
}

// VerifyCode validates a submitted code. On match the pending code is
// discarded and the caller either gets the existing account marked online
// (login) or a freshly created one (registration). Seeded demo accounts keep
// working through their legacy inline codes.
func (s *VerificationService) VerifyCode(
	ctx context.Context,
	email, code, pendingUsername string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)
	email = strings.TrimSpace(strings.ToLower(email))

	// Legacy path: seeded accounts carry an inline code.
	if u, err := s.Store.Users().GetByEmail(ctx, email); err == nil {
		if u.LegacyCode != "" && u.LegacyCode == code {
			metrics.CodesVerified.WithLabelValues("ok").Inc()
			return s.markOnline(ctx, u.ID)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	vc, err := s.Store.Codes().Get(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.CodesVerified.WithLabelValues("not_found").Inc()
			return domain.User{}, ErrCodeNotFound
		}
		return domain.User{}, fmt.Errorf("lookup code: %w", err)
	}

	if vc.Expired(s.now()) {
		_ = s.Store.Codes().Delete(ctx, email)
		metrics.CodesVerified.WithLabelValues("expired").Inc()
		return domain.User{}, ErrCodeExpired
	}

	if vc.Code != code {
		metrics.CodesVerified.WithLabelValues("mismatch").Inc()
		return domain.User{}, ErrCodeMismatch
	}

	if err := s.Store.Codes().Delete(ctx, email); err != nil {
		return domain.User{}, fmt.Errorf("discard code: %w", err)
	}
	metrics.CodesVerified.WithLabelValues("ok").Inc()

	// Login flow: the account already exists.
	if u, err := s.Store.Users().GetByEmail(ctx, email); err == nil {
		return s.markOnline(ctx, u.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	// Registration flow.
	username := vc.PendingUsername
	if username == "" {
		username = strings.TrimSpace(pendingUsername)
	}

	id := idx.New()
	if username == "" {
		username = "user_" + strings.ToLower(id[len(id)-6:])
	}

	now := s.now()
	u := domain.User{
		ID:         id,
		Email:      email,
		Username:   username,
		Level:      1,
		Coins:      newUserCoins,
		Admin:      slices.Contains(s.AdminCodes, code),
		Profession: newUserProfession,
		Online:     true,
		LastSeen:   now,
		CreatedAt:  now,
	}

	if err := s.Store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateIdentity
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	log.Info("user registered",
		slog.String("user_id", u.ID),
		slog.String("username", u.Username),
		slog.Bool("admin", u.Admin),
	)

	s.Broadcast.BroadcastExcept(u.ID, domain.UserJoined{User: u.Public()})
	return u, nil
}

// Login marks an already-registered user online. The session is established
// by the caller minting a token for the returned user.
func (s *VerificationService) Login(ctx context.Context, email string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return s.markOnline(ctx, u.ID)
}

func (s *VerificationService) markOnline(ctx context.Context, userID string) (domain.User, error) {
	now := s.now()
	u, err := s.Store.Users().Update(ctx, userID, func(u *domain.User) error {
		u.Online = true
		u.LastSeen = now
		return nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("mark online: %w", err)
	}

	s.Broadcast.BroadcastExcept(u.ID, domain.UserOnline{UserID: u.ID})
	return u, nil
}

// generateCode draws a uniform 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
