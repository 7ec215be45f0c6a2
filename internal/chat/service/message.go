package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/metrics"
	"github.com/anongram/server/internal/chat/store"
	"github.com/anongram/server/pkg/idx"
	"github.com/anongram/server/pkg/slogx"
)

const (
	// historyLimit bounds the pull query; older messages stay stored but are
	// not served.
	historyLimit = 50

	// messageXP is the experience granted per sent message. Progression
	// derives from chat activity.
	messageXP = 10
)

var (
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrMessageNotFound = errors.New("message not found")
)

// MessageService persists chat messages and fans them out. Global messages go
// to everyone but the sender; direct messages go to the sender's and the
// recipient's rooms only.
type MessageService struct {
	Store     store.Store
	Broadcast Broadcaster
	Users     *UserService

	Now func() time.Time
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MessageService) Send(
	ctx context.Context,
	senderID, text, chatID string,
) (domain.Message, error) {
	log := slogx.FromContext(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	if chatID == "" {
		chatID = domain.GlobalChatID
	}

	if _, err := s.Store.Users().GetByID(ctx, senderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Message{}, ErrUserNotFound
		}
		return domain.Message{}, fmt.Errorf("lookup sender: %w", err)
	}

	m := domain.Message{
		ID:        idx.New(),
		SenderID:  senderID,
		ChatID:    chatID,
		Body:      text,
		Type:      domain.MessageText,
		CreatedAt: s.now(),
	}

	if m.Direct() {
		// The recipient must exist; whether they are connected is
		// irrelevant — delivery is best-effort and the message is always
		// retrievable through History.
		if _, err := s.Store.Users().GetByID(ctx, chatID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Message{}, ErrUserNotFound
			}
			return domain.Message{}, fmt.Errorf("lookup recipient: %w", err)
		}
	}

	if err := s.Store.Messages().Create(ctx, m); err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}
	metrics.MessagesSent.Inc()

	ev := domain.MessageNew{Message: m}
	if m.Direct() {
		s.Broadcast.SendToUser(m.ChatID, ev)
		s.Broadcast.SendToUser(m.SenderID, ev)
	} else {
		s.Broadcast.BroadcastExcept(m.SenderID, ev)
	}

	// Progression reward. A failure here never unwinds the stored message.
	if _, err := s.Users.AwardExperience(ctx, senderID, messageXP); err != nil {
		log.Warn("message xp award failed", slog.String("user_id", senderID), slog.Any("error", err))
	}

	return m, nil
}

// History returns the last 50 messages of a chat in chronological order.
func (s *MessageService) History(ctx context.Context, chatID string) ([]domain.Message, error) {
	if chatID == "" {
		chatID = domain.GlobalChatID
	}
	return s.Store.Messages().ListByChat(ctx, chatID, historyLimit)
}

// MarkRead flips the read flag and tells the sender's room.
func (s *MessageService) MarkRead(ctx context.Context, messageID string) (domain.Message, error) {
	m, err := s.Store.Messages().MarkRead(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Message{}, ErrMessageNotFound
		}
		return domain.Message{}, fmt.Errorf("mark read: %w", err)
	}

	s.Broadcast.SendToUser(m.SenderID, domain.MessageRead{
		MessageID: m.ID,
		ChatID:    m.ChatID,
	})
	return m, nil
}
