package realtime

import (
	"context"
	"time"

	"github.com/anongram/server/internal/chat/domain"
)

// HandleFrame processes one inbound frame from a client. Malformed or
// unauthorized frames are logged and dropped; they never tear the
// connection down.
func (h *Hub) HandleFrame(ctx context.Context, c *Client, data []byte) {
	frame, err := decodeInbound(data)
	if err != nil {
		h.Logger.Warn("inbound frame rejected", "client_id", c.ID, "error", err)
		return
	}

	switch frame.Type {
	case inboundPing:
		h.sendTo(c, domain.Pong{Timestamp: time.Now().UnixMilli()})

	case inboundJoin:
		h.handleJoin(ctx, c, frame)

	case inboundTyping:
		sender := h.userOf(c)
		if sender == "" {
			h.Logger.Warn("typing frame from unassociated client", "client_id", c.ID)
			return
		}
		h.BroadcastExcept(sender, domain.UserTyping{
			UserID:   sender,
			ChatID:   frame.ChatID,
			IsTyping: frame.IsTyping,
		})

	case inboundMessage:
		sender := h.userOf(c)
		if sender == "" {
			h.Logger.Warn("message frame from unassociated client", "client_id", c.ID)
			return
		}
		chatID := frame.ChatID
		if frame.ReceiverID != "" {
			chatID = frame.ReceiverID
		}
		if _, err := h.Messages.Send(ctx, sender, frame.Text, chatID); err != nil {
			h.Logger.Warn("realtime message rejected",
				"client_id", c.ID, "user_id", sender, "error", err)
		}

	case inboundRead:
		if h.userOf(c) == "" {
			h.Logger.Warn("read receipt from unassociated client", "client_id", c.ID)
			return
		}
		if _, err := h.Messages.MarkRead(ctx, frame.MessageID); err != nil {
			h.Logger.Warn("read receipt rejected",
				"client_id", c.ID, "message_id", frame.MessageID, "error", err)
		}
	}
}

// handleJoin authenticates the frame's session token and associates the
// connection with the token's subject. A claimed userId that disagrees with
// the token is ignored in favor of the token.
func (h *Hub) handleJoin(ctx context.Context, c *Client, frame inboundFrame) {
	userID, err := h.Tokens.Verify(frame.Token)
	if err != nil {
		h.Logger.Warn("join rejected", "client_id", c.ID, "error", err)
		return
	}
	if frame.UserID != "" && frame.UserID != userID {
		h.Logger.Warn("join userId ignored, token subject wins",
			"client_id", c.ID, "claimed", frame.UserID, "subject", userID)
	}
	h.Associate(ctx, c, userID)
}

func (h *Hub) userOf(c *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.userID
}
