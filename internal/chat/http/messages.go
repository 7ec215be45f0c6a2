package http

import (
	"errors"
	"net/http"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/service"
	"github.com/anongram/server/pkg/httpx"
	"github.com/anongram/server/pkg/slogx"
)

type MessagesHandler struct {
	MessageService *service.MessageService
}

type sendMessageRequest struct {
	Text   string `json:"text"`
	ChatID string `json:"chatId"`
}

type sendMessageResponse struct {
	Success bool           `json:"success"`
	Message domain.Message `json:"message"`
}

// HandleSend godoc
//
//	@Summary		Send Message
//	@Description	Persists a chat message from the authenticated user and fans it out
//	@Tags			Messages
//	@Accept			json
//	@Produce		json
//	@Router			/api/send-message [post].
func (h *MessagesHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sendMessageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "Invalid JSON body")
		return
	}

	m, err := h.MessageService.Send(ctx, httpx.UserID(ctx), req.Text, req.ChatID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "text is required")
		case errors.Is(err, service.ErrUserNotFound):
			httpx.WriteError(w, http.StatusNotFound, "user_not_found",
				"Sender or recipient not found")
		default:
			log.Error("send message failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error",
				"Failed to send message")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sendMessageResponse{Success: true, Message: m})
}

// HandleHistory godoc
//
//	@Summary		Chat History
//	@Description	The last 50 messages of a chat in chronological order
//	@Tags			Messages
//	@Produce		json
//	@Router			/api/messages/{chatId} [get].
func (h *MessagesHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	messages, err := h.MessageService.History(ctx, r.PathValue("chatId"))
	if err != nil {
		slogx.FromContext(ctx).Error("message history failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to load messages")
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	httpx.WriteJSON(w, http.StatusOK, messages)
}

// HandleMarkRead godoc
//
//	@Summary		Mark Message Read
//	@Description	Sets the read flag and notifies the sender's room
//	@Tags			Messages
//	@Produce		json
//	@Router			/api/messages/{id}/read [post].
func (h *MessagesHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, err := h.MessageService.MarkRead(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Message not found")
			return
		}
		slogx.FromContext(ctx).Error("mark read failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to mark message read")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sendMessageResponse{Success: true, Message: m})
}
