package http

import (
	"errors"
	"net/http"

	"github.com/anongram/server/internal/chat/service"
	"github.com/anongram/server/pkg/httpx"
	"github.com/anongram/server/pkg/slogx"
)

type SendCodeHandler struct {
	VerificationService *service.VerificationService
}

type sendCodeRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

type sendCodeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ServeHTTP godoc
//
//	@Summary		Request Verification Code
//	@Description	Generates a 6-digit code for the email, supersedes any pending one and mails it
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Router			/api/send-code [post].
func (h *SendCodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sendCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "Invalid JSON body")
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	}

	err := h.VerificationService.RequestCode(ctx, req.Email, req.Username)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, sendCodeResponse{
			Success: true,
			Message: "Verification code sent",
		})
	case errors.Is(err, service.ErrDuplicateIdentity):
		httpx.WriteError(w, http.StatusBadRequest, "duplicate_identity",
			"Email or username is already registered")
	case errors.Is(err, service.ErrDeliveryFailed):
		// The code is stored and stays valid; only delivery failed.
		httpx.WriteError(w, http.StatusInternalServerError, "delivery_failed",
			"Could not deliver the verification code")
	default:
		log.Error("send-code failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to process the request")
	}
}
