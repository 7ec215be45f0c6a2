package http

import (
	"errors"
	"net/http"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/service"
	"github.com/anongram/server/pkg/httpx"
	"github.com/anongram/server/pkg/slogx"
)

type VerifyCodeHandler struct {
	VerificationService *service.VerificationService
	TokenService        *service.TokenService
}

type verifyCodeRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Username string `json:"username"`
}

type verifyCodeResponse struct {
	Success bool              `json:"success"`
	User    domain.PublicUser `json:"user"`
	Token   string            `json:"token"`
}

// ServeHTTP godoc
//
//	@Summary		Verify Code
//	@Description	Validates a pending verification code; registers a new account or logs an existing one in and mints a session token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Router			/api/verify-code [post].
func (h *VerifyCodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "email and code are required")
		return
	}

	user, err := h.VerificationService.VerifyCode(ctx, req.Email, req.Code, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			httpx.WriteError(w, http.StatusBadRequest, "code_not_found",
				"No pending code for this email")
		case errors.Is(err, service.ErrCodeExpired):
			httpx.WriteError(w, http.StatusBadRequest, "code_expired",
				"The verification code has expired")
		case errors.Is(err, service.ErrCodeMismatch):
			httpx.WriteError(w, http.StatusBadRequest, "code_mismatch",
				"The verification code does not match")
		case errors.Is(err, service.ErrDuplicateIdentity):
			httpx.WriteError(w, http.StatusBadRequest, "duplicate_identity",
				"Email or username is already registered")
		default:
			log.Error("verify-code failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error",
				"Failed to verify the code")
		}
		return
	}

	token, err := h.TokenService.Mint(user.ID)
	if err != nil {
		log.Error("session token mint failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to establish a session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, verifyCodeResponse{
		Success: true,
		User:    user.Public(),
		Token:   token,
	})
}
