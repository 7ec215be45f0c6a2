package http

import (
	"errors"
	"net/http"

	"github.com/anongram/server/internal/chat/domain"
	"github.com/anongram/server/internal/chat/service"
	"github.com/anongram/server/pkg/httpx"
	"github.com/anongram/server/pkg/slogx"
)

type LoginHandler struct {
	VerificationService *service.VerificationService
	TokenService        *service.TokenService
}

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Success bool              `json:"success"`
	User    domain.PublicUser `json:"user"`
	Token   string            `json:"token"`
}

// ServeHTTP godoc
//
//	@Summary		Login
//	@Description	Marks a registered user online and mints a session token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Router			/api/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "Invalid JSON body")
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	}

	user, err := h.VerificationService.Login(ctx, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "user_not_found",
				"No account registered for this email")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to log in")
		return
	}

	token, err := h.TokenService.Mint(user.ID)
	if err != nil {
		log.Error("session token mint failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to establish a session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User:    user.Public(),
		Token:   token,
	})
}
