package http

import (
	"net/http"

	"github.com/anongram/server/internal/chat/service"
	"github.com/anongram/server/pkg/httpx"
	"github.com/anongram/server/pkg/slogx"
)

type UsersHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		List Users
//	@Description	Public user views: presence, level, profession — never emails or codes
//	@Tags			Users
//	@Produce		json
//	@Router			/api/users [get].
func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.UserService.ListUsers(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("user list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list users")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, users)
}
