package http

import (
	"errors"
	"net/http"

	"github.com/anongram/server/internal/chat/service"
	"github.com/anongram/server/pkg/httpx"
	"github.com/anongram/server/pkg/slogx"
)

type ProfessionsHandler struct {
	ProfessionService *service.ProfessionService
}

type selectProfessionRequest struct {
	UserID       string `json:"userId"`
	ProfessionID int    `json:"professionId"`
}

type selectProfessionResponse struct {
	Success    bool   `json:"success"`
	Profession string `json:"profession"`
}

// HandleList godoc
//
//	@Summary		Profession Catalog
//	@Description	The immutable profession catalog seeded at startup
//	@Tags			Professions
//	@Produce		json
//	@Router			/api/professions [get].
func (h *ProfessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	catalog, err := h.ProfessionService.List(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("profession list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to list professions")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, catalog)
}

// HandleSelect godoc
//
//	@Summary		Select Profession
//	@Description	Assigns a profession to the authenticated user after an eligibility check
//	@Tags			Professions
//	@Accept			json
//	@Produce		json
//	@Router			/api/select-profession [post].
func (h *ProfessionsHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req selectProfessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "Invalid JSON body")
		return
	}
	if req.ProfessionID == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "professionId is required")
		return
	}

	// The session owner picks for themselves; a stale userId in the body is
	// ignored in favor of the token subject.
	userID := httpx.UserID(ctx)

	name, err := h.ProfessionService.Assign(ctx, userID, req.ProfessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound),
			errors.Is(err, service.ErrProfessionNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found",
				"User or profession not found")
		case errors.Is(err, service.ErrInsufficientLevel):
			httpx.WriteError(w, http.StatusBadRequest, "insufficient_level",
				"User level is below the profession requirement")
		default:
			log.Error("profession assignment failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error",
				"Failed to assign profession")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, selectProfessionResponse{
		Success:    true,
		Profession: name,
	})
}
