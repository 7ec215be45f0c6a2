package http

import (
	"net/http"
	"time"

	"github.com/anongram/server/internal/chat/store"
	"github.com/anongram/server/pkg/httpx"
)

type statusResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Users     int    `json:"users"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
	Checks  any    `json:"checks,omitempty"`
}

type healthChecks struct {
	Store string `json:"store"`
}

// StatusHandler serves the root status page the original prototype exposed
// for its hosting platform's health checker.
func StatusHandler(startTime time.Time, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := st.Users().List(r.Context())
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, statusResponse{
			Status:    "OK",
			Message:   "Anongram Server Running",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Users:     len(users),
		})
	}
}

// LivezHandler godoc
//
//	@Summary		Liveness Probe
//	@Description	Always 200 while the process is up
//	@Tags			Health
//	@Produce		json
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Probe
//	@Description	Checks the backing store before reporting ready
//	@Tags			Health
//	@Produce		json
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := healthChecks{Store: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Store = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, healthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
