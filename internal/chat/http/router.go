package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anongram/server/internal/chat/realtime"
	"github.com/anongram/server/internal/chat/service"
	"github.com/anongram/server/internal/chat/store"
	"github.com/anongram/server/pkg/httpx"
	"github.com/anongram/server/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	VerificationService *service.VerificationService
	UserService         *service.UserService
	ProfessionService   *service.ProfessionService
	MessageService      *service.MessageService
	TokenService        *service.TokenService
	Hub                 *realtime.Hub
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerProfessions()
	r.registerMessages()
	r.registerRealtime()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	r.Mux.Handle("POST /api/send-code",
		&SendCodeHandler{VerificationService: r.VerificationService})
	r.Mux.Handle("POST /api/verify-code",
		&VerifyCodeHandler{
			VerificationService: r.VerificationService,
			TokenService:        r.TokenService,
		})
	r.Mux.Handle("POST /api/login",
		&LoginHandler{
			VerificationService: r.VerificationService,
			TokenService:        r.TokenService,
		})
}

func (r *Router) registerUsers() {
	r.Mux.Handle("GET /api/users", &UsersHandler{UserService: r.UserService})
}

func (r *Router) registerProfessions() {
	h := &ProfessionsHandler{ProfessionService: r.ProfessionService}

	r.Mux.Handle("GET /api/professions", http.HandlerFunc(h.HandleList))

	// Mutations require the session token minted at verify/login time.
	r.Mux.Handle("POST /api/select-profession",
		httpx.Chain(http.HandlerFunc(h.HandleSelect),
			httpx.AuthnMiddleware(r.TokenService),
		),
	)
}

func (r *Router) registerMessages() {
	h := &MessagesHandler{MessageService: r.MessageService}

	r.Mux.Handle("GET /api/messages/{chatId}", http.HandlerFunc(h.HandleHistory))

	r.Mux.Handle("POST /api/send-message",
		httpx.Chain(http.HandlerFunc(h.HandleSend),
			httpx.AuthnMiddleware(r.TokenService),
		),
	)
	r.Mux.Handle("POST /api/messages/{id}/read",
		httpx.Chain(http.HandlerFunc(h.HandleMarkRead),
			httpx.AuthnMiddleware(r.TokenService),
		),
	)
}

func (r *Router) registerRealtime() {
	r.Mux.HandleFunc("GET /ws", r.Hub.ServeWS)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /{$}", StatusHandler(r.startTime, r.store))
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
