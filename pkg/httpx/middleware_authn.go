package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/anongram/server/pkg/slogx"
)

// TokenVerifier checks a bearer token and returns the subject (user id) it
// was minted for.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

// AuthnMiddleware enforces a valid bearer session token and injects the
// authenticated user id into the request context.
func AuthnMiddleware(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			userID, err := v.Verify(raw)
			if err != nil {
				log.Warn("session token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, ctxKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id placed by AuthnMiddleware, or ""
// for unauthenticated requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID).(string)
	return id
}

// RFC 6750-style error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
