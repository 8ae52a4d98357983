package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/xelth-com/eckclaims/internal/jobs"
	"github.com/xelth-com/eckclaims/internal/utils"
)

type contextKey string

const actorContextKey contextKey = "actor"

// CookieName is the session cookie set at login
const CookieName = "auth"

// TokenFromRequest prefers a Bearer header and falls back to the session cookie
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithActor stores the authenticated actor in ctx
func WithActor(ctx context.Context, actor jobs.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFrom returns the authenticated actor set by Auth
func ActorFrom(ctx context.Context) (jobs.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(jobs.Actor)
	return actor, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// Auth verifies the session token and attaches the actor to the request
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				unauthorized(w, "Unauthorized")
				return
			}

			claims, err := utils.ValidateToken(token, secret)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			actor := jobs.Actor{Username: claims.Username, Role: claims.Role}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireAdmin rejects actors without the admin role; use behind Auth
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			unauthorized(w, "Unauthorized")
			return
		}
		if !actor.IsAdmin() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"admin capability required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
