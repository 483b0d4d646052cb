/**
 * @description
 * This file contains custom middleware for the HTTP router: bearer token
 * authentication and client IP extraction. The auth middleware re-loads the
 * user on every request so role changes and deactivations take effect
 * immediately instead of at token expiry.
 *
 * @dependencies
 * - net/http, strings: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: Token verification and user lookup.
 */

package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/meridianbank/backoffice-service/internal/app"
	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

// userContextKey is a custom type for the context key to avoid collisions.
type userContextKey string

const currentUserKey userContextKey = "currentUser"

// CurrentUser returns the authenticated user attached by AuthMiddleware.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(currentUserKey).(*domain.User)
	return user, ok
}

// AuthMiddleware validates the bearer token and loads the current user.
func AuthMiddleware(auth *app.AuthService, repo store.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authorization header required"})
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid authorization header format"})
				return
			}

			userID, _, err := auth.VerifyToken(tokenString)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
				return
			}

			user, err := repo.GetUserByID(r.Context(), userID)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
				return
			}
			if !user.IsActive {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "user account is deactivated"})
				return
			}

			ctx := context.WithValue(r.Context(), currentUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPMiddleware attaches the caller's IP to the request context for the
// audit trail. The leftmost X-Forwarded-For entry wins behind a proxy.
func ClientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		next.ServeHTTP(w, r.WithContext(app.WithClientIP(r.Context(), ip)))
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
