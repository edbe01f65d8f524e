package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/contacts-api/internal/domain"
)

type contextKey string

const userKey contextKey = "current_user"

// UserResolver turns a bearer token into the authenticated user. Implemented
// by the auth service, which validates the access scope and consults the
// identity cache.
type UserResolver interface {
	CurrentUser(ctx context.Context, bearer string) (*domain.User, error)
}

// Auth returns middleware that resolves the Bearer token and injects the
// authenticated user into the request context.
func Auth(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			bearer := strings.TrimPrefix(authHeader, "Bearer ")
			u, err := resolver.CurrentUser(r.Context(), bearer)
			if err != nil {
				// Only a rejected credential is a 401. A store failure must
				// not look like an invalidated session to clients.
				if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrNotFound) {
					writeJSONError(w, http.StatusUnauthorized, "could not validate credentials")
					return
				}
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok
}
