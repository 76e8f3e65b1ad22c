package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vantegra/fieldgo/internal/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	ID    string
	Email string
	Role  string
}

// Auth returns middleware that verifies Bearer JWT tokens and stores the
// caller in the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			// Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(parts[1], secret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			principal := Principal{}
			if id, ok := claims["id"].(string); ok {
				principal.ID = id
			}
			if email, ok := claims["email"].(string); ok {
				principal.Email = email
			}
			if role, ok := claims["role"].(string); ok {
				principal.Role = role
			}
			if principal.ID == "" {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the authenticated caller stored by Auth.
func UserFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(UserContextKey).(Principal)
	return p, ok
}
