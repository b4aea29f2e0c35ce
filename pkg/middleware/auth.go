package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dkarlss/storefront/pkg/errors"
	"github.com/dkarlss/storefront/pkg/httputil"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	emailKey  contextKey = "email"
)

// Claims carries the identity extracted from a verified access token.
type Claims struct {
	UserID string
	Email  string
}

// TokenVerifier validates an access token and returns its claims. The
// identity service injects its JWT verification here.
type TokenVerifier func(token string) (*Claims, error)

// Auth requires a Bearer token on the request and stores the verified
// identity in context.
func Auth(verify TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.WriteError(w, r, errors.Unauthorized("missing authorization header"), log)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httputil.WriteError(w, r, errors.Unauthorized("invalid authorization header format"), log)
				return
			}

			claims, err := verify(parts[1])
			if err != nil {
				httputil.WriteError(w, r, errors.Unauthorized("invalid or expired token"), log)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, emailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user ID, or "" when the
// request was not authenticated.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// EmailFromContext returns the authenticated user's email, or "".
func EmailFromContext(ctx context.Context) string {
	if email, ok := ctx.Value(emailKey).(string); ok {
		return email
	}
	return ""
}
