package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"loan-tracker/internal/config"
	"loan-tracker/internal/domain/user"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// TokenVerifier resolves a bearer token to the user owning its session.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*user.User, error)
}

// UserFromContext returns the authenticated user set by AuthMiddleware.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey).(*user.User)
	return u, ok
}

// TokenFromContext returns the raw bearer token of the request.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func AuthMiddleware(cfg config.AuthConfig, verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				logger.WarnContext(r.Context(), "AuthMiddleware: Missing or malformed Authorization header")
				unauthorized(w)
				return
			}

			u, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.WarnContext(r.Context(), "AuthMiddleware: Invalid token", slog.Any("error", err))
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, u)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"message":"Unauthorized"}}`))
}
