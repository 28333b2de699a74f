package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-booking/internal/apperrors"
	"ms-booking/internal/logger"
	"ms-booking/internal/utils"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	emailKey  contextKey = "email"
)

// Middleware rejects requests without a verifiable bearer token and puts
// the caller's subject and email on the request context.
func Middleware(v TokenVerifier, l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, apperrors.Unauthorized(err.Error()))
				return
			}

			claims, err := v.Verify(r.Context(), rawToken)
			if err != nil {
				l.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.Subject, claims.Email)))
		})
	}
}

func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, emailKey, email)
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}

func Email(ctx context.Context) string {
	if email, ok := ctx.Value(emailKey).(string); ok {
		return email
	}
	return ""
}
