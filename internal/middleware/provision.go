package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

// Provisioner prepares an authenticated principal for chat.
type Provisioner interface {
	Provision(ctx context.Context, ownerID string) error
}

// Provision makes sure the authenticated user has an account before the
// request reaches a handler. It must run after Auth.
func Provision(p Provisioner, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				writeError(w, http.StatusUnauthorized, UnauthorizedMessage)
				return
			}
			if err := p.Provision(r.Context(), userID); err != nil {
				log.Error("failed to provision account",
					zap.String("user_id", userID),
					zap.String("correlation_id", GetCorrelationID(r.Context())),
					zap.Error(err),
				)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
