package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/middleware"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

// AccountHandler handles account endpoints.
type AccountHandler struct {
	service AccountService
	logger  *logger.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(svc AccountService, log *logger.Logger) *AccountHandler {
	return &AccountHandler{service: svc, logger: log}
}

// Delete handles DELETE /api/v1/account
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.service.Delete(ctx, userID); err != nil {
		h.logger.Error("failed to delete account",
			zap.String("user_id", userID),
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeSuccess(w)
}
