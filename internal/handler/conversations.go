package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/middleware"
	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/internal/service"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

type historyResponse struct {
	Status  string         `json:"status"`
	History *model.History `json:"history"`
}

type createResponse struct {
	Status       string                     `json:"status"`
	Conversation *model.ConversationSummary `json:"conversation"`
}

type detailResponse struct {
	Status string `json:"status"`
	*model.ConversationDetail
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	summary, err := h.service.Create(ctx, userID)
	if err != nil {
		h.internalError(w, r, "failed to create conversation", err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		Status:       statusSuccess,
		Conversation: summary,
	})
}

// History handles GET /api/v1/conversations/history
func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	history, err := h.service.History(ctx, userID)
	if err != nil {
		h.internalError(w, r, "failed to build history", err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Status:  statusSuccess,
		History: history,
	})
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if middleware.ValidateConversationID(conversationID) != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	detail, err := h.service.Detail(ctx, userID, conversationID)
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		h.internalError(w, r, "failed to get conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{
		Status:             statusSuccess,
		ConversationDetail: detail,
	})
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if middleware.ValidateConversationID(conversationID) != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	err := h.service.Delete(ctx, userID, conversationID)
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		h.internalError(w, r, "failed to delete conversation", err)
		return
	}

	writeSuccess(w)
}

func (h *ConversationHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		zap.String("user_id", middleware.GetUserID(r.Context())),
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, msgInternal)
}
