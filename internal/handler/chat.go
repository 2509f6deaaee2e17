package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/middleware"
	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/internal/service"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

// maxBodyBytes leaves room for JSON escaping around the largest message.
const maxBodyBytes = 4 * middleware.MaxMessageBytes

// ChatHandler handles chat turn and transcript endpoints.
type ChatHandler struct {
	chat          ChatService
	conversations ConversationService
	logger        *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat ChatService, conversations ConversationService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:          chat,
		conversations: conversations,
		logger:        log,
	}
}

// Send handles POST /api/v1/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, "Message is too long or not valid UTF-8")
		return
	}
	if req.ConversationID != "" && middleware.ValidateConversationID(req.ConversationID) != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	result, err := h.chat.HandleTurn(ctx, userID, req.ConversationID, req.Message)
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		writeError(w, http.StatusOK, msgEmptyMessage)
		return
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		h.logger.Error("chat turn failed",
			zap.String("user_id", userID),
			zap.String("conversation_id", req.ConversationID),
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, model.SendMessageResponse{
		Status:         statusSuccess,
		UserMessage:    result.UserMessage.Content,
		AIResponse:     result.AssistantMessage.Content,
		ConversationID: result.Conversation.ID,
	})
}

// Messages handles GET /api/v1/messages
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := r.URL.Query().Get("conversation_id")

	if conversationID != "" && middleware.ValidateConversationID(conversationID) != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	id, entries, err := h.conversations.Messages(ctx, userID, conversationID)
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	case err != nil:
		h.logger.Error("failed to list messages",
			zap.String("user_id", userID),
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, model.ListMessagesResponse{
		Status:         statusSuccess,
		ConversationID: id,
		Messages:       entries,
	})
}
