// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/internal/service"
)

// ChatService runs chat turns.
type ChatService interface {
	HandleTurn(ctx context.Context, ownerID, conversationID, text string) (*service.TurnResult, error)
}

// ConversationService manages conversations.
type ConversationService interface {
	Create(ctx context.Context, ownerID string) (*model.ConversationSummary, error)
	Detail(ctx context.Context, ownerID, conversationID string) (*model.ConversationDetail, error)
	Messages(ctx context.Context, ownerID, conversationID string) (string, []model.MessageEntry, error)
	Delete(ctx context.Context, ownerID, conversationID string) error
	History(ctx context.Context, ownerID string) (*model.History, error)
}

// AccountService manages accounts.
type AccountService interface {
	Provision(ctx context.Context, ownerID string) error
	Delete(ctx context.Context, ownerID string) error
}
