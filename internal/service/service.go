// Package service implements the chat use cases on top of the stores.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

var (
	// ErrEmptyMessage is returned when a turn carries only whitespace.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrConversationNotFound is returned when a conversation is absent,
	// inactive or owned by someone else.
	ErrConversationNotFound = errors.New("conversation not found")
)

// EventPublisher delivers domain events. Publishing is best effort: a failed
// publish never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, *model.Event) error { return nil }

func newEvent(eventType model.EventType, ownerID, conversationID string, data map[string]string) *model.Event {
	return &model.Event{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Type:           eventType,
		OwnerID:        ownerID,
		ConversationID: conversationID,
		Data:           data,
		CreatedAt:      time.Now().UTC(),
	}
}

func publish(ctx context.Context, pub EventPublisher, log *logger.Logger, event *model.Event) {
	if err := pub.Publish(ctx, event); err != nil {
		log.Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.String("owner_id", event.OwnerID),
			zap.Error(err),
		)
	}
}

func orNop(pub EventPublisher) EventPublisher {
	if pub == nil {
		return NopPublisher{}
	}
	return pub
}

func orGlobal(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Global()
	}
	return log
}
