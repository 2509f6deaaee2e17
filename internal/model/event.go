package model

import (
	"time"
)

// EventType represents the type of a domain event.
type EventType string

const (
	EventConversationCreated EventType = "conversation.created"
	EventConversationDeleted EventType = "conversation.deleted"
	EventTurnCompleted       EventType = "turn.completed"
	EventAccountProvisioned  EventType = "account.provisioned"
)

// Event is published whenever conversation state changes.
type Event struct {
	ID             string            `json:"id"`
	Type           EventType         `json:"type"`
	OwnerID        string            `json:"owner_id"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// AccountCreated is the payload other services publish when an account is
// registered.
type AccountCreated struct {
	UserID string `json:"user_id"`
}
