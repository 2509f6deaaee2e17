package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role that may be stored.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message represents a conversation message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`

	// Storage insertion counter; breaks created_at ties.
	Sequence int64 `json:"-"`
}

// Entry converts a message into its wire shape.
func (m *Message) Entry() MessageEntry {
	return MessageEntry{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
	}
}

// MessageEntry is the wire shape of a transcript entry.
type MessageEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SendMessageRequest is the body of a chat turn.
type SendMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// SendMessageResponse is returned after a completed turn.
type SendMessageResponse struct {
	Status         string `json:"status"`
	UserMessage    string `json:"user_message"`
	AIResponse     string `json:"ai_response"`
	ConversationID string `json:"conversation_id"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Status         string         `json:"status"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Messages       []MessageEntry `json:"messages"`
}
