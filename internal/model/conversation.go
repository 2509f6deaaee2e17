// Package model defines data structures for the chat platform.
package model

import (
	"time"
)

// DefaultTitle is the title every conversation starts with. It is replaced
// once, by the first user message.
const DefaultTitle = "New Conversation"

// EmptyPreview is reported for conversations without a user message.
const EmptyPreview = "Empty conversation"

// Conversation represents a conversation thread owned by one account.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`

	// Storage insertion counter, used to break updated_at ties.
	Sequence int64 `json:"-"`
}

// ConversationSummary is the list-view shape of a conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	MessageCount int       `json:"message_count"`
	LastUpdated  time.Time `json:"last_updated"`
	TimeDisplay  string    `json:"time_display"`
}

// History groups conversation summaries by recency.
type History struct {
	Today     []ConversationSummary `json:"today"`
	Yesterday []ConversationSummary `json:"yesterday"`
	Last7Days []ConversationSummary `json:"last_7_days"`
	Older     []ConversationSummary `json:"older"`
}

// ConversationDetail is a conversation together with its transcript.
type ConversationDetail struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Messages []MessageEntry `json:"messages"`
}
