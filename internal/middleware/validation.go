package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageBytes bounds the size of a single chat message.
const MaxMessageBytes = 100000

// ValidateMessageContent validates message content. Blank content is left
// to the chat service, which reports it as an empty message.
func ValidateMessageContent(content string) error {
	if len(content) > MaxMessageBytes {
		return errors.New("message is too long")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateOwnerID validates an owner ID taken from a token subject.
func ValidateOwnerID(id string) error {
	if len(id) == 0 {
		return errors.New("owner ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("owner ID exceeds maximum length")
	}
	return nil
}
