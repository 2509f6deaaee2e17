// Package store persists conversations and their transcripts.
package store

import (
	"errors"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when a conversation is absent, inactive or
	// owned by someone else.
	ErrNotFound = errors.New("conversation not found")

	// ErrEmptyContent is returned when message content is blank.
	ErrEmptyContent = errors.New("message content cannot be empty")
)

const (
	titleLimit   = 50
	previewLimit = 100
	ellipsis     = "..."
)

// Clock returns the current time. Stores truncate it to microseconds so
// values survive a round trip through every supported backend.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

func (c Clock) now() time.Time {
	return c().UTC().Truncate(time.Microsecond)
}

// Truncate shortens s to at most limit runes, appending an ellipsis when
// anything was cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + ellipsis
}

// DeriveTitle returns the title a conversation takes from its first user
// message.
func DeriveTitle(content string) string {
	return Truncate(content, titleLimit)
}

// Preview returns the list-view preview for a first user message.
func Preview(content string) string {
	return Truncate(content, previewLimit)
}
