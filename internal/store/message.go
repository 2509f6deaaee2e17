package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/capitalize-ai/chat-platform/internal/model"
)

const messageColumns = `seq, id, conversation_id, role, content, created_at`

// MessageStore owns the transcript of every conversation.
type MessageStore struct {
	db            *sql.DB
	clock         Clock
	conversations *ConversationStore
}

// NewMessageStore creates a message store. Appends derive titles and touch
// conversations through conversations.
func NewMessageStore(db *sql.DB, conversations *ConversationStore, clock Clock) *MessageStore {
	if clock == nil {
		clock = systemClock
	}
	return &MessageStore{db: db, clock: clock, conversations: conversations}
}

// Append stores a message at the end of the conversation's transcript. The
// first user message also gives the conversation its title.
func (s *MessageStore) Append(ctx context.Context, conv *model.Conversation, role model.Role, content string) (*model.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	if role == model.RoleUser {
		if _, err := s.conversations.DeriveTitleIfNeeded(ctx, conv, content); err != nil {
			return nil, err
		}
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Role:           role,
		Content:        content,
		CreatedAt:      s.clock.now(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		msg.Sequence = seq
	}

	if err := s.conversations.Touch(ctx, conv); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListOrdered returns the conversation's messages oldest first. Messages
// created in the same instant keep their insertion order.
func (s *MessageStore) ListOrdered(ctx context.Context, conversationID string) ([]*model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_id = ?
		 ORDER BY created_at ASC, seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Count returns the number of messages in the conversation.
func (s *MessageStore) Count(ctx context.Context, conversationID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`,
		conversationID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// FirstUserMessage returns the earliest user message of the conversation,
// or nil when there is none.
func (s *MessageStore) FirstUserMessage(ctx context.Context, conversationID string) (*model.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_id = ? AND role = ?
		 ORDER BY created_at ASC, seq ASC LIMIT 1`,
		conversationID, string(model.RoleUser),
	)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("first user message: %w", err)
	}
	return msg, nil
}

func scanMessage(row scanner) (*model.Message, error) {
	var (
		msg  model.Message
		role string
	)
	if err := row.Scan(
		&msg.Sequence,
		&msg.ID,
		&msg.ConversationID,
		&role,
		&msg.Content,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	msg.Role = model.Role(role)
	msg.CreatedAt = msg.CreatedAt.UTC()
	return &msg, nil
}
