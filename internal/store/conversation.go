package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/capitalize-ai/chat-platform/internal/model"
)

const conversationColumns = `seq, id, owner_id, title, created_at, updated_at, is_active`

// ConversationStore owns conversation records.
type ConversationStore struct {
	db    *sql.DB
	clock Clock
}

// NewConversationStore creates a conversation store. A nil clock uses the
// system time.
func NewConversationStore(db *sql.DB, clock Clock) *ConversationStore {
	if clock == nil {
		clock = systemClock
	}
	return &ConversationStore{db: db, clock: clock}
}

// Create inserts a new active conversation with the default title.
func (s *ConversationStore) Create(ctx context.Context, ownerID string) (*model.Conversation, error) {
	return s.insert(ctx, s.db, ownerID)
}

// CreateTx is Create inside the caller's transaction.
func (s *ConversationStore) CreateTx(ctx context.Context, tx *sql.Tx, ownerID string) (*model.Conversation, error) {
	return s.insert(ctx, tx, ownerID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *ConversationStore) insert(ctx context.Context, db execer, ownerID string) (*model.Conversation, error) {
	now := s.clock.now()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		OwnerID:   ownerID,
		Title:     model.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO conversations (id, owner_id, title, created_at, updated_at, is_active) VALUES (?, ?, ?, ?, ?, 1)`,
		conv.ID, conv.OwnerID, conv.Title, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		conv.Sequence = seq
	}
	return conv, nil
}

// GetActive returns the active conversation with the given id for owner.
// With an empty id it returns the owner's most recently updated active
// conversation.
func (s *ConversationStore) GetActive(ctx context.Context, ownerID, id string) (*model.Conversation, error) {
	var row *sql.Row
	if id == "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+conversationColumns+` FROM conversations
			 WHERE owner_id = ? AND is_active = 1
			 ORDER BY updated_at DESC, seq DESC LIMIT 1`,
			ownerID,
		)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+conversationColumns+` FROM conversations
			 WHERE id = ? AND owner_id = ? AND is_active = 1`,
			id, ownerID,
		)
	}

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// Touch bumps the conversation's updated timestamp.
func (s *ConversationStore) Touch(ctx context.Context, conv *model.Conversation) error {
	now := s.clock.now()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		now, conv.ID,
	); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	conv.UpdatedAt = now
	return nil
}

// DeriveTitleIfNeeded replaces the default title with one derived from
// content. The update is conditional on the stored title, so it happens at
// most once per conversation. It reports whether the title changed.
func (s *ConversationStore) DeriveTitleIfNeeded(ctx context.Context, conv *model.Conversation, content string) (bool, error) {
	if conv.Title != model.DefaultTitle {
		return false, nil
	}

	title := DeriveTitle(content)
	now := s.clock.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND title = ?`,
		title, now, conv.ID, model.DefaultTitle,
	)
	if err != nil {
		return false, fmt.Errorf("derive conversation title: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("conversation rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	conv.Title = title
	conv.UpdatedAt = now
	return true, nil
}

// SoftDelete marks the conversation inactive. Deleting twice is a no-op.
func (s *ConversationStore) SoftDelete(ctx context.Context, conv *model.Conversation) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET is_active = 0 WHERE id = ?`,
		conv.ID,
	); err != nil {
		return fmt.Errorf("soft delete conversation: %w", err)
	}
	conv.IsActive = false
	return nil
}

// ListActive returns the owner's active conversations, most recently
// updated first.
func (s *ConversationStore) ListActive(ctx context.Context, ownerID string) ([]*model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE owner_id = ? AND is_active = 1
		 ORDER BY updated_at DESC, seq DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*model.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*model.Conversation, error) {
	var conv model.Conversation
	if err := row.Scan(
		&conv.Sequence,
		&conv.ID,
		&conv.OwnerID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
		&conv.IsActive,
	); err != nil {
		return nil, err
	}
	conv.CreatedAt = conv.CreatedAt.UTC()
	conv.UpdatedAt = conv.UpdatedAt.UTC()
	return &conv, nil
}
