package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/internal/store"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
	"github.com/capitalize-ai/chat-platform/pkg/metrics"
)

// ConversationConfig configures a ConversationService.
type ConversationConfig struct {
	// Location is where history dates and labels are computed. Defaults
	// to UTC.
	Location *time.Location
	// Now overrides the clock used for history.
	Now func() time.Time
}

// ConversationService handles conversation operations.
type ConversationService struct {
	conversations *store.ConversationStore
	messages      *store.MessageStore
	events        EventPublisher
	location      *time.Location
	now           func() time.Time
	logger        *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(
	conversations *store.ConversationStore,
	messages *store.MessageStore,
	events EventPublisher,
	cfg ConversationConfig,
	log *logger.Logger,
) *ConversationService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		events:        orNop(events),
		location:      cfg.Location,
		now:           cfg.Now,
		logger:        orGlobal(log),
	}
}

// Create starts an empty conversation and returns its summary.
func (s *ConversationService) Create(ctx context.Context, ownerID string) (*model.ConversationSummary, error) {
	conv, err := s.conversations.Create(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	metrics.RecordConversation("created")
	publish(ctx, s.events, s.logger, newEvent(model.EventConversationCreated, ownerID, conv.ID, nil))

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("owner_id", ownerID),
	)

	summary, err := s.summarize(ctx, conv)
	if err != nil {
		return nil, err
	}
	summary.TimeDisplay = DisplayLabel(summary.LastUpdated, s.localNow())
	return summary, nil
}

// Detail returns an active conversation with its full transcript.
func (s *ConversationService) Detail(ctx context.Context, ownerID, conversationID string) (*model.ConversationDetail, error) {
	conv, err := s.lookup(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return &model.ConversationDetail{
		ID:       conv.ID,
		Title:    conv.Title,
		Messages: entries,
	}, nil
}

// Messages returns the ordered transcript of a conversation. An empty id
// selects the owner's most recently updated conversation; when the owner
// has none the result is empty.
func (s *ConversationService) Messages(ctx context.Context, ownerID, conversationID string) (string, []model.MessageEntry, error) {
	conv, err := s.conversations.GetActive(ctx, ownerID, conversationID)
	switch {
	case errors.Is(err, store.ErrNotFound) && conversationID == "":
		return "", []model.MessageEntry{}, nil
	case errors.Is(err, store.ErrNotFound):
		return "", nil, ErrConversationNotFound
	case err != nil:
		return "", nil, err
	}

	entries, err := s.entries(ctx, conv.ID)
	if err != nil {
		return "", nil, err
	}
	return conv.ID, entries, nil
}

// Delete soft-deletes an active conversation.
func (s *ConversationService) Delete(ctx context.Context, ownerID, conversationID string) error {
	conv, err := s.lookup(ctx, ownerID, conversationID)
	if err != nil {
		return err
	}
	if err := s.conversations.SoftDelete(ctx, conv); err != nil {
		return err
	}
	metrics.RecordConversation("deleted")
	publish(ctx, s.events, s.logger, newEvent(model.EventConversationDeleted, ownerID, conv.ID, nil))

	s.logger.Info("conversation deleted",
		zap.String("conversation_id", conv.ID),
		zap.String("owner_id", ownerID),
	)
	return nil
}

// History groups the owner's active conversations by recency.
func (s *ConversationService) History(ctx context.Context, ownerID string) (*model.History, error) {
	return s.HistoryAt(ctx, ownerID, s.localNow())
}

// HistoryAt groups the owner's active conversations by recency relative to
// now.
func (s *ConversationService) HistoryAt(ctx context.Context, ownerID string, now time.Time) (*model.History, error) {
	convs, err := s.conversations.ListActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary, err := s.summarize(ctx, conv)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	history := BuildHistory(summaries, now)
	return &history, nil
}

func (s *ConversationService) summarize(ctx context.Context, conv *model.Conversation) (*model.ConversationSummary, error) {
	count, err := s.messages.Count(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	first, err := s.messages.FirstUserMessage(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	preview := model.EmptyPreview
	if first != nil {
		preview = store.Preview(first.Content)
	}
	return &model.ConversationSummary{
		ID:           conv.ID,
		Title:        conv.Title,
		Preview:      preview,
		MessageCount: count,
		LastUpdated:  conv.UpdatedAt,
	}, nil
}

func (s *ConversationService) lookup(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, ErrConversationNotFound
	}
	conv, err := s.conversations.GetActive(ctx, ownerID, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) entries(ctx context.Context, conversationID string) ([]model.MessageEntry, error) {
	msgs, err := s.messages.ListOrdered(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	entries := make([]model.MessageEntry, len(msgs))
	for i, msg := range msgs {
		entries[i] = msg.Entry()
	}
	return entries, nil
}

func (s *ConversationService) localNow() time.Time {
	return s.now().In(s.location)
}
