package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/internal/store"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
	"github.com/capitalize-ai/chat-platform/pkg/metrics"
)

// AccountService prepares accounts for chat and removes them.
type AccountService struct {
	accounts      *store.AccountStore
	conversations *store.ConversationStore
	events        EventPublisher
	logger        *logger.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(accounts *store.AccountStore, conversations *store.ConversationStore, events EventPublisher, log *logger.Logger) *AccountService {
	return &AccountService{
		accounts:      accounts,
		conversations: conversations,
		events:        orNop(events),
		logger:        orGlobal(log),
	}
}

// Provision registers the account if it is new and gives it exactly one
// initial conversation. The account and its first conversation are written
// together. Calling it again for a known account does nothing.
func (s *AccountService) Provision(ctx context.Context, ownerID string) error {
	var conv *model.Conversation
	created, err := s.accounts.Ensure(ctx, ownerID, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		conv, err = s.conversations.CreateTx(ctx, tx, ownerID)
		return err
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	metrics.RecordConversation("created")
	publish(ctx, s.events, s.logger, newEvent(model.EventAccountProvisioned, ownerID, "", nil))
	publish(ctx, s.events, s.logger, newEvent(model.EventConversationCreated, ownerID, conv.ID, nil))

	s.logger.Info("account provisioned",
		zap.String("owner_id", ownerID),
		zap.String("conversation_id", conv.ID),
	)
	return nil
}

// Delete removes the account together with all of its conversations and
// messages.
func (s *AccountService) Delete(ctx context.Context, ownerID string) error {
	if err := s.accounts.Delete(ctx, ownerID); err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.String("owner_id", ownerID))
	return nil
}
