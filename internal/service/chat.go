package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/internal/store"
	"github.com/capitalize-ai/chat-platform/internal/turnlock"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
	"github.com/capitalize-ai/chat-platform/pkg/metrics"
	"github.com/capitalize-ai/chat-platform/pkg/tracing"
)

// Completer produces the assistant reply for a transcript. It must not fail;
// provider problems are expressed in the returned text.
type Completer interface {
	Complete(ctx context.Context, transcript []*model.Message) string
}

// TurnResult is the outcome of a completed chat turn.
type TurnResult struct {
	Conversation     *model.Conversation
	UserMessage      *model.Message
	AssistantMessage *model.Message
}

// turnState names the steps of a turn for logging.
type turnState string

const (
	stateReceived            turnState = "received"
	stateUserPersisted       turnState = "user_persisted"
	stateHistoryAssembled    turnState = "history_assembled"
	stateCompletionRequested turnState = "completion_requested"
	stateReplyPersisted      turnState = "reply_persisted"
	stateDone                turnState = "done"
	stateFailed              turnState = "failed"
)

// ChatService runs chat turns.
type ChatService struct {
	conversations *store.ConversationStore
	messages      *store.MessageStore
	completer     Completer
	locker        turnlock.Locker
	events        EventPublisher
	tracer        trace.Tracer
	logger        *logger.Logger
}

// NewChatService creates a new chat service. A nil locker leaves concurrent
// turns on one conversation uncoordinated.
func NewChatService(
	conversations *store.ConversationStore,
	messages *store.MessageStore,
	completer Completer,
	locker turnlock.Locker,
	events EventPublisher,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		completer:     completer,
		locker:        locker,
		events:        orNop(events),
		tracer:        tracing.Tracer("chat-platform/service"),
		logger:        orGlobal(log),
	}
}

// HandleTurn stores the user's message, asks the completer for a reply and
// stores that too. Without a conversation id a new conversation is started.
// Storage failures after the user message was stored are returned as is;
// the user message stays persisted.
func (s *ChatService) HandleTurn(ctx context.Context, ownerID, conversationID, text string) (result *TurnResult, err error) {
	ctx, span := s.tracer.Start(ctx, "ChatService.HandleTurn",
		trace.WithAttributes(
			attribute.String("owner_id", ownerID),
			attribute.String("conversation_id", conversationID),
		),
	)
	defer span.End()

	log := s.logger.With(zap.String("owner_id", ownerID))
	state := stateReceived
	defer func() {
		if err != nil {
			log.Debug("turn failed", zap.String("state", string(stateFailed)), zap.String("after", string(state)), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordTurn(turnOutcome(err))
			return
		}
		metrics.RecordTurn("success")
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	if conversationID != "" && s.locker != nil {
		unlock, err := s.locker.Lock(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("lock conversation: %w", err)
		}
		defer unlock()
	}

	conv, created, err := s.resolve(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("conversation_id", conv.ID))
	span.SetAttributes(attribute.String("conversation_id", conv.ID))
	if created {
		metrics.RecordConversation("created")
		publish(ctx, s.events, log, newEvent(model.EventConversationCreated, ownerID, conv.ID, nil))
	}

	userMsg, err := s.messages.Append(ctx, conv, model.RoleUser, text)
	if err != nil {
		return nil, err
	}
	metrics.RecordMessage(string(model.RoleUser))
	state = stateUserPersisted
	log.Debug("turn state", zap.String("state", string(state)))

	transcript, err := s.messages.ListOrdered(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	state = stateHistoryAssembled
	log.Debug("turn state", zap.String("state", string(state)), zap.Int("messages", len(transcript)))

	state = stateCompletionRequested
	reply := s.completer.Complete(ctx, transcript)
	log.Debug("turn state", zap.String("state", string(state)))

	assistantMsg, err := s.messages.Append(ctx, conv, model.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}
	metrics.RecordMessage(string(model.RoleAssistant))
	state = stateReplyPersisted
	log.Debug("turn state", zap.String("state", string(state)))

	// Append already touched the conversation; this marks the end of the turn.
	if err := s.conversations.Touch(ctx, conv); err != nil {
		return nil, err
	}
	state = stateDone
	log.Debug("turn state", zap.String("state", string(state)))

	publish(ctx, s.events, log, newEvent(model.EventTurnCompleted, ownerID, conv.ID, map[string]string{
		"user_message_id":      userMsg.ID,
		"assistant_message_id": assistantMsg.ID,
	}))

	return &TurnResult{
		Conversation:     conv,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

func (s *ChatService) resolve(ctx context.Context, ownerID, conversationID string) (*model.Conversation, bool, error) {
	if conversationID == "" {
		conv, err := s.conversations.Create(ctx, ownerID)
		return conv, err == nil, err
	}

	conv, err := s.conversations.GetActive(ctx, ownerID, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, ErrConversationNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolve conversation: %w", err)
	}
	return conv, false, nil
}

func turnOutcome(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrConversationNotFound):
		return "not_found"
	default:
		return "error"
	}
}
