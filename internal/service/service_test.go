package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/internal/storage"
	"github.com/capitalize-ai/chat-platform/internal/store"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e *model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type stubCompleter struct {
	mu    sync.Mutex
	reply string
	seen  [][]*model.Message
}

func (c *stubCompleter) Complete(_ context.Context, transcript []*model.Message) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, transcript)
	return c.reply
}

type env struct {
	db            *sql.DB
	clock         *testClock
	events        *recordingPublisher
	accountStore  *store.AccountStore
	conversations *store.ConversationStore
	messages      *store.MessageStore
	accounts      *AccountService
	convs         *ConversationService
}

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(context.Background(), db, storage.DriverSQLite))

	clock := &testClock{now: testNow}
	events := &recordingPublisher{}
	accountStore := store.NewAccountStore(db, clock.Now)
	conversations := store.NewConversationStore(db, clock.Now)
	messages := store.NewMessageStore(db, conversations, clock.Now)

	return &env{
		db:            db,
		clock:         clock,
		events:        events,
		accountStore:  accountStore,
		conversations: conversations,
		messages:      messages,
		accounts:      NewAccountService(accountStore, conversations, events, logger.NewNop()),
		convs: NewConversationService(conversations, messages, events, ConversationConfig{
			Now: clock.Now,
		}, logger.NewNop()),
	}
}

func (e *env) chat(completer Completer) *ChatService {
	return NewChatService(e.conversations, e.messages, completer, nil, e.events, logger.NewNop())
}

func (e *env) countMessages(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n))
	return n
}
