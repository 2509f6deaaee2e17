package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-platform/internal/model"
)

func TestConversationCreateSummary(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.accounts.Provision(ctx, "alice"))

	summary, err := e.convs.Create(ctx, "alice")
	require.NoError(t, err)

	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, model.DefaultTitle, summary.Title)
	assert.Equal(t, "Empty conversation", summary.Preview)
	assert.Zero(t, summary.MessageCount)
	assert.Equal(t, "10:00 AM", summary.TimeDisplay)
	assert.True(t, summary.LastUpdated.Equal(testNow))
}

func TestConversationDetail(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.accounts.Provision(ctx, "alice"))
	conv, err := e.conversations.GetActive(ctx, "alice", "")
	require.NoError(t, err)

	_, err = e.messages.Append(ctx, conv, model.RoleUser, "question")
	require.NoError(t, err)
	_, err = e.messages.Append(ctx, conv, model.RoleAssistant, "answer")
	require.NoError(t, err)

	detail, err := e.convs.Detail(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, detail.ID)
	assert.Equal(t, "question", detail.Title)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, model.RoleUser, detail.Messages[0].Role)
	assert.Equal(t, "answer", detail.Messages[1].Content)

	_, err = e.convs.Detail(ctx, "bob", conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = e.convs.Detail(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestConversationMessages(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	id, entries, err := e.convs.Messages(ctx, "nobody", "")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	require.NoError(t, e.accounts.Provision(ctx, "alice"))
	first, err := e.conversations.GetActive(ctx, "alice", "")
	require.NoError(t, err)
	_, err = e.messages.Append(ctx, first, model.RoleUser, "in first")
	require.NoError(t, err)

	e.clock.Set(testNow.Add(time.Minute))
	second, err := e.conversations.Create(ctx, "alice")
	require.NoError(t, err)

	id, entries, err = e.convs.Messages(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)
	assert.Empty(t, entries)

	id, entries, err = e.convs.Messages(ctx, "alice", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)
	require.Len(t, entries, 1)
	assert.Equal(t, "in first", entries[0].Content)

	_, _, err = e.convs.Messages(ctx, "alice", "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestConversationDelete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.accounts.Provision(ctx, "alice"))
	conv, err := e.conversations.GetActive(ctx, "alice", "")
	require.NoError(t, err)

	require.NoError(t, e.convs.Delete(ctx, "alice", conv.ID))
	assert.ErrorIs(t, e.convs.Delete(ctx, "alice", conv.ID), ErrConversationNotFound)

	history, err := e.convs.History(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, history.Today)

	assert.Contains(t, e.events.types(), model.EventConversationDeleted)
}

func TestConversationHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.accounts.Provision(ctx, "alice"))
	empty, err := e.conversations.GetActive(ctx, "alice", "")
	require.NoError(t, err)

	e.clock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	old, err := e.conversations.Create(ctx, "alice")
	require.NoError(t, err)
	long := strings.Repeat("p", 150)
	_, err = e.messages.Append(ctx, old, model.RoleUser, long)
	require.NoError(t, err)

	e.clock.Set(time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC))
	recent, err := e.conversations.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = e.messages.Append(ctx, recent, model.RoleUser, "yesterday's question")
	require.NoError(t, err)
	_, err = e.messages.Append(ctx, recent, model.RoleAssistant, "answer")
	require.NoError(t, err)

	history, err := e.convs.HistoryAt(ctx, "alice", testNow)
	require.NoError(t, err)

	require.Len(t, history.Today, 1)
	assert.Equal(t, empty.ID, history.Today[0].ID)
	assert.Equal(t, "Empty conversation", history.Today[0].Preview)
	assert.Zero(t, history.Today[0].MessageCount)

	require.Len(t, history.Yesterday, 1)
	assert.Equal(t, recent.ID, history.Yesterday[0].ID)
	assert.Equal(t, "yesterday's question", history.Yesterday[0].Preview)
	assert.Equal(t, 2, history.Yesterday[0].MessageCount)
	assert.Equal(t, "Yesterday", history.Yesterday[0].TimeDisplay)

	require.Len(t, history.Older, 1)
	assert.Equal(t, strings.Repeat("p", 100)+"...", history.Older[0].Preview)
	assert.Equal(t, strings.Repeat("p", 50)+"...", history.Older[0].Title)
	assert.Equal(t, "Mar 1", history.Older[0].TimeDisplay)

	assert.Empty(t, history.Last7Days)
}

func TestConversationHistoryLocation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.accounts.Provision(ctx, "alice"))

	zone := time.FixedZone("UTC+9", 9*60*60)
	convs := NewConversationService(e.conversations, e.messages, nil, ConversationConfig{
		Location: zone,
		// 2024-03-16 01:00 local; the conversation was created on the 15th local.
		Now: func() time.Time { return time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC) },
	}, nil)

	history, err := convs.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history.Yesterday, 1)
	assert.Equal(t, "Yesterday", history.Yesterday[0].TimeDisplay)
}
