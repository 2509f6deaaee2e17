package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

type recordingProvisioner struct {
	owners []string
	err    error
}

func (r *recordingProvisioner) Provision(_ context.Context, ownerID string) error {
	r.owners = append(r.owners, ownerID)
	return r.err
}

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "chat.alice.conversation.created", EventSubject("alice", model.EventConversationCreated))
	assert.Equal(t, "chat.a_b_c.turn.completed", EventSubject("a.b c", model.EventTurnCompleted))
	assert.Equal(t, "chat._.account.provisioned", EventSubject("", model.EventAccountProvisioned))
	assert.Equal(t, "chat.user_1.>", OwnerFilter("user*1"))
}

func TestHandleAccountCreated(t *testing.T) {
	p := &recordingProvisioner{}

	require.NoError(t, handleAccountCreated(context.Background(), p, []byte(`{"user_id":" 42 "}`)))
	assert.Equal(t, []string{"42"}, p.owners)

	err := handleAccountCreated(context.Background(), p, []byte(`{"user_id":""}`))
	assert.ErrorIs(t, err, errMissingUserID)

	err = handleAccountCreated(context.Background(), p, []byte(`not json`))
	assert.Error(t, err)
	assert.Len(t, p.owners, 1)
}

func TestHandleAccountCreatedPropagatesError(t *testing.T) {
	boom := errors.New("db down")
	p := &recordingProvisioner{err: boom}

	err := handleAccountCreated(context.Background(), p, []byte(`{"user_id":"7"}`))
	assert.ErrorIs(t, err, boom)
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{}, logger.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
