package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

const (
	// AccountCreatedSubject carries model.AccountCreated payloads.
	AccountCreatedSubject = "accounts.created"

	accountQueue     = "chat-api"
	provisionTimeout = 10 * time.Second
)

var errMissingUserID = errors.New("account event missing user_id")

// Provisioner prepares a newly created account for chat.
type Provisioner interface {
	Provision(ctx context.Context, ownerID string) error
}

// SubscribeAccounts provisions every account announced on
// AccountCreatedSubject. Instances share a queue group so each event is
// handled once.
func SubscribeAccounts(client *Client, p Provisioner, log *logger.Logger) (*nats.Subscription, error) {
	sub, err := client.Conn().QueueSubscribe(AccountCreatedSubject, accountQueue, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
		defer cancel()

		if err := handleAccountCreated(ctx, p, msg.Data); err != nil {
			log.Error("failed to provision account", zap.Error(err))
			return
		}
		if msg.Reply != "" {
			_ = msg.Respond([]byte("ok"))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", AccountCreatedSubject, err)
	}
	return sub, nil
}

func handleAccountCreated(ctx context.Context, p Provisioner, data []byte) error {
	var event model.AccountCreated
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode account event: %w", err)
	}
	event.UserID = strings.TrimSpace(event.UserID)
	if event.UserID == "" {
		return errMissingUserID
	}
	return p.Provision(ctx, event.UserID)
}
