package turnlock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

const (
	keyPrefix  = "chat:turn:"
	retryDelay = 100 * time.Millisecond
)

// Redis is a Locker shared by every instance connected to the same Redis.
type Redis struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedis connects to the Redis at url (a redis:// URL) and verifies it
// responds. ttl bounds how long a crashed holder can block a conversation.
func NewRedis(ctx context.Context, url string, ttl time.Duration, log *logger.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisWithClient(client, ttl, log), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.Global()
	}
	return &Redis{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		logger: log,
	}
}

// Lock acquires the distributed mutex for key, retrying until ctx is done
// or the lock TTL has passed.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	tries := int(r.ttl/retryDelay) + 1
	mutex := r.rs.NewMutex(lockName(key),
		redsync.WithExpiry(r.ttl),
		redsync.WithTries(tries),
		redsync.WithRetryDelay(retryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire turn lock: %w", err)
	}

	return func() {
		// Unlock must succeed even if the request context was cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			r.logger.Error("failed to release turn lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func lockName(key string) string {
	return keyPrefix + key
}
