package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-booking/internal/utils"
)

const webhookLockPrefix = "webhook_lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// WebhookLock serialises notification handling per order. It only narrows
// the race window; the database update is what guarantees single settlement.
type WebhookLock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewWebhookLock(client *redis.Client, ttl time.Duration) *WebhookLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &WebhookLock{Client: client, TTL: ttl}
}

func lockKey(orderID string) string {
	return webhookLockPrefix + orderID
}

// Acquire returns a release func when the lock was taken. ok is false when
// another delivery for the same order holds it.
func (l *WebhookLock) Acquire(ctx context.Context, orderID string) (release func(), ok bool, err error) {
	token := utils.NewID()
	ok, err = l.Client.SetNX(ctx, lockKey(orderID), token, l.TTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire webhook lock for %s: %w", orderID, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		_ = l.Release(context.Background(), orderID, token)
	}, true, nil
}

// Release deletes the key only if it still holds token.
func (l *WebhookLock) Release(ctx context.Context, orderID, token string) error {
	return releaseScript.Run(ctx, l.Client, []string{lockKey(orderID)}, token).Err()
}
