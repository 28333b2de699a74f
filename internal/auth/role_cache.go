package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const roleCachePrefix = "user_roles:"

type cachedRoles struct {
	Roles    []string  `json:"roles"`
	CachedAt time.Time `json:"cached_at"`
}

// RedisRoleCache keeps each user's roles for a short TTL so admin and
// affiliate checks skip the database on hot paths.
type RedisRoleCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRoleCache(client *redis.Client, ttl time.Duration) *RedisRoleCache {
	return &RedisRoleCache{Client: client, TTL: ttl}
}

// Get returns ok=false on a miss.
func (c *RedisRoleCache) Get(ctx context.Context, userID string) ([]string, bool, error) {
	if c.Client == nil {
		return nil, false, fmt.Errorf("redis client not initialized")
	}
	raw, err := c.Client.Get(ctx, roleCachePrefix+userID).Result()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to get roles from Redis: %w", err)
	}

	var entry cachedRoles
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached roles: %w", err)
	}
	return entry.Roles, true, nil
}

func (c *RedisRoleCache) Set(ctx context.Context, userID string, roles []string) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	raw, err := json.Marshal(cachedRoles{Roles: roles, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal roles: %w", err)
	}
	if err := c.Client.Set(ctx, roleCachePrefix+userID, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store roles in Redis: %w", err)
	}
	return nil
}
