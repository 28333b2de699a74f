package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
)

// InitializeRedis connects the shared client used for role caching and
// webhook locks, and checks it can write.
func InitializeRedis(ctx context.Context, cfg config.RedisConfig, l *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		l.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Addr, err))
		client.Close()
		return nil, err
	}

	testKey := roleCachePrefix + "healthcheck"
	if err := client.Set(ctx, testKey, "ok", 5*time.Second).Err(); err != nil {
		l.Error("REDIS", fmt.Sprintf("Failed to write test value to Redis: %v", err))
		client.Close()
		return nil, err
	}

	l.Info("REDIS", fmt.Sprintf("Successfully connected to Redis at %s", cfg.Addr))
	return client, nil
}
