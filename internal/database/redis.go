package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatlink-backend/pkg/config"
)

// Redis wraps a go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client and verifies the connection.
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

// Close closes the Redis connection.
func (db *Redis) Close() error {
	return db.Client.Close()
}

// Ping tests the Redis connection.
func (db *Redis) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx).Err()
}
