package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const presenceTTL = 5 * time.Minute

// PresenceRepository tracks user online status in Redis. Entries expire
// unless refreshed by an active connection.
type PresenceRepository struct {
	client *redis.Client
}

// NewPresenceRepository creates a new presence repository.
func NewPresenceRepository(client *redis.Client) *PresenceRepository {
	return &PresenceRepository{client: client}
}

// SetOnline marks the user online, with a TTL so stale entries expire.
func (r *PresenceRepository) SetOnline(ctx context.Context, userID uuid.UUID) error {
	key := fmt.Sprintf("presence:%s", userID)

	if err := r.client.Set(ctx, key, "online", presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to set user online: %w", err)
	}

	if err := r.client.SAdd(ctx, "presence:online", userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to add to online set: %w", err)
	}

	return nil
}

// Refresh extends the TTL of an online user's presence entry.
func (r *PresenceRepository) Refresh(ctx context.Context, userID uuid.UUID) error {
	key := fmt.Sprintf("presence:%s", userID)

	if err := r.client.Expire(ctx, key, presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}

	return nil
}

// SetOffline marks the user offline.
func (r *PresenceRepository) SetOffline(ctx context.Context, userID uuid.UUID) error {
	key := fmt.Sprintf("presence:%s", userID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}

	if err := r.client.SRem(ctx, "presence:online", userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove from online set: %w", err)
	}

	return nil
}

// IsOnline reports whether the user has a live presence entry.
func (r *PresenceRepository) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := fmt.Sprintf("presence:%s", userID)

	_, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get presence: %w", err)
	}

	return true, nil
}
