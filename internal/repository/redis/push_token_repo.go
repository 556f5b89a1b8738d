package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chatlink-backend/pkg/push"
)

const tokenExpiry = 30 * 24 * time.Hour

// PushTokenRepository stores device push tokens in Redis, one hash per
// user mapping token value to token type. Implements push.TokenStore.
type PushTokenRepository struct {
	client *redis.Client
}

// NewPushTokenRepository creates a new push token repository.
func NewPushTokenRepository(client *redis.Client) *PushTokenRepository {
	return &PushTokenRepository{client: client}
}

func userTokensKey(userID uuid.UUID) string {
	return fmt.Sprintf("push:user:%s:tokens", userID)
}

// Register stores a device token for a user. Re-registering an existing
// token refreshes its type and the expiry of the whole set.
func (r *PushTokenRepository) Register(ctx context.Context, token push.Token) error {
	key := userTokensKey(token.UserID)

	if err := r.client.HSet(ctx, key, token.Value, string(token.Type)).Err(); err != nil {
		return fmt.Errorf("failed to store push token: %w", err)
	}

	if err := r.client.Expire(ctx, key, tokenExpiry).Err(); err != nil {
		return fmt.Errorf("failed to set push token expiry: %w", err)
	}

	return nil
}

// Unregister removes a device token for a user.
func (r *PushTokenRepository) Unregister(ctx context.Context, userID uuid.UUID, value string) error {
	if err := r.client.HDel(ctx, userTokensKey(userID), value).Err(); err != nil {
		return fmt.Errorf("failed to remove push token: %w", err)
	}
	return nil
}

// GetTokens retrieves all registered device tokens for a user.
func (r *PushTokenRepository) GetTokens(ctx context.Context, userID uuid.UUID) ([]push.Token, error) {
	entries, err := r.client.HGetAll(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens: %w", err)
	}

	tokens := make([]push.Token, 0, len(entries))
	for value, tokenType := range entries {
		tokens = append(tokens, push.Token{
			UserID: userID,
			Type:   push.TokenType(tokenType),
			Value:  value,
		})
	}

	return tokens, nil
}

// RemoveTokens deletes the given token values for a user. Called when a
// provider reports them as invalid.
func (r *PushTokenRepository) RemoveTokens(ctx context.Context, userID uuid.UUID, values []string) error {
	if len(values) == 0 {
		return nil
	}

	if err := r.client.HDel(ctx, userTokensKey(userID), values...).Err(); err != nil {
		return fmt.Errorf("failed to remove push tokens: %w", err)
	}

	return nil
}
