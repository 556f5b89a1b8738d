package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultMaxAttempts is the number of failed logins before lockout
	DefaultMaxAttempts = 5
	// DefaultLockDuration is how long the counter, and so the lock, lives
	DefaultLockDuration = 15 * time.Minute
)

// Manager tracks failed login attempts per account in Redis. The
// counter expires on its own, so a lock always clears after the
// configured duration without any cleanup job.
type Manager struct {
	client       *redis.Client
	maxAttempts  int
	lockDuration time.Duration
}

// NewManager creates a lockout manager with default thresholds
func NewManager(client *redis.Client) *Manager {
	return &Manager{
		client:       client,
		maxAttempts:  DefaultMaxAttempts,
		lockDuration: DefaultLockDuration,
	}
}

func attemptsKey(identifier string) string {
	return fmt.Sprintf("lockout:failed:%s", identifier)
}

// RecordFailure increments the failed attempt counter for an account
func (m *Manager) RecordFailure(ctx context.Context, identifier string) error {
	key := attemptsKey(identifier)

	pipe := m.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, m.lockDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record failed attempt: %w", err)
	}
	return nil
}

// IsLocked reports whether the account has exceeded the attempt limit
func (m *Manager) IsLocked(ctx context.Context, identifier string) (bool, error) {
	count, err := m.client.Get(ctx, attemptsKey(identifier)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check lockout status: %w", err)
	}
	return count >= m.maxAttempts, nil
}

// Clear resets the counter after a successful login
func (m *Manager) Clear(ctx context.Context, identifier string) error {
	if err := m.client.Del(ctx, attemptsKey(identifier)).Err(); err != nil {
		return fmt.Errorf("failed to clear failed attempts: %w", err)
	}
	return nil
}
