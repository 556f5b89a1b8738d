package push

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatlink-backend/pkg/logger"
)

// Provider defines the interface for sending push notifications to a
// batch of device tokens.
type Provider interface {
	Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error)
}

// SendResult contains the result of a push notification send operation
type SendResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// Notification represents a push notification
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"` // high, normal
	Sound    string            `json:"sound,omitempty"`
	Category string            `json:"category,omitempty"`
}

// TokenType represents the type of push notification token
type TokenType string

const (
	TokenTypeFCM  TokenType = "fcm"  // Firebase Cloud Messaging
	TokenTypeAPNs TokenType = "apns" // Apple Push Notification Service
)

// Token represents a registered device token for a user
type Token struct {
	UserID uuid.UUID `json:"user_id"`
	Type   TokenType `json:"type"`
	Value  string    `json:"value"`
}

// TokenStore looks up and prunes registered device tokens.
type TokenStore interface {
	GetTokens(ctx context.Context, userID uuid.UUID) ([]Token, error)
	RemoveTokens(ctx context.Context, userID uuid.UUID, values []string) error
}

// Dispatcher fans a notification out to all of a user's devices across
// the configured providers. Dispatch is strictly best-effort: errors
// are logged and swallowed, never returned to the calling API path.
type Dispatcher struct {
	providers map[TokenType]Provider
	tokens    TokenStore
}

// NewDispatcher creates a dispatcher over the given providers
func NewDispatcher(providers map[TokenType]Provider, tokens TokenStore) *Dispatcher {
	return &Dispatcher{
		providers: providers,
		tokens:    tokens,
	}
}

// SendToUser delivers the notification to every registered device of
// the user. Invalid tokens reported by a provider are pruned from the
// store.
func (d *Dispatcher) SendToUser(ctx context.Context, userID uuid.UUID, notification *Notification) {
	if d == nil || len(d.providers) == 0 {
		return
	}

	tokens, err := d.tokens.GetTokens(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load push tokens",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	byType := make(map[TokenType][]string)
	for _, t := range tokens {
		byType[t.Type] = append(byType[t.Type], t.Value)
	}

	for tokenType, values := range byType {
		provider, ok := d.providers[tokenType]
		if !ok {
			continue
		}

		result, err := provider.Send(ctx, notification, values)
		if err != nil {
			logger.Warn("Push send failed",
				zap.String("user_id", userID.String()),
				zap.String("provider", string(tokenType)),
				zap.Error(err))
			continue
		}

		if len(result.InvalidTokens) > 0 {
			if err := d.tokens.RemoveTokens(ctx, userID, result.InvalidTokens); err != nil {
				logger.Warn("Failed to prune invalid push tokens",
					zap.String("user_id", userID.String()),
					zap.Error(err))
			}
		}
	}
}

// maskPushToken truncates a token for safe logging
func maskPushToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...", token[:8])
}
