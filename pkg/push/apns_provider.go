package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	apnspayload "github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"go.uber.org/zap"

	"chatlink-backend/pkg/logger"
)

// APNsProvider implements Provider for the Apple Push Notification Service
type APNsProvider struct {
	client   *apns2.Client
	bundleID string
}

// APNsConfig contains configuration for the APNs provider (token-based
// authentication with a .p8 key)
type APNsConfig struct {
	KeyPath    string // Path to .p8 private key file
	KeyID      string // 10-character Key ID from Apple Developer Portal
	TeamID     string // 10-character Team ID from Apple Developer Portal
	BundleID   string // Bundle ID of the app (e.g., com.example.app)
	Production bool   // Use production APNs endpoint (true) or sandbox (false)
}

// NewAPNsProvider creates a new APNs provider
func NewAPNsProvider(config *APNsConfig) (*APNsProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("APNs config is required")
	}
	if config.BundleID == "" {
		return nil, fmt.Errorf("BundleID is required")
	}
	if config.KeyPath == "" || config.KeyID == "" || config.TeamID == "" {
		return nil, fmt.Errorf("KeyPath, KeyID and TeamID are required")
	}

	authKey, err := token.AuthKeyFromFile(config.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   config.KeyID,
		TeamID:  config.TeamID,
	})
	if config.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	logger.Info("APNs provider initialized",
		zap.String("bundle_id", config.BundleID),
		zap.Bool("production", config.Production))

	return &APNsProvider{
		client:   client,
		bundleID: config.BundleID,
	}, nil
}

// Send delivers the notification to the given APNs device tokens
func (a *APNsProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	if a.client == nil {
		return nil, fmt.Errorf("APNs client is not initialized")
	}
	if len(tokens) == 0 {
		return &SendResult{}, nil
	}

	p := apnspayload.NewPayload().
		AlertTitle(notification.Title).
		AlertBody(notification.Body)
	if notification.Sound != "" {
		p = p.Sound(notification.Sound)
	}
	if notification.Category != "" {
		p = p.Category(notification.Category)
	}
	for k, v := range notification.Data {
		p = p.Custom(k, v)
	}

	result := &SendResult{}
	for _, deviceToken := range tokens {
		apnsNotification := &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       a.bundleID,
			Payload:     p,
		}
		if notification.Priority == "high" {
			apnsNotification.Priority = apns2.PriorityHigh
		}

		res, err := a.client.PushWithContext(ctx, apnsNotification)
		if err != nil {
			result.FailureCount++
			logger.Warn("APNs push failed",
				zap.String("token_prefix", maskPushToken(deviceToken)),
				zap.Error(err))
			continue
		}

		if res.Sent() {
			result.SuccessCount++
			continue
		}

		result.FailureCount++
		if res.Reason == apns2.ReasonBadDeviceToken || res.Reason == apns2.ReasonUnregistered {
			result.InvalidTokens = append(result.InvalidTokens, deviceToken)
		}
	}

	return result, nil
}
