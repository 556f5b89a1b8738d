package push

import (
	"go.uber.org/zap"

	"chatlink-backend/pkg/config"
	"chatlink-backend/pkg/logger"
)

// NewProvidersFromConfig builds the provider set from configuration.
// A provider that fails to initialize is skipped with a warning.
func NewProvidersFromConfig(cfg *config.PushConfig) map[TokenType]Provider {
	providers := make(map[TokenType]Provider)
	if cfg == nil || !cfg.Enabled {
		return providers
	}

	if cfg.FCMCredentialsFile != "" {
		fcm, err := NewFCMProvider(&FCMConfig{CredentialsPath: cfg.FCMCredentialsFile})
		if err != nil {
			logger.Warn("Skipping FCM provider", zap.Error(err))
		} else {
			providers[TokenTypeFCM] = fcm
		}
	}

	if cfg.APNsKeyFile != "" {
		apns, err := NewAPNsProvider(&APNsConfig{
			KeyPath:    cfg.APNsKeyFile,
			KeyID:      cfg.APNsKeyID,
			TeamID:     cfg.APNsTeamID,
			BundleID:   cfg.APNsTopic,
			Production: !cfg.APNsUseSandbox,
		})
		if err != nil {
			logger.Warn("Skipping APNs provider", zap.Error(err))
		} else {
			providers[TokenTypeAPNs] = apns
		}
	}

	return providers
}
