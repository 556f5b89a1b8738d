package config

import (
	"fmt"
	"time"

	"chatlink-backend/pkg/env"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Push     PushConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Environment string // development, staging, production
	ServiceName string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN builds the connection string for pgx
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// PushConfig holds mobile push notification configuration
type PushConfig struct {
	Enabled             bool
	FCMCredentialsFile  string
	APNsKeyFile         string
	APNsKeyID           string
	APNsTeamID          string
	APNsTopic           string
	APNsUseSandbox      bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, file
	FilePath string
}

// Load reads configuration from environment variables, with Docker
// secret (_FILE) support for credentials.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        env.GetInt("SERVER_PORT", 8080),
			Environment: env.GetString("ENV", "development"),
			ServiceName: env.GetString("SERVICE_NAME", "messaging-service"),
		},
		Database: DatabaseConfig{
			Host:     env.GetString("DB_HOST", "localhost"),
			Port:     env.GetInt("DB_PORT", 5432),
			User:     env.GetString("DB_USER", "postgres"),
			Password: env.GetStringFromFile("DB_PASSWORD", ""),
			Database: env.GetString("DB_NAME", "chatlink_db"),
			SSLMode:  env.GetString("DB_SSLMODE", "disable"),
			MaxConns: env.GetInt("DB_MAX_CONNS", 25),
			MinConns: env.GetInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
			PoolSize: env.GetInt("REDIS_POOL_SIZE", 10),
			Timeout:  env.GetDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		JWT: JWTConfig{
			Secret:             env.GetStringFromFile("JWT_SECRET", ""),
			AccessTokenExpiry:  env.GetDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: env.GetDuration("JWT_REFRESH_EXPIRY", 30*24*time.Hour),
		},
		Push: PushConfig{
			Enabled:            env.GetBool("PUSH_ENABLED", false),
			FCMCredentialsFile: env.GetString("FCM_CREDENTIALS_FILE", ""),
			APNsKeyFile:        env.GetString("APNS_KEY_FILE", ""),
			APNsKeyID:          env.GetString("APNS_KEY_ID", ""),
			APNsTeamID:         env.GetString("APNS_TEAM_ID", ""),
			APNsTopic:          env.GetString("APNS_TOPIC", ""),
			APNsUseSandbox:     env.GetBool("APNS_USE_SANDBOX", true),
		},
		Log: LogConfig{
			Level:    env.GetString("LOG_LEVEL", "info"),
			Format:   env.GetString("LOG_FORMAT", "json"),
			Output:   env.GetString("LOG_OUTPUT", "stdout"),
			FilePath: env.GetString("LOG_FILE_PATH", ""),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	return cfg, nil
}
