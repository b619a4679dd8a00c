package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server             ServerConfig             `mapstructure:"server"`
	Auth               AuthConfig               `mapstructure:"auth"`
	CORS               CORSConfig               `mapstructure:"cors"`
	RateLimit          RateLimitConfig          `mapstructure:"rate_limit"`
	Redis              RedisConfig              `mapstructure:"redis"`
	Queue              QueueConfig              `mapstructure:"queue"`
	RecipientRateLimit RecipientRateLimitConfig `mapstructure:"recipient_rate_limit"`
	FCM                FCMConfig                `mapstructure:"fcm"`
	WebPush            WebPushConfig            `mapstructure:"webpush"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// RateLimitConfig holds HTTP edge rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig holds async queue settings.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxRetry    int `mapstructure:"max_retry"`
}

// RecipientRateLimitConfig holds per-recipient rate limiting settings.
type RecipientRateLimitConfig struct {
	MaxPerHour int `mapstructure:"max_per_hour"`
}

// FCMConfig holds settings for the batch-oriented mobile push channel.
// The provider's limit is expressed in requests/sec, so the rate applies
// to chunk requests, not individual messages.
type FCMConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServerKey    string `mapstructure:"server_key"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	MaxPerSecond int    `mapstructure:"max_per_second"`
}

// WebPushConfig holds settings for the per-subscription web push channel.
type WebPushConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	VAPIDPublicKey     string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey    string `mapstructure:"vapid_private_key"`
	Subscriber         string `mapstructure:"subscriber"`
	DefaultTTLSec      int    `mapstructure:"default_ttl_sec"`
	MaxPerSecond       int    `mapstructure:"max_per_second"`
	MaxConcurrentSends int    `mapstructure:"max_concurrent_sends"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the PUSHFAN_ prefix and underscore separators.
// Example: PUSHFAN_SERVER_PORT overrides server.port in config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Load .env file if it exists
	_ = godotenv.Load()

	// Environment variable settings
	v.SetEnvPrefix("PUSHFAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8082)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.max_retry", 5)
	v.SetDefault("recipient_rate_limit.max_per_hour", 10)
	v.SetDefault("fcm.enabled", true)
	v.SetDefault("fcm.chunk_size", 500)       // FCM batch capacity
	v.SetDefault("fcm.max_per_second", 500)   // chunk requests/sec
	v.SetDefault("webpush.enabled", true)
	v.SetDefault("webpush.default_ttl_sec", 86400)
	v.SetDefault("webpush.max_per_second", 50)
	v.SetDefault("webpush.max_concurrent_sends", 5)

	// Read config file (optional — env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Handle comma-separated API keys from env var
	if apiKeysStr := v.GetString("auth.api_keys"); apiKeysStr != "" && len(cfg.Auth.APIKeys) == 0 {
		keys := strings.Split(apiKeysStr, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
		cfg.Auth.APIKeys = keys
	}

	return &cfg, nil
}
