package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Supported store drivers
const (
	StoreDriverMongoDB = "mongodb"
	StoreDriverSQLite  = "sqlite"
	StoreDriverMemory  = "memory"
)

// Config holds all configuration for the access module.
type Config struct {
	// Store selection
	StoreDriver  string        `env:"STORE_DRIVER" envDefault:"mongodb"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// MongoDB Configuration
	MongoDBURI   string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName string `env:"MONGODB_DATABASE" envDefault:"scl90_gate"`

	// SQLite Configuration
	SQLitePath string `env:"SQLITE_PATH" envDefault:"scl90_gate.db"`

	// Session window, anchored on a session's first access
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Admin surface
	AdminSecret      string        `env:"ADMIN_SECRET,required"`
	AdminHeader      string        `env:"ADMIN_HEADER" envDefault:"X-Admin-Password"`
	AdminTokenSecret string        `env:"ADMIN_TOKEN_SECRET"`
	AdminTokenIssuer string        `env:"ADMIN_TOKEN_ISSUER" envDefault:"scl90-gate-admin"`
	AdminTokenTTL    time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"1h"`

	// Activity stream (Redis)
	RedisEnabled         bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisAddr            string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
	ActivityStream       string `env:"ACTIVITY_STREAM" envDefault:"scl90:activity"`
	ActivityStreamMaxLen int64  `env:"ACTIVITY_STREAM_MAX_LEN" envDefault:"10000"`

	// Validate endpoint rate limiting, per client IP
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"30"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and fills derived defaults
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreDriverMongoDB:
		if c.MongoDBURI == "" {
			return errors.New("mongodb_uri is required for the mongodb store")
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported store driver %q", c.StoreDriver)
	}

	if c.AdminSecret == "" {
		return errors.New("admin_secret is required")
	}
	if c.AdminHeader == "" {
		c.AdminHeader = "X-Admin-Password"
	}
	// Admin tokens are signed with the shared secret unless a dedicated key is given
	if c.AdminTokenSecret == "" {
		c.AdminTokenSecret = c.AdminSecret
	}
	if c.AdminTokenTTL <= 0 {
		return errors.New("admin_token_ttl must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("store_timeout must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.RateLimitMax < 0 {
		return errors.New("rate_limit_max cannot be negative")
	}
	return nil
}
