package clientcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds client-side settings
type Config struct {
	APIURL     string        `env:"SCL90_API_URL" envDefault:"http://localhost:3000"`
	StateFile  string        `env:"SCL90_STATE_FILE"`
	Timeout    time.Duration `env:"SCL90_TIMEOUT" envDefault:"10s"`
	SessionTTL time.Duration `env:"SCL90_SESSION_TTL" envDefault:"24h"`
}

// LoadConfig reads the client configuration from the environment
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load client configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills derived defaults
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return errors.New("api url is required")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.StateFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot resolve state file location: %w", err)
		}
		c.StateFile = filepath.Join(home, ".scl90", "session.json")
	}
	return nil
}

// ValidateURL is the authoritative validate endpoint
func (c *Config) ValidateURL() string {
	return c.APIURL + "/api/v1/access/validate"
}
