package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	LocalStoreFile  = "file"
	LocalStoreRedis = "redis"
)

// ClientConfig configures the cartctl shopper client.
type ClientConfig struct {
	APIURL      string        `envconfig:"FLINT_CARTCTL_API_URL" default:"http://localhost:8080"`
	StateDir    string        `envconfig:"FLINT_CARTCTL_STATE_DIR"`
	Store       string        `envconfig:"FLINT_CARTCTL_STORE" default:"file"`
	Profile     string        `envconfig:"FLINT_CARTCTL_PROFILE" default:"default"`
	RedisURL    string        `envconfig:"FLINT_CARTCTL_REDIS_URL"`
	LocalTTL    time.Duration `envconfig:"FLINT_CARTCTL_LOCAL_TTL" default:"720h"`
	SyncTimeout time.Duration `envconfig:"FLINT_CARTCTL_SYNC_TIMEOUT" default:"10s"`
	LogLevel    string        `envconfig:"FLINT_CARTCTL_LOG_LEVEL" default:"warn"`
}

// LoadClient reads the cartctl settings and fills in the state directory.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ClientConfig) normalize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return fmt.Errorf("%s is required", EnvClientAPIURL)
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case "", LocalStoreFile:
		c.Store = LocalStoreFile
	case LocalStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%s is required when %s=redis", EnvClientRedisURL, EnvClientStore)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvClientStore, c.Store)
	}

	if c.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve state dir: %w", err)
		}
		c.StateDir = filepath.Join(base, "flint", c.Profile)
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = 10 * time.Second
	}
	return nil
}

// CartFile is where the file-backed local cart lives.
func (c ClientConfig) CartFile() string {
	return filepath.Join(c.StateDir, "cart.json")
}

// TokenFile holds the bearer token saved by `cartctl login`.
func (c ClientConfig) TokenFile() string {
	return filepath.Join(c.StateDir, "token")
}

// RedisConfig adapts the client settings to the shared redis bootstrap.
func (c ClientConfig) RedisConfig() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}
