package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds engine-wide configuration settings. Values load from a
// YAML file and may be overridden through QUESTFORGE_* environment
// variables.
type Config struct {
	// ContentDir is the directory of quest content YAML files.
	ContentDir string `yaml:"content_dir" env:"QUESTFORGE_CONTENT_DIR"`

	// SweepInterval bounds time-limit expiry latency: overdue instances
	// fail no later than one interval after their deadline.
	SweepInterval time.Duration `yaml:"sweep_interval" env:"QUESTFORGE_SWEEP_INTERVAL"`

	Database DatabaseConfig `yaml:"database"`
	Gateway  GatewayConfig  `yaml:"gateway"`
}

// DatabaseConfig holds quest log persistence settings.
type DatabaseConfig struct {
	// Driver selects the backend: "sqlite" or "postgres".
	Driver string `yaml:"driver" env:"QUESTFORGE_DB_DRIVER"`

	// Path is the SQLite database file (sqlite driver only).
	Path string `yaml:"path" env:"QUESTFORGE_DB_PATH"`

	// DSN is the PostgreSQL connection string (postgres driver only).
	DSN string `yaml:"dsn" env:"QUESTFORGE_DB_DSN"`
}

// GatewayConfig holds event gateway settings.
type GatewayConfig struct {
	// Addr is the listen address for the WebSocket gateway.
	Addr string `yaml:"addr" env:"QUESTFORGE_GATEWAY_ADDR"`

	// AllowedOrigins lists origins allowed to connect. Empty enforces
	// same-origin; "*" allows all (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins" env:"QUESTFORGE_ALLOWED_ORIGINS" envSeparator:","`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size" env:"QUESTFORGE_MAX_MESSAGE_SIZE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ContentDir:    "data/quests",
		SweepInterval: 30 * time.Second,
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/questforge.db",
		},
		Gateway: GatewayConfig{
			Addr:           ":4600",
			AllowedOrigins: []string{},
			MaxMessageSize: 4096,
		},
	}
}

// LoadConfig loads configuration from a YAML file, then applies
// environment overrides. A missing file is not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return config, err
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	if err := env.Parse(config); err != nil {
		return config, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	return config, nil
}

// IsOriginAllowed checks if the given origin may connect to the gateway.
func (g *GatewayConfig) IsOriginAllowed(origin string) bool {
	for _, allowed := range g.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
