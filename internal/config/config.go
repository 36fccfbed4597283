package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the trail endpoint and ledger worker.
// Environment variables are parsed from the TRAIL_ prefix; a YAML file named
// by TRAIL_CONFIG_FILE overrides them.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development" yaml:"environment"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info" yaml:"logLevel"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080" yaml:"httpPort"`

	// Storage: "postgres" or "sqlite"
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite" yaml:"dbDriver"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:"" yaml:"postgresDSN"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"" yaml:"sqlitePath"`

	// Queue: "outbox" (database table) or "nats" (JetStream)
	QueueDriver string `envconfig:"QUEUE_DRIVER" default:"outbox" yaml:"queueDriver"`
	NATSURL     string `envconfig:"NATS_URL" default:"nats://localhost:4222" yaml:"natsURL"`
	NATSStream  string `envconfig:"NATS_STREAM" default:"TRAIL_TXN" yaml:"natsStream"`
	NATSSubject string `envconfig:"NATS_SUBJECT" default:"trail.txn" yaml:"natsSubject"`

	// Auth: "gateway" trusts authorizer headers, "dev" accepts the local API key
	AuthMode string `envconfig:"AUTH_MODE" default:"gateway" yaml:"authMode"`

	// Relay
	RelayBatchSize  int `envconfig:"RELAY_BATCH_SIZE" default:"100" yaml:"relayBatchSize"`
	RelayIntervalMs int `envconfig:"RELAY_INTERVAL_MS" default:"2000" yaml:"relayIntervalMs"`

	// Health and startup
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30" yaml:"healthIntervalSeconds"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2" yaml:"healthProbeTimeoutSeconds"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"5" yaml:"bootstrapTimeoutSeconds"`

	ConfigFile string `envconfig:"CONFIG_FILE" default:"" yaml:"-"`
}

// ResolveDefaults validates the drivers and derives paths left empty.
func (c *Config) ResolveDefaults() error {
	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			home, err := os.UserHomeDir()
			if err != nil || home == "" {
				home = "."
			}
			c.SQLitePath = home + "/.trail/ledger.db"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	switch c.QueueDriver {
	case "outbox", "nats":
	default:
		return fmt.Errorf("unsupported QUEUE_DRIVER: %s", c.QueueDriver)
	}

	switch c.AuthMode {
	case "gateway":
	case "dev":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=dev is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE: %s", c.AuthMode)
	}

	if c.RelayBatchSize <= 0 {
		return fmt.Errorf("RELAY_BATCH_SIZE must be positive, got %d", c.RelayBatchSize)
	}
	if c.RelayIntervalMs <= 0 {
		return fmt.Errorf("RELAY_INTERVAL_MS must be positive, got %d", c.RelayIntervalMs)
	}
	return nil
}

// New creates a new Config from TRAIL_ environment variables and the
// optional YAML overlay.
// Example: TRAIL_HTTP_PORT, TRAIL_DB_DRIVER
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("TRAIL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if cfg.ConfigFile != "" {
		if err := cfg.overlay(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("db_driver", cfg.DBDriver).
		Str("sqlite_path", cfg.SQLitePath).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Str("queue_driver", cfg.QueueDriver).
		Str("auth_mode", cfg.AuthMode).
		Str("config_file", cfg.ConfigFile).
		Msg("Configuration loaded")

	return &cfg, nil
}

func (c *Config) overlay(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		LogLevel:                  "debug",
		HTTPPort:                  8080,
		DBDriver:                  "sqlite",
		SQLitePath:                "",
		QueueDriver:               "outbox",
		NATSStream:                "TRAIL_TXN",
		NATSSubject:               "trail.txn",
		AuthMode:                  "dev",
		RelayBatchSize:            100,
		RelayIntervalMs:           100,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		BootstrapTimeoutSeconds:   5,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func (c *Config) RelayInterval() time.Duration {
	return time.Duration(c.RelayIntervalMs) * time.Millisecond
}

func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalSeconds) * time.Second
}

func (c *Config) HealthProbeTimeout() time.Duration {
	return time.Duration(c.HealthProbeTimeoutSeconds) * time.Second
}

func (c *Config) BootstrapTimeout() time.Duration {
	return time.Duration(c.BootstrapTimeoutSeconds) * time.Second
}
