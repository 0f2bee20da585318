package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for guidepost-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8087"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis (optional, anonymous session skip state)
	Redis RedisConfig `yaml:"redis"`

	// Tour engine behavior
	Tours ToursConfig `yaml:"tours"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without the platform auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSURL is the JWKS endpoint of the host platform's identity provider.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`

	// Issuer is the accepted token issuer. Empty accepts any issuer
	// (verification disabled or dev mode).
	Issuer string `yaml:"issuer" env:"AUTH_ISSUER" env-default:""`

	// SessionKey signs the anonymous visitor session cookie.
	// Secret - environment only.
	SessionKey string `yaml:"-" env:"SESSION_KEY"`

	// SessionCookie is the name of the anonymous visitor session cookie.
	SessionCookie string `yaml:"session_cookie" env:"SESSION_COOKIE" env-default:"guidepost_session"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"guidepost"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"guidepost_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL renders the config as a postgres connection string.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds optional Redis configuration. An empty host disables
// Redis and session skip state is kept in process memory.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ToursConfig holds tour engine behavior settings.
type ToursConfig struct {
	// URLTriggerParam is the query parameter that force-starts a tour.
	URLTriggerParam string `yaml:"url_trigger_param" env:"TOURS_URL_TRIGGER_PARAM" env-default:"show_tour"`

	// AutoStartDelayMS is the delay before an auto-detected tour starts,
	// giving the page time to finish rendering.
	AutoStartDelayMS int `yaml:"auto_start_delay_ms" env:"TOURS_AUTO_START_DELAY_MS" env-default:"1000"`

	// SeedFile optionally points at a YAML file of tour definitions created
	// at startup when missing. Empty disables seeding.
	SeedFile string `yaml:"seed_file" env:"TOURS_SEED_FILE" env-default:""`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. When config.yaml does not exist, environment variables
// and defaults alone are used.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.Auth.EnableVerification && cfg.Auth.JWKSURL == "" {
		return nil, fmt.Errorf("AUTH_JWKS_URL is required when auth verification is enabled")
	}

	return cfg, nil
}
