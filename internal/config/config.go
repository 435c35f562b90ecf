// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// Public URLs and QR stickers
	PublicBaseURL string
	QRSize        int

	// Report submission rate limit per client IP
	CreateRateLimit  int
	CreateRateWindow time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a numeric value does not parse.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "lostfound"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "lostfound"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		PublicBaseURL: strings.TrimRight(envOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
	}

	var err error
	if cfg.ValkeyDB, err = envIntOrDefault("VALKEY_DB", 0); err != nil {
		return nil, err
	}
	if cfg.QRSize, err = envIntOrDefault("QR_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.CreateRateLimit, err = envIntOrDefault("CREATE_RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.CreateRateWindow, err = time.ParseDuration(envOrDefault("CREATE_RATE_WINDOW", "1m")); err != nil {
		return nil, fmt.Errorf("CREATE_RATE_WINDOW: %w", err)
	}

	if cfg.CreateRateLimit < 1 {
		return nil, fmt.Errorf("CREATE_RATE_LIMIT must be at least 1, got %d", cfg.CreateRateLimit)
	}
	if cfg.CreateRateWindow <= 0 {
		return nil, fmt.Errorf("CREATE_RATE_WINDOW must be positive, got %s", cfg.CreateRateWindow)
	}
	if cfg.QRSize < 64 || cfg.QRSize > 1024 {
		return nil, fmt.Errorf("QR_SIZE must be between 64 and 1024, got %d", cfg.QRSize)
	}
	if u, err := url.Parse(cfg.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", cfg.PublicBaseURL)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ReportURL returns the public URL of the report page with the given slug.
func (c *Config) ReportURL(slug string) string {
	return c.PublicBaseURL + "/r/" + url.PathEscape(slug)
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOrDefault reads an integer environment variable.
func envIntOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
