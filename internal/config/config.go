package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     int
	DBPath   string
	LogLevel string
	// Optional bearer token; empty disables auth.
	APIKey string
	// Catalog file seeded into the show catalog on startup.
	CatalogPath string
	// Client
	APIURL      string
	HTTPTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        envInt("PORT", 8000),
		DBPath:      envStr("NOTFLIX_DB_PATH", "./data/notflix.db"),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIKey:      envStr("NOTFLIX_API_KEY", ""),
		CatalogPath: envStr("NOTFLIX_CATALOG", ""),
		APIURL:      strings.TrimRight(envStr("NOTFLIX_API_URL", "http://localhost:8000"), "/"),
		HTTPTimeout: time.Duration(envInt("NOTFLIX_HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("NOTFLIX_DB_PATH must not be empty")
	}
	if c.APIURL == "" {
		return fmt.Errorf("NOTFLIX_API_URL must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("NOTFLIX_HTTP_TIMEOUT_SECONDS must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

// Debug reports whether debug logging was requested.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
