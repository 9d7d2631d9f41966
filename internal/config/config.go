// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	BackendURL     string
	Timeout        time.Duration
	TranscriptsDir string
	Addr           string
	Dialect        string
	LogLevel       string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; existing variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		BackendURL:     getEnv("CHATFMT_BACKEND_URL", "http://localhost:8001"),
		Timeout:        getEnvDuration("CHATFMT_TIMEOUT", 30*time.Second),
		TranscriptsDir: getEnv("CHATFMT_TRANSCRIPTS_DIR", defaultTranscriptsDir()),
		Addr:           getEnv("CHATFMT_ADDR", ":8080"),
		Dialect:        getEnv("CHATFMT_DIALECT", "chat"),
		LogLevel:       getEnv("CHATFMT_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("CHATFMT_BACKEND_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("CHATFMT_BACKEND_URL must be an http or https URL, got %q", c.BackendURL)
	}
	if u.Host == "" {
		return fmt.Errorf("CHATFMT_BACKEND_URL must have a host, got %q", c.BackendURL)
	}
	if c.Timeout <= 0 {
		return errors.New("CHATFMT_TIMEOUT must be > 0")
	}
	if c.Addr == "" {
		return errors.New("CHATFMT_ADDR cannot be empty")
	}
	if c.Dialect == "" {
		return errors.New("CHATFMT_DIALECT cannot be empty")
	}
	return nil
}

func defaultTranscriptsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".chatfmt", "transcripts")
	}
	return filepath.Join(home, ".chatfmt", "transcripts")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
