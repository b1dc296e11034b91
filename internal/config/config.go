// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Default gateway settings, overridable via environment.
const (
	defaultGatewayURL = "https://ai.gateway.lovable.dev/v1/chat/completions"
	defaultModel      = "google/gemini-2.5-flash"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Gateway     GatewayConfig
}

// GatewayConfig configures the upstream AI gateway.
type GatewayConfig struct {
	URL    string
	APIKey string
	Model  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/lifeos.db"),
		Gateway: GatewayConfig{
			URL:    getEnv("AI_GATEWAY_URL", defaultGatewayURL),
			APIKey: getEnv("AI_GATEWAY_API_KEY", ""),
			Model:  getEnv("AI_MODEL", defaultModel),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set. The
// gateway API key is intentionally not required here: a missing credential
// fails chat requests with a 500-class response instead of preventing the
// dashboard from serving its read endpoints.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Gateway.URL == "" {
		return fmt.Errorf("AI_GATEWAY_URL cannot be empty")
	}
	if c.Gateway.Model == "" {
		return fmt.Errorf("AI_MODEL cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
