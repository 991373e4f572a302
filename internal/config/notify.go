package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvNotifyEnabled    = "KHIDMA_NOTIFY_ENABLED"
	EnvNotifyBaseURL    = "KHIDMA_NOTIFY_BASE_URL"
	EnvNotifyAPIKey     = "KHIDMA_NOTIFY_API_KEY"
	EnvNotifySender     = "KHIDMA_NOTIFY_SENDER"
	EnvNotifyTimeout    = "KHIDMA_NOTIFY_TIMEOUT"
	EnvNotifyMaxElapsed = "KHIDMA_NOTIFY_MAX_ELAPSED"
)

// NotifyConfig holds outbound message channel parameters.
// When Enabled is false the service logs deliveries instead of sending them.
type NotifyConfig struct {
	Enabled    bool   `toml:"enabled"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Sender     string `toml:"sender"`
	Timeout    string `toml:"timeout"`
	MaxElapsed string `toml:"max_elapsed"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *NotifyConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// MaxElapsedDuration returns MaxElapsed as a time.Duration.
func (c *NotifyConfig) MaxElapsedDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxElapsed)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *NotifyConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies; string fields
// only when non-empty.
func (c *NotifyConfig) Merge(overlay *NotifyConfig) {
	c.Enabled = overlay.Enabled

	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Sender != "" {
		c.Sender = overlay.Sender
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxElapsed != "" {
		c.MaxElapsed = overlay.MaxElapsed
	}
}

func (c *NotifyConfig) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	if c.MaxElapsed == "" {
		c.MaxElapsed = "2m"
	}
}

func (c *NotifyConfig) loadEnv() {
	if v := os.Getenv(EnvNotifyEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvNotifyBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvNotifyAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvNotifySender); v != "" {
		c.Sender = v
	}
	if v := os.Getenv(EnvNotifyTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvNotifyMaxElapsed); v != "" {
		c.MaxElapsed = v
	}
}

func (c *NotifyConfig) validate() error {
	if c.Enabled && c.BaseURL == "" {
		return fmt.Errorf("base_url is required when notify is enabled")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxElapsed); err != nil {
		return fmt.Errorf("invalid max_elapsed: %w", err)
	}
	return nil
}
