package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvVerificationCodeTTL     = "KHIDMA_VERIFICATION_CODE_TTL"
	EnvVerificationMaxAttempts = "KHIDMA_VERIFICATION_MAX_ATTEMPTS"
	EnvVerificationLockout     = "KHIDMA_VERIFICATION_LOCKOUT"
)

// VerificationConfig holds one-time-code challenge parameters.
type VerificationConfig struct {
	CodeTTL     string `toml:"code_ttl"`
	MaxAttempts int    `toml:"max_attempts"`
	Lockout     string `toml:"lockout"`
}

// CodeTTLDuration returns CodeTTL as a time.Duration.
func (c *VerificationConfig) CodeTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CodeTTL)
	return d
}

// LockoutDuration returns Lockout as a time.Duration.
func (c *VerificationConfig) LockoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Lockout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *VerificationConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *VerificationConfig) Merge(overlay *VerificationConfig) {
	if overlay.CodeTTL != "" {
		c.CodeTTL = overlay.CodeTTL
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.Lockout != "" {
		c.Lockout = overlay.Lockout
	}
}

func (c *VerificationConfig) loadDefaults() {
	if c.CodeTTL == "" {
		c.CodeTTL = "300s"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.Lockout == "" {
		c.Lockout = "24h"
	}
}

func (c *VerificationConfig) loadEnv() {
	if v := os.Getenv(EnvVerificationCodeTTL); v != "" {
		c.CodeTTL = v
	}
	if v := os.Getenv(EnvVerificationMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvVerificationLockout); v != "" {
		c.Lockout = v
	}
}

func (c *VerificationConfig) validate() error {
	if _, err := time.ParseDuration(c.CodeTTL); err != nil {
		return fmt.Errorf("invalid code_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Lockout); err != nil {
		return fmt.Errorf("invalid lockout: %w", err)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	return nil
}
