package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvEngineStuckNewAfter      = "KHIDMA_ENGINE_STUCK_NEW_AFTER"
	EnvEngineSilentAfter        = "KHIDMA_ENGINE_SILENT_BROADCAST_AFTER"
	EnvEngineStalledAfter       = "KHIDMA_ENGINE_STALLED_CONFIRMATION_AFTER"
	EnvEngineFlagThreshold      = "KHIDMA_ENGINE_FLAG_THRESHOLD"
	EnvEngineResponseRateFloor  = "KHIDMA_ENGINE_RESPONSE_RATE_FLOOR"
	EnvEngineResponseRateTarget = "KHIDMA_ENGINE_RESPONSE_RATE_TARGET"
)

// EngineConfig holds the coordination engine's operational thresholds.
// Staleness windows drive the attention dashboard; the flag threshold
// drives provider demotion; the response-rate band drives the risk
// dashboard's watch list.
type EngineConfig struct {
	StuckNewAfter            string  `toml:"stuck_new_after"`
	SilentBroadcastAfter     string  `toml:"silent_broadcast_after"`
	StalledConfirmationAfter string  `toml:"stalled_confirmation_after"`
	FlagThreshold            int     `toml:"flag_threshold"`
	ResponseRateFloor        float64 `toml:"response_rate_floor"`
	ResponseRateTarget       float64 `toml:"response_rate_target"`
}

// StuckNewAfterDuration returns StuckNewAfter as a time.Duration.
func (c *EngineConfig) StuckNewAfterDuration() time.Duration {
	d, _ := time.ParseDuration(c.StuckNewAfter)
	return d
}

// SilentBroadcastAfterDuration returns SilentBroadcastAfter as a time.Duration.
func (c *EngineConfig) SilentBroadcastAfterDuration() time.Duration {
	d, _ := time.ParseDuration(c.SilentBroadcastAfter)
	return d
}

// StalledConfirmationAfterDuration returns StalledConfirmationAfter as a time.Duration.
func (c *EngineConfig) StalledConfirmationAfterDuration() time.Duration {
	d, _ := time.ParseDuration(c.StalledConfirmationAfter)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EngineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EngineConfig) Merge(overlay *EngineConfig) {
	if overlay.StuckNewAfter != "" {
		c.StuckNewAfter = overlay.StuckNewAfter
	}
	if overlay.SilentBroadcastAfter != "" {
		c.SilentBroadcastAfter = overlay.SilentBroadcastAfter
	}
	if overlay.StalledConfirmationAfter != "" {
		c.StalledConfirmationAfter = overlay.StalledConfirmationAfter
	}
	if overlay.FlagThreshold != 0 {
		c.FlagThreshold = overlay.FlagThreshold
	}
	if overlay.ResponseRateFloor != 0 {
		c.ResponseRateFloor = overlay.ResponseRateFloor
	}
	if overlay.ResponseRateTarget != 0 {
		c.ResponseRateTarget = overlay.ResponseRateTarget
	}
}

func (c *EngineConfig) loadDefaults() {
	if c.StuckNewAfter == "" {
		c.StuckNewAfter = "15m"
	}
	if c.SilentBroadcastAfter == "" {
		c.SilentBroadcastAfter = "20m"
	}
	if c.StalledConfirmationAfter == "" {
		c.StalledConfirmationAfter = "10m"
	}
	if c.FlagThreshold == 0 {
		c.FlagThreshold = 3
	}
	if c.ResponseRateFloor == 0 {
		c.ResponseRateFloor = 0.85
	}
	if c.ResponseRateTarget == 0 {
		c.ResponseRateTarget = 0.90
	}
}

func (c *EngineConfig) loadEnv() {
	if v := os.Getenv(EnvEngineStuckNewAfter); v != "" {
		c.StuckNewAfter = v
	}
	if v := os.Getenv(EnvEngineSilentAfter); v != "" {
		c.SilentBroadcastAfter = v
	}
	if v := os.Getenv(EnvEngineStalledAfter); v != "" {
		c.StalledConfirmationAfter = v
	}
	if v := os.Getenv(EnvEngineFlagThreshold); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FlagThreshold = n
		}
	}
	if v := os.Getenv(EnvEngineResponseRateFloor); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ResponseRateFloor = f
		}
	}
	if v := os.Getenv(EnvEngineResponseRateTarget); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ResponseRateTarget = f
		}
	}
}

func (c *EngineConfig) validate() error {
	for name, value := range map[string]string{
		"stuck_new_after":            c.StuckNewAfter,
		"silent_broadcast_after":     c.SilentBroadcastAfter,
		"stalled_confirmation_after": c.StalledConfirmationAfter,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.FlagThreshold < 1 {
		return fmt.Errorf("flag_threshold must be positive")
	}
	if c.ResponseRateFloor >= c.ResponseRateTarget {
		return fmt.Errorf("response_rate_floor must be below response_rate_target")
	}
	return nil
}
