// Package app wires the logistics bot: configuration, repositories,
// session store, dialog flows and the Telegram command surface.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/logibot/core/config"
	coredatabase "github.com/m3rciful/logibot/core/database"
	"github.com/m3rciful/logibot/session"
)

// SessionConfig tunes the in-memory session store.
type SessionConfig struct {
	TimeoutMinutes         int `yaml:"timeout_minutes" envconfig:"SESSION_TIMEOUT_MINUTES"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes" envconfig:"SESSION_CLEANUP_INTERVAL_MINUTES"`
}

// IdleTimeout returns the configured session idle timeout.
func (c SessionConfig) IdleTimeout() time.Duration {
	if c.TimeoutMinutes <= 0 {
		return session.DefaultIdleTimeout
	}
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// SweepInterval returns the configured sweeper period.
func (c SessionConfig) SweepInterval() time.Duration {
	if c.CleanupIntervalMinutes <= 0 {
		return session.DefaultSweepInterval
	}
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// Config is the full bot configuration: the reusable core plus the
// database and session blocks.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Session  SessionConfig       `yaml:"session"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads the YAML file, applies env overrides and validates
// the core section.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	return &cfg, nil
}
