// Package config loads and saves the global calsync configuration at
// ~/.config/calsync/config.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marcus/calsync/internal/sync"
)

// Config is the global calsync configuration.
type Config struct {
	// ServerURL is the base URL of the remote calendar service.
	ServerURL string `json:"server_url"`
	// DBPath overrides the default database location.
	DBPath string `json:"db_path,omitempty"`
	// PastDays / FutureDays bound the pull window.
	PastDays   int `json:"past_days,omitempty"`
	FutureDays int `json:"future_days,omitempty"`
	// DaemonInterval is the cron spec for periodic sync in daemon mode.
	DaemonInterval string `json:"daemon_interval,omitempty"`
}

const defaultServerURL = "http://localhost:8080"
const defaultDaemonInterval = "@every 15m"

// ConfigDir returns ~/.config/calsync, creating it if necessary. The
// CALSYNC_CONFIG_DIR env var overrides the location.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CALSYNC_CONFIG_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("create config dir: %w", err)
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "calsync")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the config, returning defaults when no file exists yet.
func Load() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config using an atomic temp-file + rename.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close config: %w", err)
	}
	return os.Rename(tmpName, filepath.Join(dir, "config.json"))
}

func (c *Config) applyDefaults() {
	if v := os.Getenv("CALSYNC_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	if c.PastDays <= 0 {
		c.PastDays = sync.DefaultPastDays
	}
	if c.FutureDays <= 0 {
		c.FutureDays = sync.DefaultFutureDays
	}
	if c.DaemonInterval == "" {
		c.DaemonInterval = defaultDaemonInterval
	}
}

// DatabasePath resolves the database file location.
func (c *Config) DatabasePath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "calsync.db"), nil
}
