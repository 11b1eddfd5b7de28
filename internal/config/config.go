// Package config provides YAML-based configuration loading for the kill
// command and its services. Game rules are constants and not configurable.
package config

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Config is the top-level configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Clock   ClockConfig   `yaml:"clock"`
	Log     LogConfig     `yaml:"log"`
	Serve   ServeConfig   `yaml:"serve"`
	Journal JournalConfig `yaml:"journal"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path"` // "~" expands to the home directory
}

// ClockConfig defines how wall time maps onto slots.
type ClockConfig struct {
	Genesis    string `yaml:"genesis"`  // RFC3339 timestamp of slot 0
	SlotMillis int    `yaml:"slot_ms"` // Length of one slot
}

// LogConfig controls the charmbracelet logger.
type LogConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	Timestamps bool   `yaml:"timestamps"`
}

// ServeConfig controls the read-only event feed and the SSH spectator view.
type ServeConfig struct {
	Address     string `yaml:"address"`
	PollMillis  int    `yaml:"poll_ms"`      // How often the store is polled for new events
	AllowRemote bool   `yaml:"allow_remote"` // Accept WebSocket clients from non-loopback hosts
	SSHAddress  string `yaml:"ssh_address"`  // Spectator SSH server, used by serve --ssh
	HostKey     string `yaml:"host_key"`     // SSH host key, generated when missing
}

// JournalConfig controls event archive exports.
type JournalConfig struct {
	Dir string `yaml:"dir"`
}

// GenesisTime parses the configured genesis timestamp.
func (c ClockConfig) GenesisTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Genesis)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: invalid clock.genesis %q: %w", c.Genesis, err)
	}
	return t, nil
}

// SlotDuration returns the configured slot length.
func (c ClockConfig) SlotDuration() time.Duration {
	return time.Duration(c.SlotMillis) * time.Millisecond
}

// PollInterval returns the configured feed poll interval.
func (c ServeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollMillis) * time.Millisecond
}

// ParseLevel returns the logger level for the configured name.
func (c LogConfig) ParseLevel() (log.Level, error) {
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("config: invalid log.level %q", c.Level)
	}
	return lvl, nil
}

// Validate checks the configuration for values the services cannot use.
func (c Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("config: storage.path is required")
	}
	if c.Clock.SlotMillis <= 0 {
		return fmt.Errorf("config: clock.slot_ms must be positive, got %d", c.Clock.SlotMillis)
	}
	if _, err := c.Clock.GenesisTime(); err != nil {
		return err
	}
	if _, err := c.Log.ParseLevel(); err != nil {
		return err
	}
	if c.Serve.Address == "" {
		return fmt.Errorf("config: serve.address is required")
	}
	if c.Serve.PollMillis <= 0 {
		return fmt.Errorf("config: serve.poll_ms must be positive, got %d", c.Serve.PollMillis)
	}
	return nil
}
