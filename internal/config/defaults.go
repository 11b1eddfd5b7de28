package config

import (
	_ "embed"
)

//go:embed defaults/kill.yaml
var defaultYAML []byte

// DefaultConfig returns the hardcoded default configuration.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Path: "~/.kill/kill.db",
		},
		Clock: ClockConfig{
			Genesis:    "2026-01-01T00:00:00Z",
			SlotMillis: 400,
		},
		Log: LogConfig{
			Level:      "info",
			Timestamps: false,
		},
		Serve: ServeConfig{
			Address:     "127.0.0.1:8666",
			PollMillis:  500,
			AllowRemote: false,
			SSHAddress:  "127.0.0.1:23666",
			HostKey:     "~/.kill/host_key",
		},
		Journal: JournalConfig{
			Dir: "~/.kill/journal",
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
