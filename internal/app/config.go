package app

import (
	"io"

	"blocksync/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug enables debug logging, including the reconcilers' events.
	Debug bool

	// Quiet suppresses informational logging.
	Quiet bool

	// ConfigPath is the configuration directory. Empty selects
	// ~/.config/blocksync.
	ConfigPath string

	// LogOutput receives log lines. Nil selects stderr.
	LogOutput io.Writer

	// Settings is filled in during bootstrap.
	Settings *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug, quiet bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Quiet:      quiet,
		ConfigPath: configPath,
	}
}
