package config

import (
	"time"

	"blocksync/internal/feed"
	"blocksync/internal/pacing"
)

// Config is the top-level configuration structure for blocksync.
type Config struct {
	Backend  BackendConfig     `yaml:"backend"`
	Pacing   PacingConfig      `yaml:"pacing"`
	FeedsDir string            `yaml:"feedsDir,omitempty"` // Directory feed files are resolved against
	Feeds    []feed.Definition `yaml:"feeds,omitempty"`
	Watch    WatchConfig       `yaml:"watch"`
}

// BackendType names a block store implementation.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendSQLite BackendType = "sqlite"
	BackendLogseq BackendType = "logseq"
)

// BackendConfig selects and locates the block store.
type BackendConfig struct {
	Type     BackendType `yaml:"type"`
	Path     string      `yaml:"path,omitempty"`     // SQLite database file
	Endpoint string      `yaml:"endpoint,omitempty"` // Logseq API base URL
	TokenEnv string      `yaml:"tokenEnv,omitempty"` // Environment variable holding the Logseq API token
}

// PacingConfig throttles mutations against the backend.
type PacingConfig struct {
	MutationDelay  time.Duration `yaml:"mutationDelay"`
	YieldBatchSize int           `yaml:"yieldBatchSize"`
}

// Delay returns the delay to hand to the reconcilers. An explicit zero in
// the file disables the delay instead of selecting the default.
func (p PacingConfig) Delay() time.Duration {
	if p.MutationDelay == 0 {
		return pacing.NoDelay
	}
	return p.MutationDelay
}

// WatchConfig tunes continuous mode.
type WatchConfig struct {
	DebounceInterval time.Duration `yaml:"debounceInterval"`
	MaxRetries       int           `yaml:"maxRetries"`
	InitialBackoff   time.Duration `yaml:"initialBackoff"`
	MaxBackoff       time.Duration `yaml:"maxBackoff"`
	ResyncInterval   time.Duration `yaml:"resyncInterval,omitempty"` // Periodic full resync, zero disables it
}

// Feed returns the feed definition called name.
func (c Config) Feed(name string) (feed.Definition, bool) {
	for _, def := range c.Feeds {
		if def.Name == name {
			return def, true
		}
	}
	return feed.Definition{}, false
}

// FeedNames returns the configured feed names in file order.
func (c Config) FeedNames() []string {
	names := make([]string, len(c.Feeds))
	for i, def := range c.Feeds {
		names[i] = def.Name
	}
	return names
}
