package config

import (
	"time"

	"blocksync/internal/pacing"
)

const (
	// DefaultDatabaseFile is the SQLite file name inside the config directory.
	DefaultDatabaseFile = "blocks.db"

	// DefaultFeedsDir is the feeds directory inside the config directory.
	DefaultFeedsDir = "feeds"

	// DefaultLogseqEndpoint is where a local Logseq serves its HTTP API.
	DefaultLogseqEndpoint = "http://127.0.0.1:12315"

	// DefaultTokenEnv holds the Logseq API token.
	DefaultTokenEnv = "LOGSEQ_API_TOKEN"
)

// GetDefaultConfig returns the configuration used when no config.yaml
// exists. Relative paths are resolved by LoadConfig.
func GetDefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Type:     BackendSQLite,
			Path:     DefaultDatabaseFile,
			Endpoint: DefaultLogseqEndpoint,
			TokenEnv: DefaultTokenEnv,
		},
		Pacing: PacingConfig{
			MutationDelay:  pacing.DefaultMutationDelay,
			YieldBatchSize: pacing.DefaultYieldBatchSize,
		},
		FeedsDir: DefaultFeedsDir,
		Watch: WatchConfig{
			DebounceInterval: 500 * time.Millisecond,
			MaxRetries:       5,
			InitialBackoff:   time.Second,
			MaxBackoff:       5 * time.Minute,
		},
	}
}
