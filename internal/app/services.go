package app

import (
	"fmt"
	"io"
	"os"

	"blocksync/internal/backend/logseq"
	"blocksync/internal/backend/memory"
	"blocksync/internal/backend/sqlite"
	"blocksync/internal/blocktree"
	"blocksync/internal/config"
	"blocksync/pkg/logging"
)

// Services holds the components shared by every command.
type Services struct {
	// Backend is the block store feeds are reconciled into.
	Backend blocktree.Adapter

	// Syncer runs reconciliation passes for configured feeds.
	Syncer *Syncer

	closer io.Closer
}

// InitializeServices opens the backend and wires the syncer to it.
func InitializeServices(cfg *Config) (*Services, error) {
	backend, closer, err := NewBackend(cfg.Settings.Backend)
	if err != nil {
		return nil, err
	}

	return &Services{
		Backend: backend,
		Syncer:  NewSyncer(*cfg.Settings, backend),
		closer:  closer,
	}, nil
}

// Close releases the backend.
func (s *Services) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// NewBackend creates the block store described by bc. The returned closer
// may be nil.
func NewBackend(bc config.BackendConfig) (blocktree.Adapter, io.Closer, error) {
	switch bc.Type {
	case config.BackendMemory:
		logging.Info("Backend", "Using in-memory block store; changes are discarded on exit")
		return memory.New(), nil, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(bc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite backend at %s: %w", bc.Path, err)
		}
		logging.Info("Backend", "Using sqlite block store at %s", bc.Path)
		return store, store, nil

	case config.BackendLogseq:
		token := ""
		if bc.TokenEnv != "" {
			token = os.Getenv(bc.TokenEnv)
			if token == "" {
				logging.Warn("Backend", "%s is not set, calling the Logseq API without a token", bc.TokenEnv)
			}
		}
		logging.Info("Backend", "Using Logseq API at %s", bc.Endpoint)
		return logseq.New(bc.Endpoint, token), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend type %q", bc.Type)
	}
}
