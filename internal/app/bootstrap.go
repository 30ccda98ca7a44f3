package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"blocksync/internal/blocktree"
	"blocksync/internal/config"
	"blocksync/internal/formatting"
	"blocksync/pkg/logging"
)

// Application bootstraps blocksync and runs its commands.
//
// Initialization happens in two phases:
//  1. Bootstrap: configure logging, load config.yaml, open the backend
//  2. Execution: Sync, Tree or Watch
//
// Example usage:
//
//	application, err := app.NewApplication(app.NewConfig(false, false, ""))
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	defer application.Close()
//	results, err := application.Sync(ctx, app.SyncOptions{})
type Application struct {
	config   *Config
	services *Services
}

// NewApplication performs the bootstrap sequence. Configuration is read
// from cfg.ConfigPath, or from ~/.config/blocksync when it is empty.
//
// Validation failures are returned as *config.ConfigurationErrorCollection.
func NewApplication(cfg *Config) (*Application, error) {
	level := logging.LevelInfo
	switch {
	case cfg.Debug:
		level = logging.LevelDebug
	case cfg.Quiet:
		level = logging.LevelWarn
	}

	var logOutput io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	logging.InitForCLI(level, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	settings, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	logging.Debug("Bootstrap", "Loaded configuration from %s with %d feeds", configPath, len(settings.Feeds))
	cfg.Settings = &settings

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Settings returns the loaded configuration.
func (a *Application) Settings() config.Config {
	return *a.config.Settings
}

// SetProgress installs a progress observer for subsequent passes.
func (a *Application) SetProgress(fn ProgressFunc) {
	a.services.Syncer.Progress = fn
}

// Sync runs one pass for each selected feed. Results are returned for every
// feed that ran, also when the error is non-nil.
func (a *Application) Sync(ctx context.Context, opts SyncOptions) ([]formatting.SyncResult, error) {
	return a.services.Syncer.SyncAll(ctx, opts)
}

// Tree reads the current block tree under parent.
func (a *Application) Tree(ctx context.Context, parent string) ([]blocktree.Node, error) {
	nodes, err := a.services.Backend.GetChildren(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", parent, err)
	}
	return nodes, nil
}

// Watch keeps every configured feed in sync until ctx ends or the process
// receives SIGINT or SIGTERM, then reports the final feed states.
func (a *Application) Watch(ctx context.Context) (*WatchReport, error) {
	return runWatchMode(ctx, a.config.Settings, a.services)
}

// Close releases the backend.
func (a *Application) Close() error {
	return a.services.Close()
}
