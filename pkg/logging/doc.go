// Package logging provides the structured logging layer for blocksync.
//
// The package wraps Go's standard slog package behind a small subsystem-based
// facade so every component logs the same way:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "Loaded configuration from %s", path)
//	logging.Debug("FeedLoader", "Parsed %d items", n)
//	logging.Error("SyncManager", err, "Sync of feed %s failed", name)
//
// # Subsystems
//
// Every entry carries a "subsystem" attribute. The ones used across the
// code base are:
//
//   - Bootstrap: application initialization
//   - ConfigLoader: configuration loading and validation
//   - TreeReconciler / PropertyReconciler: reconciliation passes
//   - SyncManager: continuous feed synchronization
//   - FilesystemDetector: feed file watching
//   - Backend: block store adapters
//
// # Event sinks
//
// The reconciliation core does not log directly. It emits named lifecycle
// events ("item.skip", "orphan.delete", ...) to an optional sink. EventSink
// forwards those events to slog at debug level, turning the event data into
// sorted slog attributes:
//
//	sink := logging.NewEventSink("TreeReconciler")
//	sink.Debug("item.create", map[string]any{"id": "42"})
//
// # Thread Safety
//
// All functions are safe for concurrent use once InitForCLI has been called.
package logging
