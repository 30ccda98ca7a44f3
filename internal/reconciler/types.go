package reconciler

import (
	"context"
	"time"
)

// EventLogger receives the named lifecycle events emitted by the reconcilers.
// It is optional: a nil EventLogger changes nothing but observability.
type EventLogger interface {
	Debug(event string, data map[string]any)
}

// SyncStats counts the outcome of one tree reconciliation pass.
//
// Total is fixed to the number of input items when the pass starts and is
// never recomputed.
type SyncStats struct {
	Total   int `json:"total" yaml:"total"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Created int `json:"created" yaml:"created"`
	Updated int `json:"updated" yaml:"updated"`
	Deleted int `json:"deleted" yaml:"deleted"`
}

// ChildSyncStats counts the outcome of one property reconciliation pass.
type ChildSyncStats struct {
	Skipped int `json:"skipped" yaml:"skipped"`
	Updated int `json:"updated" yaml:"updated"`
	Created int `json:"created" yaml:"created"`
	Deleted int `json:"deleted" yaml:"deleted"`
}

// ChangeEvent represents a detected change in a feed source.
type ChangeEvent struct {
	// Feed is the name of the feed whose source changed.
	Feed string

	// Operation describes what kind of change occurred.
	Operation ChangeOperation

	// Timestamp is when the change was detected.
	Timestamp time.Time

	// Source indicates where the change came from.
	Source ChangeSource

	// FilePath is the path to the file that changed (filesystem source only).
	FilePath string
}

// ChangeOperation represents the type of change detected.
type ChangeOperation string

const (
	// OperationCreate indicates a new feed file appeared.
	OperationCreate ChangeOperation = "Create"

	// OperationUpdate indicates a feed file was modified.
	OperationUpdate ChangeOperation = "Update"

	// OperationDelete indicates a feed file was removed.
	OperationDelete ChangeOperation = "Delete"
)

// ChangeSource indicates where a change originated.
type ChangeSource string

const (
	// SourceFilesystem indicates the change came from filesystem watching.
	SourceFilesystem ChangeSource = "Filesystem"

	// SourceManual indicates the change was triggered manually.
	SourceManual ChangeSource = "Manual"

	// SourceSchedule indicates a periodic resync.
	SourceSchedule ChangeSource = "Schedule"
)

// SyncRequest asks the manager to reconcile one feed.
type SyncRequest struct {
	// Feed is the feed name.
	Feed string

	// Attempt is the current retry attempt number (starts at 1).
	Attempt int

	// LastError is the error from the previous attempt, if any.
	LastError error
}

// FeedSyncer runs one reconciliation pass for a named feed.
type FeedSyncer interface {
	SyncFeed(ctx context.Context, feed string) (SyncStats, error)
}

// ChangeDetector is the interface for components that detect changes in feed sources.
type ChangeDetector interface {
	// Start begins watching for changes.
	// The detector should send change events to the provided channel.
	Start(ctx context.Context, changes chan<- ChangeEvent) error

	// Stop gracefully stops the change detector.
	Stop() error

	// GetSource returns the source type this detector monitors.
	GetSource() ChangeSource

	// AddFeed starts tracking the source file of a feed.
	AddFeed(feed, path string) error

	// RemoveFeed stops tracking a feed.
	RemoveFeed(feed string) error
}

// SyncQueue represents a queue of feeds awaiting reconciliation.
type SyncQueue interface {
	// Add adds a request to the queue.
	// If the same feed is already queued, the existing entry is updated.
	Add(req SyncRequest)

	// Get retrieves the next request from the queue.
	// Blocks until a request is available or the context is cancelled.
	Get(ctx context.Context) (SyncRequest, bool)

	// Done marks a request as processed.
	Done(req SyncRequest)

	// Len returns the current queue length.
	Len() int

	// Shutdown signals the queue to stop accepting new items.
	Shutdown()
}

// ManagerConfig holds configuration for the sync Manager.
type ManagerConfig struct {
	// WorkerCount is the number of concurrent sync workers.
	// Defaults to 1 so a backend only ever sees one writer.
	WorkerCount int

	// MaxRetries is the maximum number of attempts for a failing feed.
	// Defaults to 5 if not specified.
	MaxRetries int

	// InitialBackoff is the initial backoff duration for retries.
	// Defaults to 1 second if not specified.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration for retries.
	// Defaults to 5 minutes if not specified.
	MaxBackoff time.Duration

	// DebounceInterval is how long the filesystem detector waits for
	// further changes before emitting an event.
	// Defaults to 500 milliseconds if not specified.
	DebounceInterval time.Duration

	// ResyncInterval re-queues every feed periodically. Zero disables it.
	ResyncInterval time.Duration

	// SyncTimeout bounds a single feed pass.
	// Defaults to 10 minutes if not specified.
	SyncTimeout time.Duration
}

// SyncStatus represents the current status of a feed.
type SyncStatus struct {
	// Feed is the feed name.
	Feed string `json:"feed" yaml:"feed"`

	// LastSyncTime is when the feed was last successfully reconciled.
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty" yaml:"lastSyncTime,omitempty"`

	// LastStats holds the statistics of the last successful pass.
	LastStats SyncStats `json:"lastStats" yaml:"lastStats"`

	// LastError is the most recent error, if any.
	LastError string `json:"lastError,omitempty" yaml:"lastError,omitempty"`

	// RetryCount is the number of retry attempts.
	RetryCount int `json:"retryCount" yaml:"retryCount"`

	// State describes the current sync state.
	State SyncState `json:"state" yaml:"state"`
}

// SyncState represents the state of a feed's synchronization.
type SyncState string

const (
	// StatePending means the feed is awaiting reconciliation.
	StatePending SyncState = "Pending"

	// StateSyncing means reconciliation is in progress.
	StateSyncing SyncState = "Syncing"

	// StateSynced means the feed is successfully reconciled.
	StateSynced SyncState = "Synced"

	// StateError means reconciliation failed and will be retried.
	StateError SyncState = "Error"

	// StateFailed means reconciliation failed permanently (max retries exceeded).
	StateFailed SyncState = "Failed"
)
