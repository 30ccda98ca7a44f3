package reconciler

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"blocksync/pkg/logging"
)

// FilesystemDetector implements ChangeDetector for feed source files.
//
// It watches the directory of every registered feed file rather than the file
// itself, so editors that save by rename are still seen. Events for files no
// feed is registered for are ignored.
type FilesystemDetector struct {
	mu sync.RWMutex

	watcher *fsnotify.Watcher

	// feedsByPath maps cleaned absolute file paths to feed names
	feedsByPath map[string]string

	// watchedDirs counts registered feeds per watched directory
	watchedDirs map[string]int

	debounceInterval time.Duration

	// pendingEvents tracks debounced events per feed
	pendingEvents map[string]*debounceEntry

	stopCh chan struct{}

	running bool
}

// debounceEntry tracks a pending event for debouncing.
type debounceEntry struct {
	event ChangeEvent
	timer *time.Timer
}

// NewFilesystemDetector creates a new filesystem change detector.
func NewFilesystemDetector(debounceInterval time.Duration) *FilesystemDetector {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}

	return &FilesystemDetector{
		feedsByPath:      make(map[string]string),
		watchedDirs:      make(map[string]int),
		debounceInterval: debounceInterval,
		pendingEvents:    make(map[string]*debounceEntry),
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching for filesystem changes.
func (d *FilesystemDetector) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.mu.Unlock()
		return err
	}

	d.watcher = watcher
	d.running = true
	d.stopCh = make(chan struct{})

	for dir := range d.watchedDirs {
		if err := watcher.Add(dir); err != nil {
			logging.Warn("FilesystemDetector", "Failed to watch %s: %v", dir, err)
			continue
		}
		logging.Debug("FilesystemDetector", "Watching directory: %s", dir)
	}
	dirs := len(d.watchedDirs)
	d.mu.Unlock()

	go d.processEvents(ctx, watcher, changes)

	logging.Info("FilesystemDetector", "Started watching %d feed directories", dirs)
	return nil
}

// processEvents handles filesystem events and generates change events.
func (d *FilesystemDetector) processEvents(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			d.cleanupPendingEvents()
			return

		case <-d.stopCh:
			d.cleanupPendingEvents()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			d.handleFsEvent(event, changes)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("FilesystemDetector", err, "Filesystem watcher error")
		}
	}
}

// handleFsEvent processes a single filesystem event.
func (d *FilesystemDetector) handleFsEvent(event fsnotify.Event, changes chan<- ChangeEvent) {
	if !isFeedFile(event.Name) {
		return
	}

	feed, ok := d.feedForPath(event.Name)
	if !ok {
		return
	}

	var operation ChangeOperation
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		operation = OperationCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		operation = OperationUpdate
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		operation = OperationDelete
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		// The new name arrives as a separate create
		operation = OperationDelete
	default:
		return
	}

	d.debounceEvent(ChangeEvent{
		Feed:      feed,
		Operation: operation,
		Timestamp: time.Now(),
		Source:    SourceFilesystem,
		FilePath:  event.Name,
	}, changes)
}

// debounceEvent collapses rapid successive changes of one feed into a single
// event emitted after the debounce interval.
func (d *FilesystemDetector) debounceEvent(event ChangeEvent, changes chan<- ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := event.Feed

	if entry, ok := d.pendingEvents[key]; ok {
		entry.timer.Stop()
		event.Operation = mergeOperations(entry.event.Operation, event.Operation)
	}

	timer := time.AfterFunc(d.debounceInterval, func() {
		d.mu.Lock()
		entry, ok := d.pendingEvents[key]
		if ok {
			delete(d.pendingEvents, key)
		}
		d.mu.Unlock()

		if !ok {
			return
		}
		select {
		case changes <- entry.event:
			logging.Debug("FilesystemDetector", "Emitted change event: %s %s",
				entry.event.Operation, entry.event.Feed)
		default:
			logging.Warn("FilesystemDetector", "Change event channel full, dropping event for %s",
				entry.event.Feed)
		}
	})

	d.pendingEvents[key] = &debounceEntry{event: event, timer: timer}
}

// mergeOperations merges two operations into a single logical operation.
func mergeOperations(old, new ChangeOperation) ChangeOperation {
	if old == OperationCreate {
		if new == OperationDelete {
			return OperationDelete
		}
		return OperationCreate
	}

	if old == OperationUpdate && new == OperationDelete {
		return OperationDelete
	}

	// Delete followed by Create is how atomic saves look.
	if old == OperationDelete && new == OperationCreate {
		return OperationUpdate
	}

	return new
}

// feedForPath maps a file path to its registered feed.
func (d *FilesystemDetector) feedForPath(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	feed, ok := d.feedsByPath[filepath.Clean(abs)]
	return feed, ok
}

// cleanupPendingEvents cancels all pending debounce timers.
func (d *FilesystemDetector) cleanupPendingEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range d.pendingEvents {
		entry.timer.Stop()
	}
	d.pendingEvents = make(map[string]*debounceEntry)
}

// Stop gracefully stops the filesystem detector.
func (d *FilesystemDetector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false
	close(d.stopCh)

	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			logging.Error("FilesystemDetector", err, "Error closing filesystem watcher")
		}
		d.watcher = nil
	}

	logging.Info("FilesystemDetector", "Stopped filesystem detector")
	return nil
}

// GetSource returns the change source type.
func (d *FilesystemDetector) GetSource() ChangeSource {
	return SourceFilesystem
}

// AddFeed starts tracking the source file of a feed. The file does not need
// to exist yet, but its directory does once the detector is running.
func (d *FilesystemDetector) AddFeed(feed, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	dir := filepath.Dir(abs)

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.feedsByPath[abs]; ok && old != feed {
		logging.Warn("FilesystemDetector", "File %s moves from feed %s to %s", abs, old, feed)
	}
	if _, ok := d.feedsByPath[abs]; !ok {
		d.watchedDirs[dir]++
	}
	d.feedsByPath[abs] = feed

	if d.running && d.watchedDirs[dir] == 1 {
		if err := d.watcher.Add(dir); err != nil {
			return err
		}
		logging.Debug("FilesystemDetector", "Watching directory: %s", dir)
	}
	return nil
}

// RemoveFeed stops tracking a feed.
func (d *FilesystemDetector) RemoveFeed(feed string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, name := range d.feedsByPath {
		if name != feed {
			continue
		}
		delete(d.feedsByPath, path)

		dir := filepath.Dir(path)
		d.watchedDirs[dir]--
		if d.watchedDirs[dir] > 0 {
			continue
		}
		delete(d.watchedDirs, dir)
		if d.running && d.watcher != nil {
			if err := d.watcher.Remove(dir); err != nil {
				logging.Debug("FilesystemDetector", "Failed to unwatch %s: %v", dir, err)
			}
		}
	}
	return nil
}

// isFeedFile checks if a file path has a feed file extension.
func isFeedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
