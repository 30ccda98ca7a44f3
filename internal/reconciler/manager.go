package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"blocksync/pkg/logging"
)

// Manager keeps feeds continuously in sync.
//
// It manages:
//   - a change detector turning feed file edits into sync requests
//   - a deduplicating work queue and worker pool
//   - retry with capped exponential backoff
//   - per-feed status and metrics
//
// Retries live here only. A single pass never retries on its own.
type Manager struct {
	mu sync.RWMutex

	config ManagerConfig

	syncer FeedSyncer

	// changeDetector turns source edits into change events
	changeDetector ChangeDetector

	// feeds maps registered feed names to their source file
	feeds map[string]string

	queue *delayedQueue

	statusTracker map[string]*SyncStatus

	metrics *SyncMetrics

	changeChan chan ChangeEvent

	ctx        context.Context
	cancelFunc context.CancelFunc

	wg sync.WaitGroup

	running bool
}

// NewManager creates a new sync manager.
func NewManager(config ManagerConfig, syncer FeedSyncer) *Manager {
	// Apply defaults
	if config.WorkerCount == 0 {
		config.WorkerCount = 1
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 5
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 5 * time.Minute
	}
	if config.DebounceInterval == 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}
	if config.SyncTimeout == 0 {
		config.SyncTimeout = 10 * time.Minute
	}

	return &Manager{
		config:        config,
		syncer:        syncer,
		feeds:         make(map[string]string),
		queue:         NewDelayedQueue(),
		statusTracker: make(map[string]*SyncStatus),
		metrics:       NewSyncMetrics(),
		changeChan:    make(chan ChangeEvent, 100),
	}
}

// SetChangeDetector replaces the default filesystem detector. It must be
// called before Start.
func (m *Manager) SetChangeDetector(detector ChangeDetector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeDetector = detector
}

// RegisterFeed makes a feed known to the manager. path is the feed's source
// file and may be empty for feeds that are only synced on demand.
func (m *Manager) RegisterFeed(name, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.feeds[name]; exists {
		return fmt.Errorf("feed %s already registered", name)
	}
	m.feeds[name] = path
	logging.Info("SyncManager", "Registered feed %s", name)

	if m.running && m.changeDetector != nil && path != "" {
		if err := m.changeDetector.AddFeed(name, path); err != nil {
			logging.Warn("SyncManager", "Failed to watch %s for feed %s: %v", path, name, err)
		}
	}
	return nil
}

// Start runs an initial pass for every registered feed and then keeps
// watching for changes until Stop is called or ctx ends.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}

	m.ctx, m.cancelFunc = context.WithCancel(ctx)
	m.running = true

	if m.changeDetector == nil {
		m.changeDetector = NewFilesystemDetector(m.config.DebounceInterval)
	}

	feeds := make([]string, 0, len(m.feeds))
	for name, path := range m.feeds {
		feeds = append(feeds, name)
		if path == "" {
			continue
		}
		if err := m.changeDetector.AddFeed(name, path); err != nil {
			logging.Warn("SyncManager", "Failed to watch %s for feed %s: %v", path, name, err)
		}
	}
	detector := m.changeDetector
	m.mu.Unlock()

	if err := detector.Start(m.ctx, m.changeChan); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		m.cancelFunc()
		return fmt.Errorf("failed to start change detector: %w", err)
	}

	m.wg.Add(1)
	go m.processChangeEvents()

	for i := 0; i < m.config.WorkerCount; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	if m.config.ResyncInterval > 0 {
		m.wg.Add(1)
		go m.resyncLoop(m.config.ResyncInterval)
	}

	sort.Strings(feeds)
	for _, name := range feeds {
		m.enqueue(name, SourceManual)
	}

	logging.Info("SyncManager", "Started with %d workers and %d feeds", m.config.WorkerCount, len(feeds))
	return nil
}

// processChangeEvents converts change events to sync requests.
func (m *Manager) processChangeEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case event, ok := <-m.changeChan:
			if !ok {
				return
			}
			m.handleChangeEvent(event)
		}
	}
}

// handleChangeEvent processes a single change event.
func (m *Manager) handleChangeEvent(event ChangeEvent) {
	if !m.isRegistered(event.Feed) {
		logging.Debug("SyncManager", "Ignoring change event for unknown feed %s", event.Feed)
		return
	}

	// A vanished source file must not wipe the feed's blocks.
	if event.Operation == OperationDelete {
		logging.Warn("SyncManager", "Source of feed %s was removed, keeping existing blocks", event.Feed)
		return
	}

	logging.Debug("SyncManager", "Handling change event: %s %s", event.Operation, event.Feed)
	m.enqueue(event.Feed, event.Source)
}

func (m *Manager) enqueue(feed string, source ChangeSource) {
	m.updateStatus(feed, StatePending, "", nil)
	m.queue.Add(SyncRequest{Feed: feed, Attempt: 1})
	logging.Debug("SyncManager", "Queued feed %s (%s)", feed, source)
}

// resyncLoop periodically queues every registered feed.
func (m *Manager) resyncLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			for _, feed := range m.Feeds() {
				m.enqueue(feed, SourceSchedule)
			}
		}
	}
}

// worker processes sync requests from the queue.
func (m *Manager) worker(id int) {
	defer m.wg.Done()

	logging.Debug("SyncManager", "Worker %d started", id)

	for {
		req, ok := m.queue.Get(m.ctx)
		if !ok {
			logging.Debug("SyncManager", "Worker %d shutting down", id)
			return
		}

		m.processRequest(req)
		m.queue.Done(req)
	}
}

// processRequest runs one pass for a feed.
func (m *Manager) processRequest(req SyncRequest) {
	m.updateStatus(req.Feed, StateSyncing, "", nil)
	m.metrics.RecordAttempt(req.Feed)

	logging.Debug("SyncManager", "Syncing %s (attempt %d)", req.Feed, req.Attempt)

	// A hung backend call must not block the worker forever.
	ctx, cancel := context.WithTimeout(m.ctx, m.config.SyncTimeout)
	defer cancel()

	start := time.Now()
	stats, err := m.syncer.SyncFeed(ctx, req.Feed)

	if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("sync timed out after %v", m.config.SyncTimeout)
	}

	if err != nil {
		m.handleSyncError(req, stats, err)
		return
	}
	m.handleSuccess(req, stats, time.Since(start))
}

// handleSyncError records a failed pass and schedules a retry.
func (m *Manager) handleSyncError(req SyncRequest, partial SyncStats, err error) {
	reason := SanitizeErrorMessage(err.Error())
	m.metrics.RecordFailure(req.Feed, partial, reason)

	// Shutdown is not a failure worth retrying.
	if m.ctx.Err() != nil {
		m.updateStatus(req.Feed, StatePending, reason, nil)
		return
	}

	logging.Warn("SyncManager", "Sync failed for %s: %v", req.Feed, err)

	if req.Attempt >= m.config.MaxRetries {
		logging.Error("SyncManager", err, "Max retries exceeded for %s", req.Feed)
		m.updateStatus(req.Feed, StateFailed, reason, nil)
		return
	}

	m.updateStatus(req.Feed, StateError, reason, nil)

	backoff := m.calculateBackoff(req.Attempt)

	req.Attempt++
	req.LastError = err
	m.queue.AddAfter(req, backoff)

	logging.Debug("SyncManager", "Requeuing %s after %v (attempt %d)", req.Feed, backoff, req.Attempt)
}

// handleSuccess records a completed pass.
func (m *Manager) handleSuccess(req SyncRequest, stats SyncStats, duration time.Duration) {
	m.metrics.RecordSuccess(req.Feed, stats, duration)
	m.updateStatus(req.Feed, StateSynced, "", &stats)

	logging.Info("SyncManager", "Synced %s in %v: %d created, %d updated, %d deleted, %d unchanged",
		req.Feed, duration.Round(time.Millisecond), stats.Created, stats.Updated, stats.Deleted, stats.Skipped)
}

// calculateBackoff computes exponential backoff capped at MaxBackoff.
func (m *Manager) calculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Keep the shift well below overflow
	if attempt > 30 {
		return m.config.MaxBackoff
	}

	backoff := m.config.InitialBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > m.config.MaxBackoff || backoff <= 0 {
		backoff = m.config.MaxBackoff
	}
	return backoff
}

// updateStatus updates the sync status of a feed.
func (m *Manager) updateStatus(feed string, state SyncState, errMsg string, stats *SyncStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statusTracker[feed]
	if !ok {
		status = &SyncStatus{Feed: feed}
		m.statusTracker[feed] = status
	}

	status.State = state
	status.LastError = errMsg

	switch state {
	case StateSynced:
		now := time.Now()
		status.LastSyncTime = &now
		status.RetryCount = 0
		if stats != nil {
			status.LastStats = *stats
		}
	case StateError:
		status.RetryCount++
	}
}

// Stop gracefully shuts down the manager.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	detector := m.changeDetector
	m.mu.Unlock()

	logging.Info("SyncManager", "Stopping sync manager...")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if detector != nil {
		if err := detector.Stop(); err != nil {
			logging.Error("SyncManager", err, "Error stopping change detector")
		}
	}

	m.queue.Shutdown()
	m.wg.Wait()

	logging.Info("SyncManager", "Sync manager stopped")
	return nil
}

// GetStatus returns a copy of the sync status of a feed.
func (m *Manager) GetStatus(feed string) (SyncStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statusTracker[feed]
	if !ok {
		return SyncStatus{}, false
	}
	return *status, true
}

// GetAllStatuses returns the status of every feed seen so far, sorted by name.
func (m *Manager) GetAllStatuses() []SyncStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]SyncStatus, 0, len(m.statusTracker))
	for _, status := range m.statusTracker {
		statuses = append(statuses, *status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Feed < statuses[j].Feed })
	return statuses
}

// TriggerSync manually queues a pass for a feed.
func (m *Manager) TriggerSync(feed string) error {
	if !m.isRegistered(feed) {
		return fmt.Errorf("unknown feed %s", feed)
	}
	m.handleChangeEvent(ChangeEvent{
		Feed:      feed,
		Operation: OperationUpdate,
		Timestamp: time.Now(),
		Source:    SourceManual,
	})
	return nil
}

// Feeds returns the registered feed names, sorted.
func (m *Manager) Feeds() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.feeds))
	for name := range m.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) isRegistered(feed string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.feeds[feed]
	return ok
}

// Metrics returns the manager's metrics.
func (m *Manager) Metrics() *SyncMetrics {
	return m.metrics
}

// IsRunning returns whether the manager is running.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// GetQueueLength returns the current queue length.
func (m *Manager) GetQueueLength() int {
	return m.queue.Len()
}
