package reconciler

import (
	"sort"
	"sync"
	"time"

	"blocksync/pkg/logging"
)

// SyncMetrics tracks feed sync activity across passes.
//
// Mutation counters accumulate the SyncStats of successful passes, so they
// show how much churn each feed causes in the backend over time.
type SyncMetrics struct {
	mu sync.RWMutex

	feeds map[string]*feedMetrics

	totalAttempts  int64
	totalSuccesses int64
	totalFailures  int64
}

// feedMetrics holds counters for a single feed.
type feedMetrics struct {
	Attempts      int64
	Successes     int64
	Failures      int64
	Created       int64
	Updated       int64
	Deleted       int64
	Skipped       int64
	LastAttemptAt time.Time
	LastSuccessAt time.Time
	LastFailureAt time.Time
	LastDuration  time.Duration
}

// NewSyncMetrics creates an empty metrics instance.
func NewSyncMetrics() *SyncMetrics {
	return &SyncMetrics{
		feeds: make(map[string]*feedMetrics),
	}
}

func (m *SyncMetrics) feed(name string) *feedMetrics {
	if fm, ok := m.feeds[name]; ok {
		return fm
	}
	fm := &feedMetrics{}
	m.feeds[name] = fm
	return fm
}

// RecordAttempt records the start of a pass.
func (m *SyncMetrics) RecordAttempt(feed string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fm := m.feed(feed)
	fm.Attempts++
	fm.LastAttemptAt = time.Now()
	m.totalAttempts++
}

// RecordSuccess records a completed pass and folds its stats into the feed's
// counters.
func (m *SyncMetrics) RecordSuccess(feed string, stats SyncStats, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fm := m.feed(feed)
	fm.Successes++
	fm.Created += int64(stats.Created)
	fm.Updated += int64(stats.Updated)
	fm.Deleted += int64(stats.Deleted)
	fm.Skipped += int64(stats.Skipped)
	fm.LastSuccessAt = time.Now()
	fm.LastDuration = duration
	m.totalSuccesses++
}

// RecordFailure records a failed pass. Partial stats of the failed pass are
// still counted since those mutations did reach the backend.
func (m *SyncMetrics) RecordFailure(feed string, partial SyncStats, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fm := m.feed(feed)
	fm.Failures++
	fm.Created += int64(partial.Created)
	fm.Updated += int64(partial.Updated)
	fm.Deleted += int64(partial.Deleted)
	fm.Skipped += int64(partial.Skipped)
	fm.LastFailureAt = time.Now()
	m.totalFailures++

	logging.Warn("SyncMetrics", "Sync failure for %s: %s (failures: %d)", feed, reason, fm.Failures)
}

// FeedMetricView is a read-only view of one feed's metrics.
type FeedMetricView struct {
	Feed          string        `json:"feed" yaml:"feed"`
	Attempts      int64         `json:"attempts" yaml:"attempts"`
	Successes     int64         `json:"successes" yaml:"successes"`
	Failures      int64         `json:"failures" yaml:"failures"`
	Created       int64         `json:"created" yaml:"created"`
	Updated       int64         `json:"updated" yaml:"updated"`
	Deleted       int64         `json:"deleted" yaml:"deleted"`
	Skipped       int64         `json:"skipped" yaml:"skipped"`
	LastAttemptAt time.Time     `json:"lastAttemptAt,omitempty" yaml:"lastAttemptAt,omitempty"`
	LastSuccessAt time.Time     `json:"lastSuccessAt,omitempty" yaml:"lastSuccessAt,omitempty"`
	LastFailureAt time.Time     `json:"lastFailureAt,omitempty" yaml:"lastFailureAt,omitempty"`
	LastDuration  time.Duration `json:"lastDuration" yaml:"lastDuration"`
}

// SyncMetricsSummary summarizes all feeds.
type SyncMetricsSummary struct {
	TotalAttempts  int64            `json:"totalAttempts" yaml:"totalAttempts"`
	TotalSuccesses int64            `json:"totalSuccesses" yaml:"totalSuccesses"`
	TotalFailures  int64            `json:"totalFailures" yaml:"totalFailures"`
	FailureRate    float64          `json:"failureRate" yaml:"failureRate"`
	Feeds          []FeedMetricView `json:"feeds" yaml:"feeds"`
}

// GetFeedMetrics returns the metrics of one feed.
func (m *SyncMetrics) GetFeedMetrics(feed string) (FeedMetricView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fm, ok := m.feeds[feed]
	if !ok {
		return FeedMetricView{}, false
	}
	return fm.view(feed), true
}

// GetSummary returns a summary over all feeds, sorted by feed name.
func (m *SyncMetrics) GetSummary() SyncMetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := SyncMetricsSummary{
		TotalAttempts:  m.totalAttempts,
		TotalSuccesses: m.totalSuccesses,
		TotalFailures:  m.totalFailures,
		Feeds:          make([]FeedMetricView, 0, len(m.feeds)),
	}
	if m.totalAttempts > 0 {
		summary.FailureRate = float64(m.totalFailures) / float64(m.totalAttempts)
	}

	for name, fm := range m.feeds {
		summary.Feeds = append(summary.Feeds, fm.view(name))
	}
	sort.Slice(summary.Feeds, func(i, j int) bool {
		return summary.Feeds[i].Feed < summary.Feeds[j].Feed
	})
	return summary
}

// Reset clears all counters.
func (m *SyncMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.feeds = make(map[string]*feedMetrics)
	m.totalAttempts = 0
	m.totalSuccesses = 0
	m.totalFailures = 0
}

func (fm *feedMetrics) view(name string) FeedMetricView {
	return FeedMetricView{
		Feed:          name,
		Attempts:      fm.Attempts,
		Successes:     fm.Successes,
		Failures:      fm.Failures,
		Created:       fm.Created,
		Updated:       fm.Updated,
		Deleted:       fm.Deleted,
		Skipped:       fm.Skipped,
		LastAttemptAt: fm.LastAttemptAt,
		LastSuccessAt: fm.LastSuccessAt,
		LastFailureAt: fm.LastFailureAt,
		LastDuration:  fm.LastDuration,
	}
}
