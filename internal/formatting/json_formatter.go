package formatting

import (
	"blocksync/internal/blocktree"
	"blocksync/internal/reconciler"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}

type syncReport struct {
	Results []SyncResult         `json:"results" yaml:"results"`
	Totals  reconciler.SyncStats `json:"totals" yaml:"totals"`
}

func newSyncReport(results []SyncResult) syncReport {
	if results == nil {
		results = []SyncResult{}
	}
	return syncReport{Results: results, Totals: totals(results)}
}

// FormatSyncResults formats the results and their totals as JSON.
func (f *JSONFormatter) FormatSyncResults(results []SyncResult) string {
	return PrettyJSON(newSyncReport(results)) + "\n"
}

// FormatTree formats the block tree as JSON.
func (f *JSONFormatter) FormatTree(parent string, nodes []blocktree.Node) string {
	return PrettyJSON(newTreeDocument(parent, nodes)) + "\n"
}

// FormatStatuses formats feed statuses as JSON.
func (f *JSONFormatter) FormatStatuses(statuses []reconciler.SyncStatus) string {
	if statuses == nil {
		statuses = []reconciler.SyncStatus{}
	}
	return PrettyJSON(statuses) + "\n"
}

// FormatMetrics formats the metrics summary as JSON.
func (f *JSONFormatter) FormatMetrics(summary reconciler.SyncMetricsSummary) string {
	return PrettyJSON(summary) + "\n"
}
