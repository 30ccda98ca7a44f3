package formatting

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"blocksync/internal/blocktree"
	"blocksync/internal/reconciler"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}

// FormatSyncResults formats the results and their totals as YAML.
func (f *YAMLFormatter) FormatSyncResults(results []SyncResult) string {
	return f.marshal(newSyncReport(results))
}

// FormatTree formats the block tree as YAML.
func (f *YAMLFormatter) FormatTree(parent string, nodes []blocktree.Node) string {
	return f.marshal(newTreeDocument(parent, nodes))
}

// FormatStatuses formats feed statuses as YAML.
func (f *YAMLFormatter) FormatStatuses(statuses []reconciler.SyncStatus) string {
	if statuses == nil {
		statuses = []reconciler.SyncStatus{}
	}
	return f.marshal(statuses)
}

// FormatMetrics formats the metrics summary as YAML.
func (f *YAMLFormatter) FormatMetrics(summary reconciler.SyncMetricsSummary) string {
	return f.marshal(summary)
}

func (f *YAMLFormatter) marshal(v interface{}) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v\n", err)
	}
	return string(out)
}
