// Package formatting renders sync results, block trees and sync manager
// state for the command line.
//
// Every formatter returns strings rather than printing, so commands decide
// where output goes. Four formats are supported: console, JSON, YAML and
// table.
package formatting

import (
	"fmt"
	"strings"
	"time"

	"blocksync/internal/blocktree"
	"blocksync/internal/reconciler"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, console, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// SyncResult is the outcome of syncing one feed.
type SyncResult struct {
	Feed     string               `json:"feed" yaml:"feed"`
	Parent   string               `json:"parent" yaml:"parent"`
	Stats    reconciler.SyncStats `json:"stats" yaml:"stats"`
	DryRun   bool                 `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	Duration time.Duration        `json:"duration" yaml:"duration"`
	Error    string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the sync ended in an error.
func (r SyncResult) Failed() bool {
	return r.Error != ""
}

// Formatter renders blocksync data in one output format.
type Formatter interface {
	FormatSyncResults(results []SyncResult) string
	FormatTree(parent string, nodes []blocktree.Node) string
	FormatStatuses(statuses []reconciler.SyncStatus) string
	FormatMetrics(summary reconciler.SyncMetricsSummary) string

	SetOptions(options Options)
	GetOptions() Options
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) Formatter
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		return NewTableFormatter(options)
	case FormatConsole:
		fallthrough
	default:
		return NewConsoleFormatter(options)
	}
}

// treeDocument is the structured form of a tree listing.
type treeDocument struct {
	Parent string           `json:"parent" yaml:"parent"`
	Count  int              `json:"count" yaml:"count"`
	Blocks []blocktree.Node `json:"blocks" yaml:"blocks"`
}

func newTreeDocument(parent string, nodes []blocktree.Node) treeDocument {
	if nodes == nil {
		nodes = []blocktree.Node{}
	}
	return treeDocument{Parent: parent, Count: blocktree.Count(nodes), Blocks: nodes}
}

// totals sums the stats of every result.
func totals(results []SyncResult) reconciler.SyncStats {
	var sum reconciler.SyncStats
	for _, r := range results {
		sum.Total += r.Stats.Total
		sum.Skipped += r.Stats.Skipped
		sum.Created += r.Stats.Created
		sum.Updated += r.Stats.Updated
		sum.Deleted += r.Stats.Deleted
	}
	return sum
}
