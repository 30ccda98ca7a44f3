package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"blocksync/internal/app"
	"blocksync/internal/config"
	"blocksync/internal/formatting"
	"blocksync/internal/reconciler"
)

// ExecutorOptions contains configuration options for command execution.
// These options control how commands are executed and how output is formatted.
type ExecutorOptions struct {
	// Format specifies the desired output format
	Format formatting.OutputFormat
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Debug enables debug logging
	Debug bool
	// Color enables colored table output
	Color bool
	// ConfigPath specifies the configuration directory; empty selects the default
	ConfigPath string
	// LogOutput receives log lines; nil selects stderr
	LogOutput io.Writer
	// Out receives command output; nil selects stdout
	Out io.Writer
	// Progress receives the spinner; nil selects stderr
	Progress io.Writer
}

// Executor runs blocksync commands against a bootstrapped application and
// prints their results in the selected format.
type Executor struct {
	app       *app.Application
	options   ExecutorOptions
	formatter formatting.Formatter
	out       io.Writer
	progress  io.Writer
}

// NewExecutor bootstraps the application. Configuration problems are
// returned as *ConfigError.
func NewExecutor(options ExecutorOptions) (*Executor, error) {
	cfg := app.NewConfig(options.Debug, options.Quiet, options.ConfigPath)
	cfg.LogOutput = options.LogOutput

	application, err := app.NewApplication(cfg)
	if err != nil {
		var collection *config.ConfigurationErrorCollection
		if errors.As(err, &collection) {
			path := options.ConfigPath
			if path == "" {
				path = config.GetDefaultConfigPathOrPanic()
			}
			return nil, &ConfigError{Path: path, Reason: collection}
		}
		return nil, err
	}

	out := options.Out
	if out == nil {
		out = os.Stdout
	}
	progress := options.Progress
	if progress == nil {
		progress = os.Stderr
	}

	return &Executor{
		app:     application,
		options: options,
		formatter: formatting.NewFactory().CreateFormatter(formatting.Options{
			Format: options.Format,
			Quiet:  options.Quiet,
			Color:  options.Color,
		}),
		out:      out,
		progress: progress,
	}, nil
}

// Close releases the backend.
func (e *Executor) Close() error {
	return e.app.Close()
}

// Sync runs one pass for the selected feeds, all feeds when none are given,
// and prints the results. Failing feeds do not stop the others; the
// returned error is a *SyncFailedError when any failed.
func (e *Executor) Sync(ctx context.Context, feeds []string, dryRun bool) error {
	var s *spinner.Spinner
	if !e.options.Quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(e.progress))
		s.Suffix = " Syncing feeds..."
		if dryRun {
			s.Suffix = " Computing changes..."
		}
		e.app.SetProgress(func(feed string, stats *reconciler.SyncStats) {
			suffix := progressSuffix(feed, *stats)
			s.Lock()
			s.Suffix = suffix
			s.Unlock()
		})
		defer e.app.SetProgress(nil)
		s.Start()
	}

	results, err := e.app.Sync(ctx, app.SyncOptions{Feeds: feeds, DryRun: dryRun})

	if s != nil {
		s.Stop()
	}

	if len(results) > 0 {
		fmt.Fprint(e.out, e.formatter.FormatSyncResults(results))
	}
	if err == nil {
		return nil
	}
	if len(results) == 0 {
		return err
	}

	failed := 0
	var firstErr string
	for _, r := range results {
		if r.Failed() {
			if failed == 0 {
				firstErr = r.Error
			}
			failed++
		}
	}
	if failed == 0 {
		// Interrupted between feeds.
		return err
	}

	if !e.options.Quiet {
		fmt.Fprintln(e.progress, text.FgRed.Sprint("❌ Sync failed"))
	}
	// Per-feed errors only survive as text.
	if connErr := e.classify(errors.New(firstErr)); connErr != nil && failed == len(results) {
		return connErr
	}
	return &SyncFailedError{Failed: failed, Total: len(results)}
}

// Tree prints the block tree under parent.
func (e *Executor) Tree(ctx context.Context, parent string) error {
	nodes, err := e.app.Tree(ctx, parent)
	if err != nil {
		if connErr := e.classify(err); connErr != nil {
			return connErr
		}
		return err
	}
	fmt.Fprint(e.out, e.formatter.FormatTree(parent, nodes))
	return nil
}

// Feeds prints the configured feeds.
func (e *Executor) Feeds() {
	settings := e.app.Settings()
	for _, def := range settings.Feeds {
		fmt.Fprintf(e.out, "%s\t%s\t%s\n", def.Name, def.Parent, def.File)
	}
}

// Watch keeps all feeds in sync until interrupted, then prints the final
// feed states and metrics.
func (e *Executor) Watch(ctx context.Context) error {
	report, err := e.app.Watch(ctx)
	if report != nil {
		fmt.Fprint(e.out, e.formatter.FormatStatuses(report.Statuses))
		fmt.Fprint(e.out, e.formatter.FormatMetrics(report.Metrics))
	}
	return err
}

// classify turns API failures of the logseq backend into *ConnectionError.
func (e *Executor) classify(err error) *ConnectionError {
	settings := e.app.Settings()
	if settings.Backend.Type != config.BackendLogseq {
		return nil
	}
	return ClassifyConnectionError(err, settings.Backend.Endpoint)
}
