package app

import (
	"context"
	"fmt"
	"time"

	"blocksync/internal/backend/memory"
	"blocksync/internal/blocktree"
	"blocksync/internal/config"
	"blocksync/internal/feed"
	"blocksync/internal/formatting"
	"blocksync/internal/pacing"
	"blocksync/internal/reconciler"
	"blocksync/pkg/logging"
)

// ProgressFunc observes a running pass. stats is live and keeps changing
// after the call returns.
type ProgressFunc func(feed string, stats *reconciler.SyncStats)

// Syncer reconciles configured feeds into a backend. It implements
// reconciler.FeedSyncer for the watch manager.
type Syncer struct {
	settings config.Config
	backend  blocktree.Adapter

	// Progress is called after every item of every pass.
	Progress ProgressFunc

	// Yielder overrides the scheduler yield between batches.
	Yielder pacing.Yielder
}

var _ reconciler.FeedSyncer = (*Syncer)(nil)

// NewSyncer creates a syncer writing to backend.
func NewSyncer(settings config.Config, backend blocktree.Adapter) *Syncer {
	return &Syncer{
		settings: settings,
		backend:  backend,
		Yielder:  pacing.SchedulerYielder{},
	}
}

// SyncFeed runs one pass for the named feed against the backend.
func (s *Syncer) SyncFeed(ctx context.Context, name string) (reconciler.SyncStats, error) {
	def, ok := s.settings.Feed(name)
	if !ok {
		return reconciler.SyncStats{}, fmt.Errorf("unknown feed %q", name)
	}
	return s.sync(ctx, s.backend, def, s.settings.Pacing.Delay())
}

// DryRun runs one pass for the named feed against a copy of the parent's
// current tree, leaving the backend untouched. The returned stats are what
// a real pass would do.
func (s *Syncer) DryRun(ctx context.Context, name string) (reconciler.SyncStats, error) {
	def, ok := s.settings.Feed(name)
	if !ok {
		return reconciler.SyncStats{}, fmt.Errorf("unknown feed %q", name)
	}

	existing, err := s.backend.GetChildren(ctx, def.Parent)
	if err != nil {
		return reconciler.SyncStats{}, fmt.Errorf("failed to read %s: %w", def.Parent, err)
	}

	scratch := memory.New()
	scratch.Load(def.Parent, existing)
	return s.sync(ctx, scratch, def, pacing.NoDelay)
}

func (s *Syncer) sync(ctx context.Context, adapter blocktree.Adapter, def feed.Definition, delay time.Duration) (reconciler.SyncStats, error) {
	strategy, err := feed.NewStrategy(def)
	if err != nil {
		return reconciler.SyncStats{}, fmt.Errorf("feed %s: %w", def.Name, err)
	}

	items, err := feed.Load(def.File)
	if err != nil {
		return reconciler.SyncStats{}, fmt.Errorf("feed %s: %w", def.Name, err)
	}

	entries, err := strategy.Render(items)
	if err != nil {
		return reconciler.SyncStats{}, fmt.Errorf("feed %s: %w", def.Name, err)
	}

	logging.Debug("Syncer", "Feed %s: %d entries for %s", def.Name, len(entries), def.Parent)

	tree := reconciler.NewTreeReconciler[feed.Entry](adapter, reconciler.TreeConfig[feed.Entry]{
		ExtractID:          strategy.ExtractID,
		BuildBlock:         strategy.BuildBlock,
		ExtractIDFromBlock: strategy.ExtractIDFromBlock,
		PreserveWhen:       strategy.PreserveWhen,
		OnProgress:         s.progress(def.Name),
		Properties: reconciler.NewPropertyReconciler(adapter, reconciler.PropertyConfig{
			ExtractKey:     strategy.ExtractKey,
			IsSpecialBlock: strategy.IsSpecialBlock,
			MutationDelay:  delay,
			Yielder:        s.Yielder,
			Logger:         logging.NewEventSink("PropertyReconciler"),
		}),
		MutationDelay:  delay,
		YieldBatchSize: s.settings.Pacing.YieldBatchSize,
		Yielder:        s.Yielder,
		Logger:         logging.NewEventSink("TreeReconciler"),
	})

	stats, err := tree.Reconcile(ctx, def.Parent, entries)
	if err != nil {
		return stats, fmt.Errorf("feed %s: %w", def.Name, err)
	}
	return stats, nil
}

func (s *Syncer) progress(name string) func(*reconciler.SyncStats) {
	if s.Progress == nil {
		return nil
	}
	return func(stats *reconciler.SyncStats) {
		s.Progress(name, stats)
	}
}

// SyncOptions selects what Application.Sync does.
type SyncOptions struct {
	// Feeds to sync; empty means all configured feeds in file order.
	Feeds []string

	// DryRun computes the changes without writing them.
	DryRun bool
}

// SyncAll syncs the selected feeds one after another. A failing feed does
// not stop the others; the returned error reports how many failed.
func (s *Syncer) SyncAll(ctx context.Context, opts SyncOptions) ([]formatting.SyncResult, error) {
	names := opts.Feeds
	if len(names) == 0 {
		names = s.settings.FeedNames()
	}
	for _, name := range names {
		if _, ok := s.settings.Feed(name); !ok {
			return nil, fmt.Errorf("unknown feed %q", name)
		}
	}

	results := make([]formatting.SyncResult, 0, len(names))
	failed := 0

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		def, _ := s.settings.Feed(name)
		start := time.Now()

		var stats reconciler.SyncStats
		var err error
		if opts.DryRun {
			stats, err = s.DryRun(ctx, name)
		} else {
			stats, err = s.SyncFeed(ctx, name)
		}

		result := formatting.SyncResult{
			Feed:     name,
			Parent:   def.Parent,
			Stats:    stats,
			DryRun:   opts.DryRun,
			Duration: time.Since(start),
		}
		if err != nil {
			failed++
			result.Error = err.Error()
			logging.Error("Syncer", err, "Sync of feed %s failed", name)
		} else {
			logging.Info("Syncer", "Feed %s: %d created, %d updated, %d deleted, %d unchanged",
				name, stats.Created, stats.Updated, stats.Deleted, stats.Skipped)
		}
		results = append(results, result)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d feeds failed", failed, len(names))
	}
	return results, nil
}
