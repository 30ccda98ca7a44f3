// Package reconciler keeps a block tree in line with a list of source items.
//
// # Overview
//
// The package has two layers. The core is a pair of single-pass reconcilers
// that compute and apply the difference between desired and existing state.
// Around it sits a Manager that keeps named feeds continuously in sync.
//
// # Core
//
//   - TreeReconciler: matches source items to the top-level children of a
//     parent block by identifier and creates, updates, skips or deletes
//   - PropertyReconciler: matches the property children of one block by
//     key and replaces special blocks wholesale
//
// Both read the existing children once per pass and run mutations strictly one
// after another, pausing after each one and yielding every few operations
// (see package pacing). A pass never retries. The first backend error aborts
// it and is returned unchanged, together with the counters reached so far.
//
// Example usage:
//
//	r := reconciler.NewTreeReconciler(adapter, reconciler.TreeConfig[Task]{
//	    ExtractID:          func(t Task) string { return t.ID },
//	    BuildBlock:         buildTaskBlock,
//	    ExtractIDFromBlock: idFromMarker,
//	})
//	stats, err := r.Reconcile(ctx, "Tasks", tasks)
//
// # Continuous sync
//
// The Manager watches feed source files through a ChangeDetector, queues one
// request per changed feed, and hands it to a FeedSyncer. Failed passes are
// retried with exponential backoff; status and metrics are kept per feed.
//
//	manager := reconciler.NewManager(config, syncer)
//	if err := manager.RegisterFeed("tasks", "feeds/tasks.yaml"); err != nil {
//	    return err
//	}
//	if err := manager.Start(ctx); err != nil {
//	    return fmt.Errorf("failed to start sync manager: %w", err)
//	}
//	defer manager.Stop()
package reconciler
