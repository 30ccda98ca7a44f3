package reconciler

import (
	"context"
	"time"

	"blocksync/internal/blocktree"
	"blocksync/internal/pacing"
)

// TreeConfig is the strategy a TreeReconciler runs with. The function fields
// are pure and supplied by the caller; the optional ones may be nil.
type TreeConfig[T any] struct {
	// ExtractID returns the stable identifier of a source item.
	ExtractID func(item T) string

	// BuildBlock returns the desired payload for a source item.
	BuildBlock func(item T) blocktree.Payload

	// ExtractIDFromBlock recovers the identifier from an existing node.
	// Returning false means the node is not managed by this reconciliation:
	// it is never matched, updated or deleted.
	ExtractIDFromBlock func(node blocktree.Node) (string, bool)

	// PreserveWhen keeps an orphaned node in place instead of deleting it.
	PreserveWhen func(node blocktree.Node) bool

	// OnProgress is called after every item, skips included. It receives a
	// pointer to the live counters of the running pass, not a snapshot: the
	// values keep changing after the callback returns.
	OnProgress func(stats *SyncStats)

	// Properties, when set, syncs the children of updated blocks.
	Properties *PropertyReconciler

	// MutationDelay is waited after every mutation. Zero selects
	// pacing.DefaultMutationDelay, pacing.NoDelay disables it.
	MutationDelay time.Duration

	// YieldBatchSize is the number of item-level operations between yields.
	// Zero selects pacing.DefaultYieldBatchSize.
	YieldBatchSize int

	// Yielder overrides the yield implementation.
	Yielder pacing.Yielder

	// Sleep overrides the delay implementation.
	Sleep pacing.SleepFunc

	// Logger receives lifecycle events.
	Logger EventLogger
}

// TreeReconciler makes the top-level children of a parent block reflect a
// list of source items with the fewest create, update and delete calls.
type TreeReconciler[T any] struct {
	adapter blocktree.Adapter
	config  TreeConfig[T]
	pacer   pacing.Pacer
}

// NewTreeReconciler creates a reconciler for items of type T.
func NewTreeReconciler[T any](adapter blocktree.Adapter, config TreeConfig[T]) *TreeReconciler[T] {
	return &TreeReconciler[T]{
		adapter: adapter,
		config:  config,
		pacer: pacing.New(pacing.Options{
			MutationDelay:  config.MutationDelay,
			YieldBatchSize: config.YieldBatchSize,
			Yielder:        config.Yielder,
			Sleep:          config.Sleep,
		}),
	}
}

// Reconcile runs one pass over parent.
//
// The children of parent are read once; that read stays authoritative for
// the whole pass. Items are processed in order, then unmatched managed nodes
// are deleted unless preserved. Mutations run strictly one after another.
//
// There is no retry. The first adapter error aborts the pass and is returned
// as is, together with the counters reached so far; completed mutations are
// not rolled back.
func (r *TreeReconciler[T]) Reconcile(ctx context.Context, parent string, items []T) (SyncStats, error) {
	stats := &SyncStats{Total: len(items)}

	emit(r.config.Logger, "sync.start", map[string]any{"parent": parent, "items": len(items)})

	existing, err := r.adapter.GetChildren(ctx, parent)
	if err != nil {
		return *stats, err
	}

	// Later duplicates overwrite earlier ones; order keeps first-seen
	// positions so orphan deletion is deterministic.
	byID := make(map[string]blocktree.Node, len(existing))
	order := make([]string, 0, len(existing))
	for _, node := range existing {
		id, ok := r.config.ExtractIDFromBlock(node)
		if !ok {
			continue
		}
		if _, dup := byID[id]; !dup {
			order = append(order, id)
		}
		byID[id] = node
	}

	seen := make(map[string]struct{}, len(items))
	ops := 0

	for _, item := range items {
		id := r.config.ExtractID(item)
		seen[id] = struct{}{}

		desired := r.config.BuildBlock(item)

		if node, ok := byID[id]; ok {
			if blocktree.Equal(node, desired) {
				stats.Skipped++
				emit(r.config.Logger, "item.skip", map[string]any{"id": id, "uid": node.UID})
			} else {
				if err := r.update(ctx, node, desired); err != nil {
					return *stats, err
				}
				stats.Updated++
				emit(r.config.Logger, "item.update", map[string]any{"id": id, "uid": node.UID})
			}
		} else {
			uid, err := r.adapter.CreateBlock(ctx, parent, desired, blocktree.PositionLast)
			if err != nil {
				return *stats, err
			}
			stats.Created++
			if err := r.pacer.AfterMutation(ctx); err != nil {
				return *stats, err
			}
			emit(r.config.Logger, "item.create", map[string]any{"id": id, "uid": uid})
		}

		ops++
		r.pacer.YieldIfDue(ctx, ops)

		if r.config.OnProgress != nil {
			r.config.OnProgress(stats)
		}
	}

	for _, id := range order {
		if _, ok := seen[id]; ok {
			continue
		}
		node := byID[id]

		if r.config.PreserveWhen != nil && r.config.PreserveWhen(node) {
			emit(r.config.Logger, "orphan.preserve", map[string]any{"id": id, "uid": node.UID})
			continue
		}

		if err := r.adapter.DeleteBlock(ctx, node.UID); err != nil {
			return *stats, err
		}
		stats.Deleted++
		if err := r.pacer.AfterMutation(ctx); err != nil {
			return *stats, err
		}
		emit(r.config.Logger, "orphan.delete", map[string]any{"id": id, "uid": node.UID})

		ops++
		r.pacer.YieldIfDue(ctx, ops)
	}

	emit(r.config.Logger, "sync.complete", map[string]any{
		"parent":  parent,
		"total":   stats.Total,
		"skipped": stats.Skipped,
		"created": stats.Created,
		"updated": stats.Updated,
		"deleted": stats.Deleted,
	})

	return *stats, nil
}

// update brings a matched node in line with its payload: text first, then
// the children through the property reconciler, diffed against the node's
// own fetched children.
func (r *TreeReconciler[T]) update(ctx context.Context, node blocktree.Node, desired blocktree.Payload) error {
	if node.Text != desired.Text {
		if err := r.adapter.UpdateBlock(ctx, node.UID, desired.Text); err != nil {
			return err
		}
		if err := r.pacer.AfterMutation(ctx); err != nil {
			return err
		}
	}

	if r.config.Properties != nil && len(desired.Children) > 0 {
		if _, err := r.config.Properties.SyncChildren(ctx, node.UID, node.Children, desired.Children); err != nil {
			return err
		}
	}

	return nil
}

func emit(logger EventLogger, event string, data map[string]any) {
	if logger == nil {
		return
	}
	logger.Debug(event, data)
}
