package reconciler

import (
	"context"
	"time"

	"blocksync/internal/blocktree"
	"blocksync/internal/pacing"
)

// PropertyConfig is the strategy a PropertyReconciler runs with.
type PropertyConfig struct {
	// ExtractKey returns the property key of a property-shaped text
	// (for example "key:: value"), or false for any other text.
	ExtractKey func(text string) (string, bool)

	// IsSpecialBlock marks children that are replaced wholesale instead of
	// diffed. Optional.
	IsSpecialBlock func(text string) bool

	// MutationDelay is waited around every mutation. Zero selects
	// pacing.DefaultMutationDelay, pacing.NoDelay disables it.
	MutationDelay time.Duration

	// Yielder overrides the yield implementation. The batch size is always
	// pacing.DefaultYieldBatchSize.
	Yielder pacing.Yielder

	// Sleep overrides the delay implementation.
	Sleep pacing.SleepFunc

	// Logger receives lifecycle events.
	Logger EventLogger
}

// PropertyReconciler syncs the flat set of property children under one block,
// matching them by key rather than by position.
type PropertyReconciler struct {
	adapter blocktree.Adapter
	config  PropertyConfig
	pacer   pacing.Pacer
}

// NewPropertyReconciler creates a property reconciler.
func NewPropertyReconciler(adapter blocktree.Adapter, config PropertyConfig) *PropertyReconciler {
	return &PropertyReconciler{
		adapter: adapter,
		config:  config,
		pacer: pacing.New(pacing.Options{
			MutationDelay: config.MutationDelay,
			Yielder:       config.Yielder,
			Sleep:         config.Sleep,
		}),
	}
}

// SyncChildren reconciles existing children of parentUID against desired.
//
//   - keyed children are skipped when their text is identical, updated when
//     it differs and created when the key is missing
//   - a desired special child deletes every tracked special child and is
//     then created afresh
//   - desired children that are neither keyed nor special are ignored
//   - existing keyed children whose key is not desired are deleted
//
// Existing children that have no key and are not special are never touched.
// Duplicate desired keys are not collapsed: the second occurrence no longer
// finds its key and creates another child.
func (r *PropertyReconciler) SyncChildren(ctx context.Context, parentUID string, existing []blocktree.Node, desired []blocktree.Payload) (ChildSyncStats, error) {
	var stats ChildSyncStats

	emit(r.config.Logger, "children.start", map[string]any{
		"parent":   parentUID,
		"existing": len(existing),
		"desired":  len(desired),
	})

	byKey := make(map[string]blocktree.Node, len(existing))
	keyOrder := make([]string, 0, len(existing))
	var special []blocktree.Node

	for _, node := range existing {
		if key, ok := r.config.ExtractKey(node.Text); ok {
			if _, dup := byKey[key]; !dup {
				keyOrder = append(keyOrder, key)
			}
			byKey[key] = node
			continue
		}
		if r.isSpecial(node.Text) {
			special = append(special, node)
		}
	}

	ops := 0
	for _, child := range desired {
		key, keyed := r.config.ExtractKey(child.Text)

		switch {
		case keyed:
			if node, ok := byKey[key]; ok {
				if node.Text == child.Text {
					stats.Skipped++
					emit(r.config.Logger, "child.skip", map[string]any{"key": key, "uid": node.UID})
				} else {
					if err := r.adapter.UpdateBlock(ctx, node.UID, child.Text); err != nil {
						return stats, err
					}
					stats.Updated++
					if err := r.pacer.AfterMutation(ctx); err != nil {
						return stats, err
					}
					emit(r.config.Logger, "child.update", map[string]any{"key": key, "uid": node.UID})
				}
				delete(byKey, key)
			} else {
				uid, err := r.adapter.CreateBlock(ctx, parentUID, child, blocktree.PositionLast)
				if err != nil {
					return stats, err
				}
				stats.Created++
				if err := r.pacer.AfterMutation(ctx); err != nil {
					return stats, err
				}
				emit(r.config.Logger, "child.create", map[string]any{"key": key, "uid": uid})
			}

		case r.isSpecial(child.Text):
			emit(r.config.Logger, "child.special.replace", map[string]any{
				"parent":   parentUID,
				"replaced": len(special),
			})
			for _, node := range special {
				if err := r.adapter.DeleteBlock(ctx, node.UID); err != nil {
					return stats, err
				}
				stats.Deleted++
				if err := r.pacer.AfterMutation(ctx); err != nil {
					return stats, err
				}
			}
			special = nil

			uid, err := r.adapter.CreateBlock(ctx, parentUID, child, blocktree.PositionLast)
			if err != nil {
				return stats, err
			}
			stats.Created++
			if err := r.pacer.AfterMutation(ctx); err != nil {
				return stats, err
			}
			emit(r.config.Logger, "child.special.create", map[string]any{"uid": uid})
		}

		ops++
		r.pacer.YieldIfDue(ctx, ops)
	}

	for _, key := range keyOrder {
		node, ok := byKey[key]
		if !ok {
			continue
		}
		if err := r.pacer.AfterMutation(ctx); err != nil {
			return stats, err
		}
		if err := r.adapter.DeleteBlock(ctx, node.UID); err != nil {
			return stats, err
		}
		stats.Deleted++
		emit(r.config.Logger, "child.delete", map[string]any{"key": key, "uid": node.UID})

		ops++
		r.pacer.YieldIfDue(ctx, ops)
	}

	emit(r.config.Logger, "children.complete", map[string]any{
		"parent":  parentUID,
		"skipped": stats.Skipped,
		"updated": stats.Updated,
		"created": stats.Created,
		"deleted": stats.Deleted,
	})

	return stats, nil
}

func (r *PropertyReconciler) isSpecial(text string) bool {
	return r.config.IsSpecialBlock != nil && r.config.IsSpecialBlock(text)
}
