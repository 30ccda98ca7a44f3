package reconciler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocksync/internal/blocktree"
	"blocksync/internal/pacing"
)

func isSpecialNotes(text string) bool {
	return strings.HasPrefix(text, "#+BEGIN_NOTES")
}

func testPropertyConfig() PropertyConfig {
	return PropertyConfig{
		ExtractKey:     propertyKey,
		IsSpecialBlock: isSpecialNotes,
		MutationDelay:  pacing.NoDelay,
	}
}

func payloads(texts ...string) []blocktree.Payload {
	out := make([]blocktree.Payload, len(texts))
	for i, text := range texts {
		out[i] = blocktree.Payload{Text: text}
	}
	return out
}

func TestPropertyReconciler_UpdatesChangedValue(t *testing.T) {
	adapter := NewMockAdapter()
	r := NewPropertyReconciler(adapter, testPropertyConfig())

	existing := []blocktree.Node{{UID: "p1", Text: "priority:: low"}}
	stats, err := r.SyncChildren(context.Background(), "parent", existing, payloads("priority:: high"))
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{Updated: 1}, stats)
	assert.Equal(t, []AdapterCall{{Method: "UpdateBlock", Target: "p1", Text: "priority:: high"}}, adapter.Calls)
}

func TestPropertyReconciler_KeyConvergence(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		desired  []string
		expected ChildSyncStats
	}{
		{
			name:     "all new",
			desired:  []string{"a:: 1", "b:: 2"},
			expected: ChildSyncStats{Created: 2},
		},
		{
			name:     "all identical",
			existing: []string{"a:: 1", "b:: 2"},
			desired:  []string{"a:: 1", "b:: 2"},
			expected: ChildSyncStats{Skipped: 2},
		},
		{
			name:     "mixed",
			existing: []string{"a:: 1", "b:: 2", "c:: 3"},
			desired:  []string{"a:: 1", "b:: 20", "d:: 4"},
			expected: ChildSyncStats{Skipped: 1, Updated: 1, Created: 1, Deleted: 1},
		},
		{
			name:     "all removed",
			existing: []string{"a:: 1", "b:: 2"},
			expected: ChildSyncStats{Deleted: 2},
		},
		{
			name:     "order independent",
			existing: []string{"b:: 2", "a:: 1"},
			desired:  []string{"a:: 1", "b:: 2"},
			expected: ChildSyncStats{Skipped: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewMockAdapter()
			r := NewPropertyReconciler(adapter, testPropertyConfig())

			var existing []blocktree.Node
			for i, text := range tt.existing {
				existing = append(existing, blocktree.Node{UID: string(rune('m' + i)), Text: text})
			}

			stats, err := r.SyncChildren(context.Background(), "parent", existing, payloads(tt.desired...))
			require.NoError(t, err)

			assert.Equal(t, tt.expected, stats)
			assert.Equal(t, len(tt.desired), stats.Created+stats.Updated+stats.Skipped)
		})
	}
}

func TestPropertyReconciler_DeletesRemainingKeysInOrder(t *testing.T) {
	adapter := NewMockAdapter()
	r := NewPropertyReconciler(adapter, testPropertyConfig())

	existing := []blocktree.Node{
		{UID: "x", Text: "x:: 1"},
		{UID: "keep", Text: "keep:: yes"},
		{UID: "y", Text: "y:: 2"},
	}
	stats, err := r.SyncChildren(context.Background(), "parent", existing, payloads("keep:: yes"))
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{Skipped: 1, Deleted: 2}, stats)
	deletes := adapter.CallsTo("DeleteBlock")
	require.Len(t, deletes, 2)
	assert.Equal(t, "x", deletes[0].Target)
	assert.Equal(t, "y", deletes[1].Target)
}

func TestPropertyReconciler_SpecialBlockReplacedWholesale(t *testing.T) {
	adapter := NewMockAdapter()
	r := NewPropertyReconciler(adapter, testPropertyConfig())

	existing := []blocktree.Node{
		{UID: "s1", Text: "#+BEGIN_NOTES old"},
		{UID: "k", Text: "status:: open"},
		{UID: "s2", Text: "#+BEGIN_NOTES stray copy"},
	}
	desired := []blocktree.Payload{
		{Text: "status:: open"},
		{Text: "#+BEGIN_NOTES new", Children: payloads("line one", "line two")},
	}

	stats, err := r.SyncChildren(context.Background(), "parent", existing, desired)
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{Skipped: 1, Deleted: 2, Created: 1}, stats)

	deletes := adapter.CallsTo("DeleteBlock")
	require.Len(t, deletes, 2)
	assert.Equal(t, "s1", deletes[0].Target)
	assert.Equal(t, "s2", deletes[1].Target)

	creates := adapter.CallsTo("CreateBlock")
	require.Len(t, creates, 1)
	assert.Equal(t, AdapterCall{Method: "CreateBlock", Target: "parent", Text: "#+BEGIN_NOTES new"}, creates[0])
}

func TestPropertyReconciler_SpecialBlockWithoutExisting(t *testing.T) {
	adapter := NewMockAdapter()
	r := NewPropertyReconciler(adapter, testPropertyConfig())

	stats, err := r.SyncChildren(context.Background(), "parent", nil, payloads("#+BEGIN_NOTES fresh"))
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{Created: 1}, stats)
}

func TestPropertyReconciler_InvisibleChildrenUntouched(t *testing.T) {
	adapter := NewMockAdapter()
	r := NewPropertyReconciler(adapter, testPropertyConfig())

	existing := []blocktree.Node{
		{UID: "free", Text: "just some text"},
		{UID: "k", Text: "a:: 1"},
	}
	stats, err := r.SyncChildren(context.Background(), "parent", existing, payloads("a:: 1", "plain desired text"))
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{Skipped: 1}, stats)
	assert.Equal(t, 0, adapter.MutationCount(), "plain desired text is ignored and plain existing text is kept")
}

func TestPropertyReconciler_NilSpecialPredicate(t *testing.T) {
	adapter := NewMockAdapter()
	r := NewPropertyReconciler(adapter, PropertyConfig{ExtractKey: propertyKey, MutationDelay: pacing.NoDelay})

	existing := []blocktree.Node{{UID: "s", Text: "#+BEGIN_NOTES old"}}
	stats, err := r.SyncChildren(context.Background(), "parent", existing, payloads("#+BEGIN_NOTES new"))
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{}, stats)
	assert.Equal(t, 0, adapter.MutationCount())
}

func TestPropertyReconciler_DuplicateDesiredKeysCreateAgain(t *testing.T) {
	adapter := NewMockAdapter()
	r := NewPropertyReconciler(adapter, testPropertyConfig())

	existing := []blocktree.Node{{UID: "t", Text: "tag:: work"}}
	stats, err := r.SyncChildren(context.Background(), "parent", existing, payloads("tag:: work", "tag:: home"))
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{Skipped: 1, Created: 1}, stats)
}

func TestPropertyReconciler_DuplicateExistingKeysLastWins(t *testing.T) {
	adapter := NewMockAdapter()
	r := NewPropertyReconciler(adapter, testPropertyConfig())

	existing := []blocktree.Node{
		{UID: "older", Text: "tag:: a"},
		{UID: "newer", Text: "tag:: b"},
	}
	stats, err := r.SyncChildren(context.Background(), "parent", existing, payloads("tag:: c"))
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{Updated: 1}, stats)
	updates := adapter.CallsTo("UpdateBlock")
	require.Len(t, updates, 1)
	assert.Equal(t, "newer", updates[0].Target)
	assert.Empty(t, adapter.CallsTo("DeleteBlock"), "the shadowed duplicate is not tracked")
}

func TestPropertyReconciler_ErrorPropagatesUnwrapped(t *testing.T) {
	errUpdate := errors.New("update refused")

	adapter := NewMockAdapter()
	adapter.UpdateError = errUpdate
	r := NewPropertyReconciler(adapter, testPropertyConfig())

	existing := []blocktree.Node{
		{UID: "a", Text: "a:: 1"},
		{UID: "b", Text: "b:: 1"},
	}
	stats, err := r.SyncChildren(context.Background(), "parent", existing, payloads("a:: 2", "b:: 2"))

	assert.Same(t, errUpdate, err)
	assert.Equal(t, ChildSyncStats{}, stats)
	assert.Len(t, adapter.CallsTo("UpdateBlock"), 1)
	assert.Empty(t, adapter.CallsTo("DeleteBlock"))
}

func TestPropertyReconciler_Pacing(t *testing.T) {
	adapter := NewMockAdapter()
	sleep := &recordingSleep{}
	yielder := &countingYielder{}
	r := NewPropertyReconciler(adapter, PropertyConfig{
		ExtractKey:    propertyKey,
		MutationDelay: 5,
		Sleep:         sleep.Sleep,
		Yielder:       yielder,
	})

	existing := []blocktree.Node{
		{UID: "a", Text: "a:: 1"},
		{UID: "b", Text: "b:: 1"},
		{UID: "z", Text: "z:: 1"},
	}
	stats, err := r.SyncChildren(context.Background(), "parent", existing,
		payloads("a:: 1", "b:: 2", "c:: 1", "ignored text", "d:: 1"))
	require.NoError(t, err)

	assert.Equal(t, ChildSyncStats{Skipped: 1, Updated: 1, Created: 2, Deleted: 1}, stats)

	// Delays only around the four mutations.
	assert.Equal(t, 4, sleep.Count())

	// Five desired children plus one orphan, fixed batch of three.
	assert.Equal(t, 2, yielder.Count())
}

func TestPropertyReconciler_EmitsEvents(t *testing.T) {
	adapter := NewMockAdapter()
	logger := &recordingLogger{}
	cfg := testPropertyConfig()
	cfg.Logger = logger
	r := NewPropertyReconciler(adapter, cfg)

	existing := []blocktree.Node{
		{UID: "a", Text: "a:: 1"},
		{UID: "b", Text: "b:: 1"},
		{UID: "s", Text: "#+BEGIN_NOTES"},
		{UID: "z", Text: "z:: 1"},
	}
	_, err := r.SyncChildren(context.Background(), "parent", existing,
		payloads("a:: 1", "b:: 2", "c:: 1", "#+BEGIN_NOTES v2"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"children.start",
		"child.skip",
		"child.update",
		"child.create",
		"child.special.replace",
		"child.special.create",
		"child.delete",
		"children.complete",
	}, logger.Events())
}
