package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blocksync/internal/blocktree"
	"blocksync/internal/pacing"
)

// =============================================================================
// MockAdapter - Recording block tree adapter shared by reconciler tests
// =============================================================================

// AdapterCall records one adapter invocation.
type AdapterCall struct {
	Method string
	Target string
	Text   string
}

// MockAdapter implements blocktree.Adapter over an in-process tree and records
// every call made against it.
type MockAdapter struct {
	mu sync.Mutex

	children map[string][]blocktree.Node
	nextID   int

	Calls []AdapterCall

	// Configurable errors for testing error paths
	GetChildrenError error
	CreateError      error
	UpdateError      error
	DeleteError      error

	// FailAfter makes every mutation after the given count fail with
	// MutationError. Zero disables it.
	FailAfter     int
	MutationError error
	mutations     int
}

// NewMockAdapter creates an empty mock adapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{children: make(map[string][]blocktree.Node)}
}

// Seed places nodes directly under parent without recording calls.
func (m *MockAdapter) Seed(parent string, nodes ...blocktree.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[parent] = append(m.children[parent], nodes...)
}

func (m *MockAdapter) GetChildren(ctx context.Context, parent string) ([]blocktree.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, AdapterCall{Method: "GetChildren", Target: parent})
	if m.GetChildrenError != nil {
		return nil, m.GetChildrenError
	}
	return cloneNodes(m.children[parent]), nil
}

func (m *MockAdapter) CreateBlock(ctx context.Context, parent string, payload blocktree.Payload, position int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, AdapterCall{Method: "CreateBlock", Target: parent, Text: payload.Text})
	if err := m.mutationErr(m.CreateError); err != nil {
		return "", err
	}

	node := m.build(payload)
	if host, ok := m.find(parent); ok {
		host.Children = append(host.Children, node)
	} else {
		m.children[parent] = append(m.children[parent], node)
	}
	return node.UID, nil
}

func (m *MockAdapter) UpdateBlock(ctx context.Context, uid, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, AdapterCall{Method: "UpdateBlock", Target: uid, Text: text})
	if err := m.mutationErr(m.UpdateError); err != nil {
		return err
	}

	node, ok := m.find(uid)
	if !ok {
		return blocktree.ErrNodeNotFound
	}
	node.Text = text
	return nil
}

func (m *MockAdapter) DeleteBlock(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, AdapterCall{Method: "DeleteBlock", Target: uid})
	if err := m.mutationErr(m.DeleteError); err != nil {
		return err
	}

	for parent, nodes := range m.children {
		if rest, ok := removeNode(nodes, uid); ok {
			m.children[parent] = rest
			return nil
		}
	}
	return blocktree.ErrNodeNotFound
}

// CallsTo returns the recorded calls of one method.
func (m *MockAdapter) CallsTo(method string) []AdapterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AdapterCall
	for _, c := range m.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// MutationCount returns the number of create, update and delete calls.
func (m *MockAdapter) MutationCount() int {
	return len(m.CallsTo("CreateBlock")) + len(m.CallsTo("UpdateBlock")) + len(m.CallsTo("DeleteBlock"))
}

// ResetCalls clears the call log.
func (m *MockAdapter) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

func (m *MockAdapter) mutationErr(configured error) error {
	if configured != nil {
		return configured
	}
	m.mutations++
	if m.FailAfter > 0 && m.mutations > m.FailAfter {
		return m.MutationError
	}
	return nil
}

func (m *MockAdapter) build(p blocktree.Payload) blocktree.Node {
	m.nextID++
	node := blocktree.Node{UID: fmt.Sprintf("uid-%d", m.nextID), Text: p.Text}
	for _, c := range p.Children {
		node.Children = append(node.Children, m.build(c))
	}
	return node
}

func (m *MockAdapter) find(uid string) (*blocktree.Node, bool) {
	for parent := range m.children {
		if n, ok := findIn(m.children[parent], uid); ok {
			return n, true
		}
	}
	return nil, false
}

func findIn(nodes []blocktree.Node, uid string) (*blocktree.Node, bool) {
	for i := range nodes {
		if nodes[i].UID == uid {
			return &nodes[i], true
		}
		if n, ok := findIn(nodes[i].Children, uid); ok {
			return n, true
		}
	}
	return nil, false
}

func removeNode(nodes []blocktree.Node, uid string) ([]blocktree.Node, bool) {
	for i := range nodes {
		if nodes[i].UID == uid {
			return append(nodes[:i:i], nodes[i+1:]...), true
		}
		if rest, ok := removeNode(nodes[i].Children, uid); ok {
			nodes[i].Children = rest
			return nodes, true
		}
	}
	return nodes, false
}

func cloneNodes(nodes []blocktree.Node) []blocktree.Node {
	if nodes == nil {
		return nil
	}
	out := make([]blocktree.Node, len(nodes))
	for i, n := range nodes {
		out[i] = blocktree.Node{UID: n.UID, Text: n.Text, Children: cloneNodes(n.Children)}
	}
	return out
}

// =============================================================================
// Pacing and logging helpers
// =============================================================================

// recordingSleep collects requested delays instead of waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *recordingSleep) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

// countingYielder counts yields.
type countingYielder struct {
	mu    sync.Mutex
	count int
}

func (y *countingYielder) Yield(context.Context) {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.count++
}

func (y *countingYielder) Count() int {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.count
}

var _ pacing.Yielder = (*countingYielder)(nil)

// recordingLogger collects emitted event names.
type recordingLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingLogger) Debug(event string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingLogger) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// =============================================================================
// MockFeedSyncer - FeedSyncer for manager tests
// =============================================================================

// MockFeedSyncer implements FeedSyncer with per-feed scripted results.
type MockFeedSyncer struct {
	mu sync.Mutex

	// Errors holds the errors returned on successive calls per feed. Once
	// exhausted the call succeeds.
	Errors map[string][]error

	// Stats is returned on success.
	Stats SyncStats

	calls map[string]int
}

// NewMockFeedSyncer creates a syncer that always succeeds.
func NewMockFeedSyncer() *MockFeedSyncer {
	return &MockFeedSyncer{
		Errors: make(map[string][]error),
		calls:  make(map[string]int),
	}
}

func (m *MockFeedSyncer) SyncFeed(ctx context.Context, feed string) (SyncStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.calls[feed]
	m.calls[feed] = n + 1
	if errs := m.Errors[feed]; n < len(errs) && errs[n] != nil {
		return SyncStats{}, errs[n]
	}
	return m.Stats, nil
}

// CallCount returns how many passes ran for feed.
func (m *MockFeedSyncer) CallCount(feed string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[feed]
}
