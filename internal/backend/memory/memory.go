// Package memory is an in-process block tree.
//
// It backs dry runs and tests. Parents are either page names, which spring
// into existence on first use, or block uids.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"blocksync/internal/blocktree"
)

// Store is a mutex-guarded in-memory block tree.
type Store struct {
	mu    sync.RWMutex
	pages map[string][]*node
	index map[string]*node
}

type node struct {
	uid      string
	text     string
	parent   *node
	page     string
	children []*node
}

// New creates an empty store.
func New() *Store {
	return &Store{
		pages: make(map[string][]*node),
		index: make(map[string]*node),
	}
}

// GetChildren returns the children of a page or block, with their
// descendants.
func (s *Store) GetChildren(ctx context.Context, parent string) ([]blocktree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n, ok := s.index[parent]; ok {
		return snapshot(n.children), nil
	}
	return snapshot(s.pages[parent]), nil
}

// CreateBlock inserts the payload with all its descendants.
func (s *Store) CreateBlock(ctx context.Context, parent string, payload blocktree.Payload, position int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.build(payload)

	if host, ok := s.index[parent]; ok {
		s.adopt(created, host, "")
		host.children = insertAt(host.children, created, position)
	} else {
		s.adopt(created, nil, parent)
		s.pages[parent] = insertAt(s.pages[parent], created, position)
	}
	return created.uid, nil
}

// UpdateBlock replaces the text of a block.
func (s *Store) UpdateBlock(ctx context.Context, uid, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.index[uid]
	if !ok {
		return blocktree.ErrNodeNotFound
	}
	n.text = text
	return nil
}

// DeleteBlock removes a block and its descendants.
func (s *Store) DeleteBlock(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.index[uid]
	if !ok {
		return blocktree.ErrNodeNotFound
	}

	if n.parent != nil {
		n.parent.children = remove(n.parent.children, n)
	} else {
		s.pages[n.page] = remove(s.pages[n.page], n)
	}
	s.forget(n)
	return nil
}

// Len returns the number of blocks in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Pages returns the names of pages that hold blocks.
func (s *Store) Pages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pages []string
	for name, nodes := range s.pages {
		if len(nodes) > 0 {
			pages = append(pages, name)
		}
	}
	return pages
}

// Load places nodes under parent, keeping their uids. It is meant for
// seeding a dry run from another backend's snapshot.
func (s *Store) Load(parent string, nodes []blocktree.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range nodes {
		loaded := s.restore(n)
		if host, ok := s.index[parent]; ok {
			s.adopt(loaded, host, "")
			host.children = append(host.children, loaded)
		} else {
			s.adopt(loaded, nil, parent)
			s.pages[parent] = append(s.pages[parent], loaded)
		}
	}
}

func (s *Store) build(p blocktree.Payload) *node {
	n := &node{uid: uuid.NewString(), text: p.Text}
	s.index[n.uid] = n
	for _, c := range p.Children {
		child := s.build(c)
		child.parent = n
		n.children = append(n.children, child)
	}
	return n
}

func (s *Store) restore(src blocktree.Node) *node {
	uid := src.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	n := &node{uid: uid, text: src.Text}
	s.index[n.uid] = n
	for _, c := range src.Children {
		child := s.restore(c)
		child.parent = n
		n.children = append(n.children, child)
	}
	return n
}

func (s *Store) adopt(n, parent *node, page string) {
	n.parent = parent
	n.page = page
}

func (s *Store) forget(n *node) {
	delete(s.index, n.uid)
	for _, c := range n.children {
		s.forget(c)
	}
}

func insertAt(nodes []*node, n *node, position int) []*node {
	if position < 0 || position >= len(nodes) {
		return append(nodes, n)
	}
	nodes = append(nodes, nil)
	copy(nodes[position+1:], nodes[position:])
	nodes[position] = n
	return nodes
}

func remove(nodes []*node, target *node) []*node {
	for i, n := range nodes {
		if n == target {
			return append(nodes[:i:i], nodes[i+1:]...)
		}
	}
	return nodes
}

func snapshot(nodes []*node) []blocktree.Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]blocktree.Node, len(nodes))
	for i, n := range nodes {
		out[i] = blocktree.Node{UID: n.uid, Text: n.text, Children: snapshot(n.children)}
	}
	return out
}

var _ blocktree.Adapter = (*Store)(nil)
