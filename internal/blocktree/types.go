// Package blocktree defines the data model shared by the reconciliation core
// and the block store backends: desired payloads, existing nodes, and the
// Adapter contract every backend implements.
package blocktree

import (
	"context"
	"errors"
)

// PositionLast appends a created block after its last sibling.
const PositionLast = -1

// ErrNodeNotFound is returned by adapters when a uid does not exist.
var ErrNodeNotFound = errors.New("block not found")

// Payload is the desired state of a block. It carries no identity; identity
// is recovered from Text by the caller's extraction functions.
type Payload struct {
	Text     string    `json:"text" yaml:"text"`
	Children []Payload `json:"children,omitempty" yaml:"children,omitempty"`
}

// Node is a block as it exists in a backend. UID is the only handle valid for
// mutation. Text may be empty.
type Node struct {
	UID      string `json:"uid" yaml:"uid"`
	Text     string `json:"text" yaml:"text"`
	Children []Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Adapter is the contract between the reconciliation core and a concrete
// block store.
type Adapter interface {
	// GetChildren returns one level of children under parent. Each returned
	// node already carries its own descendants, to arbitrary depth.
	GetChildren(ctx context.Context, parent string) ([]Node, error)

	// CreateBlock creates a block and all of its descendant payloads under
	// parent at position (an index or PositionLast), returning the uid of the
	// new top-level block.
	CreateBlock(ctx context.Context, parent string, payload Payload, position int) (string, error)

	// UpdateBlock replaces the text of an existing block. Children are untouched.
	UpdateBlock(ctx context.Context, uid, text string) error

	// DeleteBlock removes a block and all of its descendants.
	DeleteBlock(ctx context.Context, uid string) error
}

// Count returns the number of nodes in the forest, descendants included.
func Count(nodes []Node) int {
	n := 0
	for _, node := range nodes {
		n += 1 + Count(node.Children)
	}
	return n
}
