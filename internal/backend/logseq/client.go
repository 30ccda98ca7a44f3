// Package logseq talks to the HTTP API of a running Logseq instance.
//
// Every call is a POST of {"method": ..., "args": [...]} to <endpoint>/api,
// authorised with a bearer token. A parent handle that parses as a uuid is a
// block; anything else is a page name.
package logseq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"blocksync/internal/blocktree"
)

const (
	methodGetPageBlocksTree = "logseq.Editor.getPageBlocksTree"
	methodGetBlock          = "logseq.Editor.getBlock"
	methodAppendBlockInPage = "logseq.Editor.appendBlockInPage"
	methodInsertBlock       = "logseq.Editor.insertBlock"
	methodInsertBatchBlock  = "logseq.Editor.insertBatchBlock"
	methodUpdateBlock       = "logseq.Editor.updateBlock"
	methodRemoveBlock       = "logseq.Editor.removeBlock"

	defaultTimeout = 30 * time.Second
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: server returned status %d: %s", e.Method, e.StatusCode, e.Body)
}

// Client implements blocktree.Adapter over the Logseq HTTP API.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ blocktree.Adapter = (*Client)(nil)

// New creates a client. An empty token sends unauthenticated requests.
func New(endpoint, token string) *Client {
	httpClient := &http.Client{Timeout: defaultTimeout}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(context.Background(), src)
		httpClient.Timeout = defaultTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     httpClient,
	}
}

type request struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// block is the API's BlockEntity, reduced to what the adapter reads.
// Children are either nested entities or ["uuid", id] references when the
// tree was not expanded.
type block struct {
	UUID     string            `json:"uuid"`
	Content  string            `json:"content"`
	Children []json.RawMessage `json:"children,omitempty"`
}

// batchBlock is the API's IBatchBlock.
type batchBlock struct {
	Content  string       `json:"content"`
	Children []batchBlock `json:"children,omitempty"`
}

func (c *Client) call(ctx context.Context, out any, method string, args ...any) error {
	body, err := json.Marshal(request{Method: method, Args: args})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}

func isBlockHandle(parent string) bool {
	_, err := uuid.Parse(parent)
	return err == nil
}

// GetChildren fetches the expanded tree under a page or block. Children the
// API returns as ["uuid", id] references are fetched one by one so the tree
// is always complete.
func (c *Client) GetChildren(ctx context.Context, parent string) ([]blocktree.Node, error) {
	if !isBlockHandle(parent) {
		var blocks []block
		if err := c.call(ctx, &blocks, methodGetPageBlocksTree, parent); err != nil {
			return nil, err
		}
		return c.toNodes(ctx, blocks)
	}

	b, err := c.getBlock(ctx, parent)
	if err != nil {
		return nil, err
	}
	children, err := c.expand(ctx, b.Children)
	if err != nil {
		return nil, err
	}
	return c.toNodes(ctx, children)
}

func (c *Client) getBlock(ctx context.Context, uid string) (*block, error) {
	var b *block
	if err := c.call(ctx, &b, methodGetBlock, uid, map[string]any{"includeChildren": true}); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("block %s: %w", uid, blocktree.ErrNodeNotFound)
	}
	return b, nil
}

// expand decodes raw children, resolving references.
func (c *Client) expand(ctx context.Context, raw []json.RawMessage) ([]block, error) {
	blocks := make([]block, 0, len(raw))
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 {
			continue
		}

		if r[0] == '{' {
			var b block
			if err := json.Unmarshal(r, &b); err != nil {
				return nil, fmt.Errorf("failed to decode child block: %w", err)
			}
			blocks = append(blocks, b)
			continue
		}

		var ref []string
		if err := json.Unmarshal(r, &ref); err != nil || len(ref) != 2 || ref[0] != "uuid" {
			return nil, fmt.Errorf("unexpected child entry %s", string(r))
		}
		b, err := c.getBlock(ctx, ref[1])
		if err != nil {
			return nil, fmt.Errorf("failed to resolve child reference: %w", err)
		}
		blocks = append(blocks, *b)
	}
	return blocks, nil
}

func (c *Client) toNodes(ctx context.Context, blocks []block) ([]blocktree.Node, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	nodes := make([]blocktree.Node, len(blocks))
	for i, b := range blocks {
		if b.UUID == "" {
			return nil, fmt.Errorf("block without uuid in response")
		}
		raw, err := c.expand(ctx, b.Children)
		if err != nil {
			return nil, err
		}
		children, err := c.toNodes(ctx, raw)
		if err != nil {
			return nil, err
		}
		nodes[i] = blocktree.Node{UID: b.UUID, Text: b.Content, Children: children}
	}
	return nodes, nil
}

// CreateBlock inserts the payload at position under parent, then its
// descendants in one batch.
func (c *Client) CreateBlock(ctx context.Context, parent string, payload blocktree.Payload, position int) (string, error) {
	created, err := c.insertTop(ctx, parent, payload.Text, position)
	if err != nil {
		return "", err
	}

	if len(payload.Children) > 0 {
		batch := make([]batchBlock, len(payload.Children))
		for i, child := range payload.Children {
			batch[i] = toBatch(child)
		}
		if err := c.call(ctx, nil, methodInsertBatchBlock, created, batch, map[string]any{"sibling": false}); err != nil {
			return created, err
		}
	}
	return created, nil
}

func (c *Client) insertTop(ctx context.Context, parent, text string, position int) (string, error) {
	var b *block

	if position >= 0 {
		siblings, err := c.GetChildren(ctx, parent)
		if err != nil {
			return "", err
		}
		if position < len(siblings) {
			opts := map[string]any{"sibling": true, "before": true}
			if err := c.call(ctx, &b, methodInsertBlock, siblings[position].UID, text, opts); err != nil {
				return "", err
			}
			return createdUUID(b, methodInsertBlock)
		}
	}

	if isBlockHandle(parent) {
		err := c.call(ctx, &b, methodInsertBlock, parent, text, map[string]any{"sibling": false})
		if err != nil {
			return "", err
		}
		return createdUUID(b, methodInsertBlock)
	}

	if err := c.call(ctx, &b, methodAppendBlockInPage, parent, text); err != nil {
		return "", err
	}
	return createdUUID(b, methodAppendBlockInPage)
}

func createdUUID(b *block, method string) (string, error) {
	if b == nil || b.UUID == "" {
		return "", fmt.Errorf("%s: no block returned", method)
	}
	return b.UUID, nil
}

func toBatch(p blocktree.Payload) batchBlock {
	b := batchBlock{Content: p.Text}
	for _, child := range p.Children {
		b.Children = append(b.Children, toBatch(child))
	}
	return b
}

// UpdateBlock replaces the content of a block.
func (c *Client) UpdateBlock(ctx context.Context, uid, text string) error {
	return c.call(ctx, nil, methodUpdateBlock, uid, text)
}

// DeleteBlock removes a block with its children.
func (c *Client) DeleteBlock(ctx context.Context, uid string) error {
	return c.call(ctx, nil, methodRemoveBlock, uid)
}
