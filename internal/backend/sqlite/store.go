// Package sqlite stores block trees in a SQLite database.
//
// Every block is one row keyed by its uid. The parent column holds either a
// page name or the uid of the parent block, and siblings are kept densely
// numbered by position.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"blocksync/internal/blocktree"
)

const schema = `
	PRAGMA busy_timeout = 5000;
	PRAGMA foreign_keys = OFF;

	CREATE TABLE IF NOT EXISTS blocks (
		uid TEXT PRIMARY KEY,
		parent TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_blocks_parent ON blocks(parent, position);
`

// Store implements blocktree.Adapter on SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ blocktree.Adapter = (*Store)(nil)

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Mutations are sequential, and an in-memory database only lives on
	// its one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

type row struct {
	uid      string
	parent   string
	position int
	text     string
}

// GetChildren returns the children of parent with all their descendants.
func (s *Store) GetChildren(ctx context.Context, parent string) ([]blocktree.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE tree(uid, parent, position, text) AS (
			SELECT uid, parent, position, text FROM blocks WHERE parent = ?
			UNION ALL
			SELECT b.uid, b.parent, b.position, b.text
			FROM blocks b JOIN tree t ON b.parent = t.uid
		)
		SELECT uid, parent, position, text FROM tree ORDER BY parent, position
	`, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to query children of %s: %w", parent, err)
	}
	defer rows.Close()

	byParent := make(map[string][]row)
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.uid, &r.parent, &r.position, &r.text); err != nil {
			return nil, err
		}
		byParent[r.parent] = append(byParent[r.parent], r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assemble(byParent, parent), nil
}

func assemble(byParent map[string][]row, parent string) []blocktree.Node {
	rows := byParent[parent]
	if len(rows) == 0 {
		return nil
	}
	nodes := make([]blocktree.Node, len(rows))
	for i, r := range rows {
		nodes[i] = blocktree.Node{UID: r.uid, Text: r.text, Children: assemble(byParent, r.uid)}
	}
	return nodes
}

// CreateBlock inserts payload and its descendants under parent in a single
// transaction.
func (s *Store) CreateBlock(ctx context.Context, parent string, payload blocktree.Payload, position int) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks WHERE parent = ?`, parent).Scan(&count); err != nil {
		return "", err
	}

	if position < 0 || position >= count {
		position = count
	} else if _, err := tx.ExecContext(ctx,
		`UPDATE blocks SET position = position + 1 WHERE parent = ? AND position >= ?`,
		parent, position); err != nil {
		return "", err
	}

	uid, err := insert(ctx, tx, parent, position, payload)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return uid, nil
}

func insert(ctx context.Context, tx *sql.Tx, parent string, position int, p blocktree.Payload) (string, error) {
	uid := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO blocks (uid, parent, position, text) VALUES (?, ?, ?, ?)`,
		uid, parent, position, p.Text); err != nil {
		return "", fmt.Errorf("failed to insert block: %w", err)
	}
	for i, child := range p.Children {
		if _, err := insert(ctx, tx, uid, i, child); err != nil {
			return "", err
		}
	}
	return uid, nil
}

// UpdateBlock replaces the text of a block.
func (s *Store) UpdateBlock(ctx context.Context, uid, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE blocks SET text = ? WHERE uid = ?`, text, uid)
	if err != nil {
		return fmt.Errorf("failed to update block %s: %w", uid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return blocktree.ErrNodeNotFound
	}
	return nil
}

// DeleteBlock removes a block with its descendants and closes the gap in
// its siblings' positions.
func (s *Store) DeleteBlock(ctx context.Context, uid string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var parent string
	var position int
	err = tx.QueryRowContext(ctx, `SELECT parent, position FROM blocks WHERE uid = ?`, uid).Scan(&parent, &position)
	if errors.Is(err, sql.ErrNoRows) {
		return blocktree.ErrNodeNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		WITH RECURSIVE sub(uid) AS (
			SELECT ?
			UNION ALL
			SELECT b.uid FROM blocks b JOIN sub ON b.parent = sub.uid
		)
		DELETE FROM blocks WHERE uid IN (SELECT uid FROM sub)
	`, uid); err != nil {
		return fmt.Errorf("failed to delete block %s: %w", uid, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE blocks SET position = position - 1 WHERE parent = ? AND position > ?`,
		parent, position); err != nil {
		return err
	}

	return tx.Commit()
}

// Len returns the number of stored blocks.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&n)
	return n, err
}
