package storage

import (
	"context"
	"fmt"
	"time"
)

type CompletionRepo struct {
	db Querier
}

func NewCompletionRepo(db Querier) *CompletionRepo {
	return &CompletionRepo{db: db}
}

func (r *CompletionRepo) Insert(ctx context.Context, nodeID, treeID string, completedAt time.Time, xpAwarded int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO node_completions (node_id, tree_id, completed_at, xp_awarded)
		VALUES (?, ?, ?, ?)
	`, nodeID, treeID, completedAt, xpAwarded)
	if err != nil {
		return 0, fmt.Errorf("completion insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("completion last insert id: %w", err)
	}
	return id, nil
}

func (r *CompletionRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM node_completions
		WHERE completed_at >= ?
	`, since)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("completion count: %w", err)
	}
	return n, nil
}

// Recent returns the latest completions, newest first.
func (r *CompletionRepo) Recent(ctx context.Context, limit int) ([]NodeCompletion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, node_id, tree_id, completed_at, xp_awarded
		FROM node_completions
		ORDER BY completed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("completion recent: %w", err)
	}
	defer rows.Close()

	var out []NodeCompletion
	for rows.Next() {
		var c NodeCompletion
		if err := rows.Scan(&c.ID, &c.NodeID, &c.TreeID, &c.CompletedAt, &c.XPAwarded); err != nil {
			return nil, fmt.Errorf("completion scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("completion rows: %w", err)
	}
	return out, nil
}
