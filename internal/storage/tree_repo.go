package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type TreeRepo struct {
	db Querier
}

func NewTreeRepo(db Querier) *TreeRepo {
	return &TreeRepo{db: db}
}

// Save replaces the stored tree with rec. Branch and node positions are
// taken from their slice order.
func (r *TreeRepo) Save(ctx context.Context, rec TreeRecord) error {
	t := rec.Tree
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trees (id, goal_id, title, generated_at, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			generated_at = excluded.generated_at,
			last_updated = excluded.last_updated
	`, t.ID, t.GoalID, t.Title, t.GeneratedAt, t.LastUpdated)
	if err != nil {
		return fmt.Errorf("tree upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE tree_id = ?`, t.ID); err != nil {
		return fmt.Errorf("tree clear nodes: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM branches WHERE tree_id = ?`, t.ID); err != nil {
		return fmt.Errorf("tree clear branches: %w", err)
	}

	for i, b := range rec.Branches {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO branches (tree_id, id, name, position) VALUES (?, ?, ?, ?)
		`, t.ID, b.ID, b.Name, i); err != nil {
			return fmt.Errorf("branch insert: %w", err)
		}
	}

	for i, n := range rec.Nodes {
		if err := r.insertNode(ctx, t.ID, i, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *TreeRepo) insertNode(ctx context.Context, treeID string, pos int, n Node) error {
	prereqs, err := marshalList(n.Prerequisites)
	if err != nil {
		return err
	}
	criteria, err := marshalList(n.CompletionCriteria)
	if err != nil {
		return err
	}
	stats, err := marshalList(n.LinkedStats)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO nodes (
			id, tree_id, branch_id, position,
			title, description, tier,
			prerequisites, completion_criteria, estimated_hours, xp_value,
			status, linked_stats, completed_at, completion_notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, treeID, n.BranchID, pos, n.Title, n.Description, n.Tier,
		prereqs, criteria, n.EstimatedHours, n.XPValue,
		n.Status, stats, n.CompletedAt, n.CompletionNotes)
	if err != nil {
		return fmt.Errorf("node insert %s: %w", n.ID, err)
	}
	return nil
}

func (r *TreeRepo) Get(ctx context.Context, id string) (*TreeRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, goal_id, title, generated_at, last_updated FROM trees WHERE id = ?
	`, id)
	var t Tree
	if err := row.Scan(&t.ID, &t.GoalID, &t.Title, &t.GeneratedAt, &t.LastUpdated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("tree get: %w", err)
	}
	return r.load(ctx, t)
}

func (r *TreeRepo) List(ctx context.Context) ([]TreeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, goal_id, title, generated_at, last_updated FROM trees ORDER BY generated_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("tree list: %w", err)
	}
	var trees []Tree
	for rows.Next() {
		var t Tree
		if err := rows.Scan(&t.ID, &t.GoalID, &t.Title, &t.GeneratedAt, &t.LastUpdated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("tree scan: %w", err)
		}
		trees = append(trees, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("tree list rows: %w", err)
	}
	rows.Close()

	out := make([]TreeRecord, 0, len(trees))
	for _, t := range trees {
		rec, err := r.load(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r *TreeRepo) load(ctx context.Context, t Tree) (*TreeRecord, error) {
	rec := &TreeRecord{Tree: t}

	brows, err := r.db.QueryContext(ctx, `
		SELECT tree_id, id, name, position FROM branches WHERE tree_id = ? ORDER BY position ASC
	`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("branch list: %w", err)
	}
	for brows.Next() {
		var b Branch
		if err := brows.Scan(&b.TreeID, &b.ID, &b.Name, &b.Position); err != nil {
			brows.Close()
			return nil, fmt.Errorf("branch scan: %w", err)
		}
		rec.Branches = append(rec.Branches, b)
	}
	if err := brows.Err(); err != nil {
		brows.Close()
		return nil, fmt.Errorf("branch rows: %w", err)
	}
	brows.Close()

	nrows, err := r.db.QueryContext(ctx, `
		SELECT id, tree_id, branch_id, position, title, description, tier,
			prerequisites, completion_criteria, estimated_hours, xp_value,
			status, linked_stats, completed_at, completion_notes
		FROM nodes WHERE tree_id = ? ORDER BY position ASC
	`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("node list: %w", err)
	}
	defer nrows.Close()
	for nrows.Next() {
		n, err := scanNode(nrows)
		if err != nil {
			return nil, err
		}
		rec.Nodes = append(rec.Nodes, *n)
	}
	if err := nrows.Err(); err != nil {
		return nil, fmt.Errorf("node rows: %w", err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*Node, error) {
	var (
		n           Node
		desc        sql.NullString
		prereqs     sql.NullString
		criteria    sql.NullString
		stats       sql.NullString
		completedAt sql.NullTime
		notes       sql.NullString
	)
	if err := row.Scan(&n.ID, &n.TreeID, &n.BranchID, &n.Position, &n.Title, &desc, &n.Tier,
		&prereqs, &criteria, &n.EstimatedHours, &n.XPValue,
		&n.Status, &stats, &completedAt, &notes); err != nil {
		return nil, fmt.Errorf("node scan: %w", err)
	}
	n.Description = desc.String
	n.CompletionNotes = notes.String
	if completedAt.Valid {
		v := completedAt.Time
		n.CompletedAt = &v
	}

	var err error
	if n.Prerequisites, err = unmarshalList(prereqs); err != nil {
		return nil, err
	}
	if n.CompletionCriteria, err = unmarshalList(criteria); err != nil {
		return nil, err
	}
	if n.LinkedStats, err = unmarshalList(stats); err != nil {
		return nil, err
	}
	return &n, nil
}

func marshalList(in []string) (*string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal list: %w", err)
	}
	s := string(data)
	return &s, nil
}

func unmarshalList(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}

