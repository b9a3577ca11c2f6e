package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type GoalRepo struct {
	db Querier
}

func NewGoalRepo(db Querier) *GoalRepo {
	return &GoalRepo{db: db}
}

func (r *GoalRepo) Upsert(ctx context.Context, g Goal) error {
	sources, err := marshalList(g.ContextSources)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO goals (id, title, description, timeframe, target_date, status, created_at, context_sources)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			timeframe = excluded.timeframe,
			target_date = excluded.target_date,
			status = excluded.status,
			context_sources = excluded.context_sources
	`, g.ID, g.Title, g.Description, g.Timeframe, g.TargetDate, g.Status, g.CreatedAt, sources)
	if err != nil {
		return fmt.Errorf("goal upsert: %w", err)
	}
	return nil
}

func (r *GoalRepo) Get(ctx context.Context, id string) (*Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, timeframe, target_date, status, created_at, context_sources
		FROM goals WHERE id = ?
	`, id)
	return scanGoal(row)
}

func (r *GoalRepo) List(ctx context.Context) ([]Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, timeframe, target_date, status, created_at, context_sources
		FROM goals
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("goal list: %w", err)
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("goal list rows: %w", err)
	}
	return out, nil
}

// Delete removes the goal; its tree, branches and nodes go with it.
func (r *GoalRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("goal delete: %w", err)
	}
	return nil
}

func scanGoal(row scanner) (*Goal, error) {
	var (
		g       Goal
		desc    sql.NullString
		target  sql.NullTime
		created time.Time
		sources sql.NullString
	)
	if err := row.Scan(&g.ID, &g.Title, &desc, &g.Timeframe, &target, &g.Status, &created, &sources); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("goal scan: %w", err)
	}
	g.Description = desc.String
	g.CreatedAt = created
	if target.Valid {
		v := target.Time
		g.TargetDate = &v
	}
	list, err := unmarshalList(sources)
	if err != nil {
		return nil, err
	}
	g.ContextSources = list
	return &g, nil
}
