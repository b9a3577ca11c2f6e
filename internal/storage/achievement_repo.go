package storage

import (
	"context"
	"fmt"
	"time"
)

type AchievementRepo struct {
	db Querier
}

func NewAchievementRepo(db Querier) *AchievementRepo {
	return &AchievementRepo{db: db}
}

// Record stores code as earned at t. Earlier records win.
func (r *AchievementRepo) Record(ctx context.Context, code string, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO achievements (code, earned_at) VALUES (?, ?)
		ON CONFLICT(code) DO NOTHING
	`, code, t)
	if err != nil {
		return fmt.Errorf("achievement record: %w", err)
	}
	return nil
}

func (r *AchievementRepo) ListAll(ctx context.Context) ([]Achievement, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, earned_at FROM achievements ORDER BY earned_at ASC, code ASC`)
	if err != nil {
		return nil, fmt.Errorf("achievement list: %w", err)
	}
	defer rows.Close()

	var out []Achievement
	for rows.Next() {
		var a Achievement
		if err := rows.Scan(&a.Code, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("achievement scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("achievement rows: %w", err)
	}
	return out, nil
}
