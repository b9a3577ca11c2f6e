package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const MainStatsKey = "main_user"

type StatsRepo struct {
	db Querier
}

func NewStatsRepo(db Querier) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Get(ctx context.Context, key string) (*Stats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT key, level, total_xp, current_streak, longest_streak, nodes_completed, trees_completed,
			stat_str, stat_int, stat_wis, stat_dex, stat_cha, stat_vit, last_activity
		FROM stats WHERE key = ?
	`, key)

	var (
		s    Stats
		last sql.NullTime
	)
	if err := row.Scan(&s.Key, &s.Level, &s.TotalXP, &s.CurrentStreak, &s.LongestStreak, &s.NodesCompleted, &s.TreesCompleted,
		&s.Str, &s.Int, &s.Wis, &s.Dex, &s.Cha, &s.Vit, &last); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("stats get: %w", err)
	}
	if last.Valid {
		v := last.Time
		s.LastActivity = &v
	}
	return &s, nil
}

func (r *StatsRepo) GetOrCreateMain(ctx context.Context) (*Stats, error) {
	s, err := r.Get(ctx, MainStatsKey)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}

	if _, err := r.db.ExecContext(ctx, `INSERT INTO stats (key) VALUES (?)`, MainStatsKey); err != nil {
		return nil, fmt.Errorf("stats insert: %w", err)
	}
	return r.Get(ctx, MainStatsKey)
}

func (r *StatsRepo) Update(ctx context.Context, s *Stats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stats (key, level, total_xp, current_streak, longest_streak, nodes_completed, trees_completed,
			stat_str, stat_int, stat_wis, stat_dex, stat_cha, stat_vit, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			level = excluded.level,
			total_xp = excluded.total_xp,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			nodes_completed = excluded.nodes_completed,
			trees_completed = excluded.trees_completed,
			stat_str = excluded.stat_str,
			stat_int = excluded.stat_int,
			stat_wis = excluded.stat_wis,
			stat_dex = excluded.stat_dex,
			stat_cha = excluded.stat_cha,
			stat_vit = excluded.stat_vit,
			last_activity = excluded.last_activity
	`, s.Key, s.Level, s.TotalXP, s.CurrentStreak, s.LongestStreak, s.NodesCompleted, s.TreesCompleted,
		s.Str, s.Int, s.Wis, s.Dex, s.Cha, s.Vit, s.LastActivity)
	if err != nil {
		return fmt.Errorf("stats update: %w", err)
	}
	return nil
}
