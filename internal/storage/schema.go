package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stats (
			key TEXT PRIMARY KEY,
			level INTEGER DEFAULT 1,
			total_xp INTEGER DEFAULT 0,
			current_streak INTEGER DEFAULT 0,
			longest_streak INTEGER DEFAULT 0,
			nodes_completed INTEGER DEFAULT 0,
			trees_completed INTEGER DEFAULT 0,
			stat_str INTEGER DEFAULT 10,
			stat_int INTEGER DEFAULT 10,
			stat_wis INTEGER DEFAULT 10,
			stat_dex INTEGER DEFAULT 10,
			stat_cha INTEGER DEFAULT 10,
			stat_vit INTEGER DEFAULT 10,
			last_activity DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS goals (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			timeframe TEXT NOT NULL,
			target_date DATETIME,
			status TEXT DEFAULT 'active',
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trees (
			id TEXT PRIMARY KEY,
			goal_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			generated_at DATETIME NOT NULL,
			last_updated DATETIME NOT NULL,
			FOREIGN KEY(goal_id) REFERENCES goals(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS branches (
			tree_id TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY(tree_id, id),
			FOREIGN KEY(tree_id) REFERENCES trees(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			tree_id TEXT NOT NULL,
			branch_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			tier INTEGER DEFAULT 0,
			prerequisites TEXT,
			completion_criteria TEXT,
			estimated_hours REAL DEFAULT 0,
			xp_value INTEGER NOT NULL,
			status TEXT DEFAULT 'locked',
			linked_stats TEXT,
			completed_at DATETIME,
			completion_notes TEXT,
			FOREIGN KEY(tree_id) REFERENCES trees(id) ON DELETE CASCADE
		);`,
		// Audit log of XP awarded; rows outlive the nodes they name.
		`CREATE TABLE IF NOT EXISTS node_completions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			node_id TEXT NOT NULL,
			tree_id TEXT NOT NULL,
			completed_at DATETIME NOT NULL,
			xp_awarded INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS achievements (
			code TEXT PRIMARY KEY,
			earned_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_tree_id ON nodes(tree_id);`,
		`CREATE INDEX IF NOT EXISTS idx_node_completions_completed_at ON node_completions(completed_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Columns added after the first release (ignore if already present).
	alterStmts := []string{
		`ALTER TABLE goals ADD COLUMN context_sources TEXT;`,
	}
	for _, stmt := range alterStmts {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("migrate alter: %w", err)
		}
	}

	return nil
}
