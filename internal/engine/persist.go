package engine

import (
	"context"
	"database/sql"
	"fmt"

	"levelup/internal/storage"
)

// loadStore reads every persisted entity into a fresh arena. Stored trees
// are resolved once more so a tree saved by an older build reaches a stable
// state; structural problems are returned but do not stop the load.
func loadStore(ctx context.Context, db storage.Querier) (*store, []error, error) {
	st := newStore()

	goals, err := storage.NewGoalRepo(db).List(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, row := range goals {
		g := goalFromRow(row)
		st.putGoal(g)
		if len(row.ContextSources) > 0 {
			st.sources[g.ID] = row.ContextSources
		}
	}

	trees, err := storage.NewTreeRepo(db).List(ctx)
	if err != nil {
		return nil, nil, err
	}
	var problems []error
	for _, rec := range trees {
		t := treeFromRecord(rec)
		if _, err := ResolveUntilStable(t); err != nil {
			problems = append(problems, err)
		}
		st.putTree(t)
	}

	row, err := storage.NewStatsRepo(db).GetOrCreateMain(ctx)
	if err != nil {
		return nil, nil, err
	}
	st.stats = statsFromRow(row)

	earned, err := storage.NewAchievementRepo(db).ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range earned {
		st.earned[a.Code] = a.EarnedAt
	}
	return st, problems, nil
}

func goalRow(g *Goal, sources []string) storage.Goal {
	return storage.Goal{
		ID:             g.ID,
		Title:          g.Title,
		Description:    g.Description,
		Timeframe:      string(g.Timeframe),
		TargetDate:     g.TargetDate,
		Status:         string(g.Status),
		CreatedAt:      g.CreatedAt,
		ContextSources: sources,
	}
}

func goalFromRow(r storage.Goal) *Goal {
	tf := Timeframe(r.Timeframe)
	if !tf.IsValid() {
		tf = DefaultTimeframe
	}
	return &Goal{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Timeframe:   tf,
		TargetDate:  r.TargetDate,
		Status:      GoalStatus(r.Status),
		CreatedAt:   r.CreatedAt,
	}
}

func treeRecord(t *SkillTree) storage.TreeRecord {
	rec := storage.TreeRecord{
		Tree: storage.Tree{
			ID:          t.ID,
			GoalID:      t.GoalID,
			Title:       t.Title,
			GeneratedAt: t.GeneratedAt,
			LastUpdated: t.LastUpdated,
		},
	}
	for _, b := range t.Branches {
		rec.Branches = append(rec.Branches, storage.Branch{TreeID: t.ID, ID: b.ID, Name: b.Name})
		for _, n := range t.BranchNodes(b) {
			rec.Nodes = append(rec.Nodes, storage.Node{
				ID:                 n.ID,
				TreeID:             t.ID,
				BranchID:           b.ID,
				Title:              n.Title,
				Description:        n.Description,
				Tier:               n.Tier,
				Prerequisites:      n.Prerequisites,
				CompletionCriteria: n.CompletionCriteria,
				EstimatedHours:     n.EstimatedHours,
				XPValue:            n.XPValue,
				Status:             string(n.Status),
				LinkedStats:        statStrings(n.LinkedStats),
				CompletedAt:        n.CompletedAt,
				CompletionNotes:    n.CompletionNotes,
			})
		}
	}
	return rec
}

func treeFromRecord(rec storage.TreeRecord) *SkillTree {
	t := NewSkillTree(rec.Tree.ID, rec.Tree.GoalID, rec.Tree.Title)
	t.GeneratedAt = rec.Tree.GeneratedAt
	t.LastUpdated = rec.Tree.LastUpdated
	for _, b := range rec.Branches {
		t.AddBranch(b.ID, b.Name)
	}
	for _, r := range rec.Nodes {
		b := t.Branch(r.BranchID)
		if b == nil {
			b = t.AddBranch(r.BranchID, r.BranchID)
		}
		status := NodeStatus(r.Status)
		if !status.IsValid() {
			status = NodeLocked
		}
		t.PutNode(b, &SkillNode{
			ID:                 r.ID,
			Title:              r.Title,
			Description:        r.Description,
			Tier:               r.Tier,
			Prerequisites:      r.Prerequisites,
			CompletionCriteria: r.CompletionCriteria,
			EstimatedHours:     r.EstimatedHours,
			XPValue:            r.XPValue,
			Status:             status,
			LinkedStats:        ParseStats(r.LinkedStats),
			CompletedAt:        r.CompletedAt,
			CompletionNotes:    r.CompletionNotes,
		})
	}
	return t
}

func statsRow(u UserStats) *storage.Stats {
	return &storage.Stats{
		Key:            storage.MainStatsKey,
		Level:          u.Level,
		TotalXP:        u.TotalXP,
		CurrentStreak:  u.CurrentStreak,
		LongestStreak:  u.LongestStreak,
		NodesCompleted: u.NodesCompleted,
		TreesCompleted: u.TreesCompleted,
		Str:            u.STR,
		Int:            u.INT,
		Wis:            u.WIS,
		Dex:            u.DEX,
		Cha:            u.CHA,
		Vit:            u.VIT,
		LastActivity:   u.LastActivityDate,
	}
}

func statsFromRow(r *storage.Stats) UserStats {
	u := UserStats{
		Level:            r.Level,
		TotalXP:          r.TotalXP,
		CurrentStreak:    r.CurrentStreak,
		LongestStreak:    r.LongestStreak,
		NodesCompleted:   r.NodesCompleted,
		TreesCompleted:   r.TreesCompleted,
		STR:              r.Str,
		INT:              r.Int,
		WIS:              r.Wis,
		DEX:              r.Dex,
		CHA:              r.Cha,
		VIT:              r.Vit,
		LastActivityDate: r.LastActivity,
	}
	// Level is stored for display; the XP total is authoritative.
	if computed := LevelForTotalXP(u.TotalXP); u.Level < computed {
		u.Level = computed
	}
	if u.Level < MinLevel {
		u.Level = MinLevel
	}
	return u
}

// saveTree writes t inside tx.
func saveTree(ctx context.Context, tx *sql.Tx, t *SkillTree) error {
	if err := storage.NewTreeRepo(tx).Save(ctx, treeRecord(t)); err != nil {
		return fmt.Errorf("save tree %s: %w", t.ID, err)
	}
	return nil
}
