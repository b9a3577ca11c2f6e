package engine

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"levelup/internal/storage"
)

type CompleteResult struct {
	Node     *SkillNode
	TreeID   string
	XPGained int
	// NewNodes are the nodes this completion unlocked.
	NewNodes      []*SkillNode
	LevelUp       bool
	NewLevel      int
	TreeCompleted bool
	// Achievements lists what this completion earned for the first time.
	Achievements []Achievement
}

// StartNode moves an available node to in_progress.
func (s *Service) StartNode(ctx context.Context, nodeID string) (*SkillNode, error) {
	s.mu.Lock()
	t, n, err := s.st.locate(nodeID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	switch n.Status {
	case NodeAvailable:
	case NodeCompleted:
		s.mu.Unlock()
		return nil, ErrAlreadyCompleted
	default:
		s.mu.Unlock()
		return nil, InvalidTransition{NodeID: nodeID, From: n.Status, To: NodeInProgress}
	}

	next := t.Clone()
	next.Node(nodeID).Status = NodeInProgress
	next.LastUpdated = s.clock()
	if err := s.commit(ctx, func(tx *sql.Tx) error { return saveTree(ctx, tx, next) }); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.st.putTree(next)
	out := next.Node(nodeID).Clone()
	s.mu.Unlock()

	s.log.Info("node started", zap.String("node", nodeID), zap.String("tree", next.ID))
	s.events.publish(Event{Kind: EventNodeStatus, At: next.LastUpdated, GoalID: next.GoalID, TreeID: next.ID, NodeID: nodeID, Status: NodeInProgress})
	return out, nil
}

// CompleteNode completes an available or in-progress node, awards its XP,
// and unlocks whatever the completion satisfied.
func (s *Service) CompleteNode(ctx context.Context, nodeID, notes string) (*CompleteResult, error) {
	s.mu.Lock()
	t, n, err := s.st.locate(nodeID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	switch n.Status {
	case NodeAvailable, NodeInProgress:
	case NodeCompleted:
		s.mu.Unlock()
		return nil, ErrAlreadyCompleted
	default:
		s.mu.Unlock()
		return nil, InvalidTransition{NodeID: nodeID, From: n.Status, To: NodeCompleted}
	}
	// A merge keeps statuses, so an open node can sit behind unfinished work.
	if !prerequisitesMet(t, n) {
		s.mu.Unlock()
		return nil, InvalidTransition{NodeID: nodeID, From: n.Status, To: NodeCompleted}
	}

	now := s.clock()
	next := t.Clone()
	node := next.Node(nodeID)
	node.Status = NodeCompleted
	node.CompletedAt = &now
	node.CompletionNotes = strings.TrimSpace(notes)
	next.LastUpdated = now

	unlocked, err := RecomputeUnlocks(next)
	if err != nil {
		// Only trees loaded from an older database can get here; the
		// affected nodes stay locked and the rest resolve normally.
		s.log.Warn("tree has structural problems", zap.String("tree", next.ID), zap.Error(err))
	}

	treeDone := next.IsComplete()
	stats, outcome := ApplyCompletion(s.st.stats, node, now, s.loc, treeDone)

	var goal *Goal
	if g := s.st.goals[next.GoalID]; g != nil && treeDone && g.Status == GoalActive {
		goal = g.Clone()
		goal.Status = GoalCompleted
	}

	trees := s.treesWith(next)
	earned := NewAchievementChecker(stats, trees).Newly(s.st.earned)

	err = s.commit(ctx, func(tx *sql.Tx) error {
		if err := saveTree(ctx, tx, next); err != nil {
			return err
		}
		if err := storage.NewStatsRepo(tx).Update(ctx, statsRow(stats)); err != nil {
			return err
		}
		if _, err := storage.NewCompletionRepo(tx).Insert(ctx, nodeID, next.ID, now, outcome.XPGained); err != nil {
			return err
		}
		if goal != nil {
			if err := storage.NewGoalRepo(tx).Upsert(ctx, goalRow(goal, s.st.sources[goal.ID])); err != nil {
				return err
			}
		}
		achievements := storage.NewAchievementRepo(tx)
		for _, a := range earned {
			if err := achievements.Record(ctx, a.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.st.putTree(next)
	s.st.stats = stats
	if goal != nil {
		s.st.putGoal(goal)
	}
	for i := range earned {
		s.st.earned[earned[i].ID] = now
		at := now
		earned[i].EarnedAt = &at
	}

	res := &CompleteResult{
		Node:          node.Clone(),
		TreeID:        next.ID,
		XPGained:      outcome.XPGained,
		LevelUp:       outcome.LeveledUp,
		NewLevel:      outcome.NewLevel,
		TreeCompleted: treeDone,
		Achievements:  earned,
	}
	for _, id := range unlocked {
		res.NewNodes = append(res.NewNodes, next.Node(id).Clone())
	}
	statsCopy := stats.Clone()
	s.mu.Unlock()

	s.log.Info("node completed",
		zap.String("node", nodeID),
		zap.String("tree", next.ID),
		zap.Int("xp", outcome.XPGained),
		zap.Int("level", outcome.NewLevel),
		zap.Bool("level_up", outcome.LeveledUp),
		zap.Int("unlocked", len(unlocked)))

	evs := []Event{{Kind: EventNodeStatus, At: now, GoalID: next.GoalID, TreeID: next.ID, NodeID: nodeID, Status: NodeCompleted}}
	for _, id := range unlocked {
		evs = append(evs, Event{Kind: EventNodeStatus, At: now, GoalID: next.GoalID, TreeID: next.ID, NodeID: id, Status: NodeAvailable})
	}
	evs = append(evs, Event{Kind: EventStatsChanged, At: now, Stats: &statsCopy})
	if goal != nil {
		evs = append(evs, Event{Kind: EventGoalUpdated, At: now, GoalID: goal.ID})
	}
	s.events.publish(evs...)
	return res, nil
}

func prerequisitesMet(t *SkillTree, n *SkillNode) bool {
	for _, pre := range n.Prerequisites {
		if p := t.Node(pre); p == nil || p.Status != NodeCompleted {
			return false
		}
	}
	return true
}

// treesWith returns every stored tree with replacement standing in for its
// stored version. Caller holds mu.
func (s *Service) treesWith(replacement *SkillTree) []*SkillTree {
	var out []*SkillTree
	for _, t := range s.st.allTrees() {
		if t.ID == replacement.ID {
			out = append(out, replacement)
			continue
		}
		out = append(out, t)
	}
	return out
}
