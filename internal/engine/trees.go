package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"levelup/internal/storage"
)

// RefreshResult reports what a refresh changed. Counts are computed
// locally by the merge.
type RefreshResult struct {
	Tree          *SkillTree
	NodesAdded    int
	NodesModified int
	NodesRemoved  int
	Retained      []string
	Unlocked      []string
}

// RefreshOutcome is delivered by RefreshTreeAsync. Discarded is set when
// the caller's context ended before the response could be applied.
type RefreshOutcome struct {
	Result    *RefreshResult
	Err       error
	Discarded bool
}

// GenerateTree asks the generator for the goal's first tree and attaches it.
func (s *Service) GenerateTree(ctx context.Context, goalID string, contextSourceIDs []string) (*SkillTree, error) {
	s.mu.Lock()
	g, err := s.st.goal(goalID)
	if err == nil {
		if _, has := s.st.treeOf[goalID]; has {
			err = ErrGoalHasTree
		}
	}
	var goal Goal
	if err == nil {
		goal = *g.Clone()
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, &BackendError{Op: "generate tree", Err: fmt.Errorf("no generator configured")}
	}

	s.log.Debug("requesting tree", zap.String("goal", goalID), zap.Strings("sources", contextSourceIDs))
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	payload, err := s.gen.GenerateTree(cctx, GenerateRequest{Goal: goal, ContextSourceIDs: contextSourceIDs})
	cancel()
	if err != nil {
		return nil, &BackendError{Op: "generate tree", Err: err}
	}
	if payload == nil {
		return nil, &BackendError{Op: "generate tree", Err: fmt.Errorf("empty response")}
	}
	return s.attachTree(ctx, goalID, payload, contextSourceIDs)
}

// CreateDemoTree attaches the built-in starter tree without any backend.
func (s *Service) CreateDemoTree(ctx context.Context, goalID string) (*SkillTree, error) {
	g, err := s.Goal(goalID)
	if err != nil {
		return nil, err
	}
	return s.attachTree(ctx, goalID, DemoTree(*g, s.clock()), nil)
}

// attachTree validates payload and makes it the goal's tree. A structurally
// invalid payload is rejected whole.
func (s *Service) attachTree(ctx context.Context, goalID string, payload *TreePayload, sources []string) (*SkillTree, error) {
	p := *payload
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	p.GoalID = goalID
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = s.clock()
	}
	if strings.TrimSpace(p.Title) == "" {
		p.Title = "Skill Tree"
	}

	tree, err := BuildTree(&p)
	if err != nil {
		return nil, err
	}
	if err := ValidateStructure(tree); err != nil {
		return nil, err
	}

	s.mu.Lock()
	g, err := s.st.goal(goalID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if _, has := s.st.treeOf[goalID]; has {
		s.mu.Unlock()
		return nil, ErrGoalHasTree
	}
	if _, taken := s.st.trees[tree.ID]; taken {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: tree id %s already in use", ErrInvalidInput, tree.ID)
	}
	if issues := s.st.foreignIDs(tree); len(issues) > 0 {
		s.mu.Unlock()
		return nil, &StructuralError{TreeID: tree.ID, Issues: issues}
	}
	if _, err := ResolveUntilStable(tree); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	goal := g.Clone()
	goal.TreeID = tree.ID
	if len(sources) == 0 {
		sources = s.st.sources[goalID]
	}
	err = s.commit(ctx, func(tx *sql.Tx) error {
		if err := storage.NewGoalRepo(tx).Upsert(ctx, goalRow(goal, sources)); err != nil {
			return err
		}
		return saveTree(ctx, tx, tree)
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.st.putGoal(goal)
	if len(sources) > 0 {
		s.st.sources[goalID] = append([]string(nil), sources...)
	}
	s.st.putTree(tree)
	out := tree.Clone()
	s.mu.Unlock()

	s.log.Info("tree created",
		zap.String("goal", goalID),
		zap.String("tree", tree.ID),
		zap.Int("nodes", tree.TotalNodes()))
	s.events.publish(Event{Kind: EventTreeCreated, At: tree.GeneratedAt, GoalID: goalID, TreeID: tree.ID})
	return out, nil
}

// RefreshTree regenerates the tree and merges the response into the tree as
// it is when the response arrives. Completed nodes are never lost.
func (s *Service) RefreshTree(ctx context.Context, treeID string) (*RefreshResult, error) {
	s.mu.Lock()
	t, err := s.st.tree(treeID)
	var req RefreshRequest
	if err == nil {
		g := s.st.goals[t.GoalID]
		req = RefreshRequest{
			TreeID:           treeID,
			Goal:             *g.Clone(),
			ContextSourceIDs: append([]string(nil), s.st.sources[g.ID]...),
			Current:          t.Payload(),
		}
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, &BackendError{Op: "refresh tree", Err: fmt.Errorf("no generator configured")}
	}

	s.log.Debug("requesting refresh", zap.String("tree", treeID))
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	payload, err := s.gen.RefreshTree(cctx, req)
	cancel()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("refresh %s: %w", treeID, ctx.Err())
	}
	if err != nil {
		return nil, &BackendError{Op: "refresh tree", Err: err}
	}
	if payload == nil {
		return nil, &BackendError{Op: "refresh tree", Err: fmt.Errorf("empty response")}
	}
	return s.applyRefresh(ctx, treeID, payload)
}

// RefreshTreeAsync runs RefreshTree in the background. The channel receives
// exactly one outcome and is then closed.
func (s *Service) RefreshTreeAsync(ctx context.Context, treeID string) <-chan RefreshOutcome {
	out := make(chan RefreshOutcome, 1)
	go func() {
		defer close(out)
		res, err := s.RefreshTree(ctx, treeID)
		if err != nil && ctx.Err() != nil {
			s.log.Debug("refresh response discarded", zap.String("tree", treeID), zap.Error(err))
			out <- RefreshOutcome{Discarded: true}
			return
		}
		out <- RefreshOutcome{Result: res, Err: err}
	}()
	return out
}

func (s *Service) applyRefresh(ctx context.Context, treeID string, payload *TreePayload) (*RefreshResult, error) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("refresh %s: %w", treeID, ctx.Err())
	}
	current, err := s.st.tree(treeID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	p := *payload
	p.ID = treeID
	p.GoalID = current.GoalID
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = s.clock()
	}
	if strings.TrimSpace(p.Title) == "" {
		p.Title = current.Title
	}
	generated, err := BuildTree(&p)
	if err == nil {
		err = ValidateStructure(generated)
	}
	if err == nil {
		if issues := s.st.foreignIDs(generated); len(issues) > 0 {
			err = &StructuralError{TreeID: treeID, Issues: issues}
		}
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	res, err := Merge(current, generated, s.clock())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	merged := res.Tree
	earned := NewAchievementChecker(s.st.stats, s.treesWith(merged)).Newly(s.st.earned)

	err = s.commit(ctx, func(tx *sql.Tx) error {
		if err := saveTree(ctx, tx, merged); err != nil {
			return err
		}
		achievements := storage.NewAchievementRepo(tx)
		for _, a := range earned {
			if err := achievements.Record(ctx, a.ID, merged.LastUpdated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.st.putTree(merged)
	for _, a := range earned {
		s.st.earned[a.ID] = merged.LastUpdated
	}
	out := &RefreshResult{
		Tree:          merged.Clone(),
		NodesAdded:    res.NodesAdded,
		NodesModified: res.NodesModified,
		NodesRemoved:  res.NodesRemoved,
		Retained:      res.Retained,
		Unlocked:      res.Unlocked,
	}
	s.mu.Unlock()

	s.log.Info("tree merged",
		zap.String("tree", treeID),
		zap.Int("added", res.NodesAdded),
		zap.Int("modified", res.NodesModified),
		zap.Int("removed", res.NodesRemoved),
		zap.Int("retained", len(res.Retained)))

	at := merged.LastUpdated
	evs := []Event{{
		Kind:          EventTreeMerged,
		At:            at,
		GoalID:        merged.GoalID,
		TreeID:        treeID,
		NodesAdded:    res.NodesAdded,
		NodesModified: res.NodesModified,
		NodesRemoved:  res.NodesRemoved,
	}}
	for _, id := range res.Unlocked {
		evs = append(evs, Event{Kind: EventNodeStatus, At: at, GoalID: merged.GoalID, TreeID: treeID, NodeID: id, Status: NodeAvailable})
	}
	s.events.publish(evs...)
	return out, nil
}
