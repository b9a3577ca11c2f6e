package engine

import (
	"sort"
	"time"
)

// store is the in-memory arena of every entity. It is owned by Service and
// only touched with Service.mu held.
type store struct {
	goals    map[string]*Goal
	trees    map[string]*SkillTree
	treeOf   map[string]string // goal id -> tree id
	nodeTree map[string]string // node id -> tree id
	sources  map[string][]string
	stats    UserStats
	earned   map[string]time.Time
}

func newStore() *store {
	return &store{
		goals:    map[string]*Goal{},
		trees:    map[string]*SkillTree{},
		treeOf:   map[string]string{},
		nodeTree: map[string]string{},
		sources:  map[string][]string{},
		stats:    NewUserStats(),
		earned:   map[string]time.Time{},
	}
}

func (s *store) goal(id string) (*Goal, error) {
	g, ok := s.goals[id]
	if !ok {
		return nil, ErrGoalNotFound
	}
	return g, nil
}

func (s *store) tree(id string) (*SkillTree, error) {
	t, ok := s.trees[id]
	if !ok {
		return nil, ErrTreeNotFound
	}
	return t, nil
}

// locate returns the tree holding node id.
func (s *store) locate(nodeID string) (*SkillTree, *SkillNode, error) {
	tid, ok := s.nodeTree[nodeID]
	if !ok {
		return nil, nil, ErrNodeNotFound
	}
	t := s.trees[tid]
	n := t.Node(nodeID)
	if n == nil {
		return nil, nil, ErrNodeNotFound
	}
	return t, n, nil
}

// foreignIDs reports node ids of t already owned by a different tree.
func (s *store) foreignIDs(t *SkillTree) []error {
	var issues []error
	for _, id := range t.NodeIDs() {
		if owner, ok := s.nodeTree[id]; ok && owner != t.ID {
			issues = append(issues, DuplicateNode{NodeID: id})
		}
	}
	return issues
}

func (s *store) putGoal(g *Goal) {
	s.goals[g.ID] = g
}

// putTree swaps t in, replacing any tree with the same id, and reindexes its
// nodes.
func (s *store) putTree(t *SkillTree) {
	if old, ok := s.trees[t.ID]; ok {
		for _, id := range old.NodeIDs() {
			delete(s.nodeTree, id)
		}
	}
	s.trees[t.ID] = t
	s.treeOf[t.GoalID] = t.ID
	for _, id := range t.NodeIDs() {
		s.nodeTree[id] = t.ID
	}
	if g, ok := s.goals[t.GoalID]; ok {
		g.TreeID = t.ID
	}
}

func (s *store) removeTree(id string) {
	t, ok := s.trees[id]
	if !ok {
		return
	}
	for _, nid := range t.NodeIDs() {
		delete(s.nodeTree, nid)
	}
	delete(s.trees, id)
	delete(s.treeOf, t.GoalID)
}

// removeGoal drops the goal and its tree.
func (s *store) removeGoal(id string) {
	if tid, ok := s.treeOf[id]; ok {
		s.removeTree(tid)
	}
	delete(s.goals, id)
	delete(s.sources, id)
}

// sortedGoals returns goals by creation time, then id.
func (s *store) sortedGoals() []*Goal {
	out := make([]*Goal, 0, len(s.goals))
	for _, g := range s.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// allTrees returns trees in goal order.
func (s *store) allTrees() []*SkillTree {
	var out []*SkillTree
	for _, g := range s.sortedGoals() {
		if t, ok := s.trees[s.treeOf[g.ID]]; ok {
			out = append(out, t)
		}
	}
	return out
}
