package engine

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"levelup/internal/storage"
)

// DefaultGeneratorTimeout bounds a single generate or refresh call.
const DefaultGeneratorTimeout = 120 * time.Second

// Service is the single writer over the entity store. Every mutation runs
// under mu, is computed on copies, persisted in one transaction and only
// then swapped into the store.
type Service struct {
	mu  sync.Mutex
	db  *sql.DB
	st  *store
	gen Generator

	events  *Events
	log     *zap.Logger
	now     func() time.Time
	loc     *time.Location
	timeout time.Duration
}

type Option func(*Service)

func WithGenerator(g Generator) Option {
	return func(s *Service) { s.gen = g }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone calendar days (streaks) are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithGeneratorTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService loads all persisted state from db.
func NewService(ctx context.Context, db *sql.DB, opts ...Option) (*Service, error) {
	s := &Service{
		db:      db,
		events:  NewEvents(),
		log:     zap.NewNop(),
		now:     time.Now,
		loc:     time.Local,
		timeout: DefaultGeneratorTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	st, problems, err := loadStore(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, p := range problems {
		s.log.Warn("stored tree has structural problems", zap.Error(p))
	}
	s.st = st
	s.log.Debug("state loaded",
		zap.Int("goals", len(st.goals)),
		zap.Int("trees", len(st.trees)),
		zap.Int("level", st.stats.Level))
	return s, nil
}

func (s *Service) Events() *Events { return s.events }

// HasGenerator reports whether a generation backend is configured.
func (s *Service) HasGenerator() bool { return s.gen != nil }

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// commit persists fn atomically.
func (s *Service) commit(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return storage.WithTx(ctx, s.db, fn)
}

func (s *Service) Goals() []*Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Goal
	for _, g := range s.st.sortedGoals() {
		out = append(out, g.Clone())
	}
	return out
}

func (s *Service) Goal(id string) (*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.st.goal(id)
	if err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

func (s *Service) Tree(id string) (*SkillTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.st.tree(id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// TreeForGoal returns the goal's tree, ErrTreeNotFound when it has none.
func (s *Service) TreeForGoal(goalID string) (*SkillTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.st.goal(goalID); err != nil {
		return nil, err
	}
	tid, ok := s.st.treeOf[goalID]
	if !ok {
		return nil, ErrTreeNotFound
	}
	return s.st.trees[tid].Clone(), nil
}

func (s *Service) Trees() []*SkillTree {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*SkillTree
	for _, t := range s.st.allTrees() {
		out = append(out, t.Clone())
	}
	return out
}

// Node returns a copy of the node and the id of the tree holding it.
func (s *Service) Node(id string) (*SkillNode, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, n, err := s.st.locate(id)
	if err != nil {
		return nil, "", err
	}
	return n.Clone(), t.ID, nil
}

func (s *Service) Stats() UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.stats.Clone()
}

// FocusNode is an actionable node with the tree and goal it belongs to.
type FocusNode struct {
	Node      *SkillNode
	TreeID    string
	GoalID    string
	GoalTitle string
}

// AvailableNodes lists every available or in-progress node across trees of
// active goals, in goal then display order.
func (s *Service) AvailableNodes() []FocusNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []FocusNode
	for _, t := range s.st.allTrees() {
		g := s.st.goals[t.GoalID]
		if g == nil || g.Status == GoalArchived {
			continue
		}
		for _, n := range t.AvailableNodes() {
			out = append(out, FocusNode{Node: n.Clone(), TreeID: t.ID, GoalID: g.ID, GoalTitle: g.Title})
		}
	}
	return out
}

// RecentCompletions reads the completion log, newest first.
func (s *Service) RecentCompletions(ctx context.Context, limit int) ([]storage.NodeCompletion, error) {
	if limit <= 0 {
		limit = 10
	}
	return storage.NewCompletionRepo(s.db).Recent(ctx, limit)
}
