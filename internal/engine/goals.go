package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"levelup/internal/storage"
)

type GoalInput struct {
	Title       string
	Description string
	Timeframe   Timeframe
	TargetDate  *time.Time
}

// GoalPatch holds the goal fields to change; nil fields are left alone.
type GoalPatch struct {
	Title           *string
	Description     *string
	Timeframe       *Timeframe
	TargetDate      *time.Time
	ClearTargetDate bool
}

func validateGoalInput(in GoalInput) (GoalInput, error) {
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return in, err
	}
	in.Title = title
	in.Description = strings.TrimSpace(in.Description)
	if in.Timeframe == "" {
		in.Timeframe = DefaultTimeframe
	}
	if !in.Timeframe.IsValid() {
		return in, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidInput, in.Timeframe)
	}
	return in, nil
}

// AddGoal creates a goal. When the generator keeps its own goal records the
// goal is registered there first and the remote id is adopted; a failed
// registration leaves local state untouched.
func (s *Service) AddGoal(ctx context.Context, in GoalInput) (*Goal, error) {
	in, err := validateGoalInput(in)
	if err != nil {
		return nil, err
	}

	g := &Goal{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Timeframe:   in.Timeframe,
		TargetDate:  in.TargetDate,
		Status:      GoalActive,
		CreatedAt:   s.clock(),
	}

	if reg, ok := s.gen.(GoalRegistrar); ok {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		remote, err := reg.CreateGoal(cctx, in)
		cancel()
		if err != nil {
			return nil, &BackendError{Op: "create goal", Err: err}
		}
		if remote != nil && strings.TrimSpace(remote.ID) != "" {
			g.ID = remote.ID
			if !remote.CreatedAt.IsZero() {
				g.CreatedAt = remote.CreatedAt.UTC()
			}
		}
	}

	s.mu.Lock()
	if _, exists := s.st.goals[g.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: goal %s already exists", ErrInvalidInput, g.ID)
	}
	err = s.commit(ctx, func(tx *sql.Tx) error {
		return storage.NewGoalRepo(tx).Upsert(ctx, goalRow(g, nil))
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.st.putGoal(g)
	out := g.Clone()
	s.mu.Unlock()

	s.log.Info("goal added", zap.String("goal", g.ID), zap.String("title", g.Title))
	s.events.publish(Event{Kind: EventGoalAdded, At: g.CreatedAt, GoalID: g.ID})
	return out, nil
}

// UpdateGoal changes title, description, timeframe or target date.
func (s *Service) UpdateGoal(ctx context.Context, id string, patch GoalPatch) (*Goal, error) {
	s.mu.Lock()
	cur, err := s.st.goal(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	g := cur.Clone()
	if patch.Title != nil {
		title, err := normalizeTitle(*patch.Title)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		g.Title = title
	}
	if patch.Description != nil {
		g.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Timeframe != nil {
		if !patch.Timeframe.IsValid() {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidInput, *patch.Timeframe)
		}
		g.Timeframe = *patch.Timeframe
	}
	if patch.ClearTargetDate {
		g.TargetDate = nil
	} else if patch.TargetDate != nil {
		d := *patch.TargetDate
		g.TargetDate = &d
	}

	if err := s.saveGoal(ctx, g); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	out := g.Clone()
	s.mu.Unlock()

	s.log.Info("goal updated", zap.String("goal", id))
	s.events.publish(Event{Kind: EventGoalUpdated, At: s.clock(), GoalID: id})
	return out, nil
}

// ArchiveGoal hides the goal from the focus list. Its tree is kept.
func (s *Service) ArchiveGoal(ctx context.Context, id string) (*Goal, error) {
	s.mu.Lock()
	cur, err := s.st.goal(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	g := cur.Clone()
	g.Status = GoalArchived
	if err := s.saveGoal(ctx, g); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	out := g.Clone()
	s.mu.Unlock()

	s.log.Info("goal archived", zap.String("goal", id))
	s.events.publish(Event{Kind: EventGoalUpdated, At: s.clock(), GoalID: id})
	return out, nil
}

// DeleteGoal removes the goal together with its tree and nodes. There is no
// undo.
func (s *Service) DeleteGoal(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, err := s.st.goal(id); err != nil {
		s.mu.Unlock()
		return err
	}
	err := s.commit(ctx, func(tx *sql.Tx) error {
		return storage.NewGoalRepo(tx).Delete(ctx, id)
	})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	treeID := s.st.treeOf[id]
	s.st.removeGoal(id)
	s.mu.Unlock()

	s.log.Info("goal deleted", zap.String("goal", id), zap.String("tree", treeID))
	s.events.publish(Event{Kind: EventGoalDeleted, At: s.clock(), GoalID: id, TreeID: treeID})
	return nil
}

// saveGoal persists g and swaps it in. Caller holds mu.
func (s *Service) saveGoal(ctx context.Context, g *Goal) error {
	sources := s.st.sources[g.ID]
	err := s.commit(ctx, func(tx *sql.Tx) error {
		return storage.NewGoalRepo(tx).Upsert(ctx, goalRow(g, sources))
	})
	if err != nil {
		return err
	}
	s.st.putGoal(g)
	return nil
}
