package engine

import "context"

// GenerateRequest asks a backend for the first tree of a goal.
type GenerateRequest struct {
	Goal             Goal
	ContextSourceIDs []string
}

// RefreshRequest asks a backend to regenerate an existing tree.
type RefreshRequest struct {
	TreeID           string
	Goal             Goal
	ContextSourceIDs []string
	// Current is the tree as the engine holds it at request time.
	Current *TreePayload
}

// Generator produces skill tree content. Implementations live outside the
// engine; the engine never generates content itself.
type Generator interface {
	GenerateTree(ctx context.Context, req GenerateRequest) (*TreePayload, error)
	RefreshTree(ctx context.Context, req RefreshRequest) (*TreePayload, error)
}

// GoalRegistrar is implemented by generators that keep their own goal
// records. AddGoal registers the goal remotely first and adopts its id.
type GoalRegistrar interface {
	CreateGoal(ctx context.Context, in GoalInput) (*Goal, error)
}
