package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrGoalNotFound     = errors.New("goal not found")
	ErrTreeNotFound     = errors.New("tree not found")
	ErrAlreadyCompleted = errors.New("node already completed")
	ErrGoalHasTree      = errors.New("goal already has a skill tree")
	ErrInvalidInput     = errors.New("invalid input")

	// ErrInvalidTransition matches every *InvalidTransition.
	ErrInvalidTransition = errors.New("invalid node transition")
	// ErrStructural matches every *StructuralError.
	ErrStructural = errors.New("skill tree structure is invalid")
	// ErrBackendUnavailable matches every *BackendError.
	ErrBackendUnavailable = errors.New("generation backend unavailable")
)

// InvalidTransition reports a node status change the state machine forbids.
type InvalidTransition struct {
	NodeID string
	From   NodeStatus
	To     NodeStatus
}

func (e InvalidTransition) Error() string {
	return fmt.Sprintf("node %s cannot move from %s to %s", e.NodeID, e.From, e.To)
}

func (e InvalidTransition) Is(target error) bool {
	return target == ErrInvalidTransition
}

// CycleDetected lists every node that sits on a prerequisite cycle.
type CycleDetected struct {
	NodeIDs []string
}

func (e CycleDetected) Error() string {
	return fmt.Sprintf("prerequisite cycle through %s", strings.Join(e.NodeIDs, ", "))
}

// DanglingPrerequisite is a prerequisite id that resolves to no node in the tree.
type DanglingPrerequisite struct {
	NodeID    string
	MissingID string
}

func (e DanglingPrerequisite) Error() string {
	return fmt.Sprintf("node %s requires unknown node %s", e.NodeID, e.MissingID)
}

// DuplicateNode is a node id that appears more than once.
type DuplicateNode struct {
	NodeID string
}

func (e DuplicateNode) Error() string {
	return fmt.Sprintf("node id %s appears more than once", e.NodeID)
}

// MissingNodeID is a node without an id, by branch and position.
type MissingNodeID struct {
	BranchID string
	Index    int
}

func (e MissingNodeID) Error() string {
	return fmt.Sprintf("node %d of branch %s has no id", e.Index, e.BranchID)
}

// StructuralError collects the integrity problems found in one tree.
type StructuralError struct {
	TreeID string
	Issues []error
}

func (e *StructuralError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.Error())
	}
	if e.TreeID == "" {
		return "invalid skill tree: " + strings.Join(msgs, "; ")
	}
	return fmt.Sprintf("invalid skill tree %s: %s", e.TreeID, strings.Join(msgs, "; "))
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// Unwrap exposes the individual issues to errors.As.
func (e *StructuralError) Unwrap() []error {
	return e.Issues
}

// Affected returns the ids of nodes the issues block from unlocking.
func (e *StructuralError) Affected() map[string]bool {
	out := map[string]bool{}
	for _, issue := range e.Issues {
		switch v := issue.(type) {
		case CycleDetected:
			for _, id := range v.NodeIDs {
				out[id] = true
			}
		case DanglingPrerequisite:
			out[v.NodeID] = true
		case DuplicateNode:
			out[v.NodeID] = true
		}
	}
	return out
}

// BackendError wraps a failure of the generation backend.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool {
	return target == ErrBackendUnavailable
}
