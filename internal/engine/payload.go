package engine

import (
	"strings"
	"time"
)

// TreePayload is the nested tree shape exchanged with generation backends and
// API clients.
type TreePayload struct {
	ID          string          `json:"id"`
	GoalID      string          `json:"goalId"`
	Title       string          `json:"title"`
	Branches    []BranchPayload `json:"branches"`
	GeneratedAt time.Time       `json:"generatedAt"`
	LastUpdated *time.Time      `json:"lastUpdated,omitempty"`
	Progress    *float64        `json:"progress,omitempty"`
}

type BranchPayload struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Nodes []NodePayload `json:"nodes"`
}

type NodePayload struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Tier               int        `json:"tier"`
	Prerequisites      []string   `json:"prerequisites"`
	CompletionCriteria []string   `json:"completionCriteria"`
	EstimatedHours     float64    `json:"estimatedHours"`
	XPValue            int        `json:"xpValue"`
	Status             string     `json:"status"`
	LinkedStats        []string   `json:"linkedStats"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CompletionNotes    string     `json:"completionNotes,omitempty"`
}

// BuildTree turns a generated payload into an arena tree. Node statuses
// coming from the payload are ignored: nodes start available when they have
// no prerequisites and locked otherwise. Blank or duplicate node ids are
// reported as a *StructuralError and nothing is returned.
func BuildTree(p *TreePayload) (*SkillTree, error) {
	t := NewSkillTree(p.ID, p.GoalID, strings.TrimSpace(p.Title))
	t.GeneratedAt = p.GeneratedAt
	t.LastUpdated = p.GeneratedAt

	var issues []error
	for _, bp := range p.Branches {
		b := t.Branch(bp.ID)
		if b == nil {
			b = t.AddBranch(bp.ID, bp.Name)
		}
		for i, np := range bp.Nodes {
			if strings.TrimSpace(np.ID) == "" {
				issues = append(issues, MissingNodeID{BranchID: bp.ID, Index: i})
				continue
			}
			n := nodeFromPayload(np)
			if t.nodes[n.ID] != nil {
				issues = append(issues, DuplicateNode{NodeID: n.ID})
				continue
			}
			t.PutNode(b, n)
		}
	}
	if len(issues) > 0 {
		return nil, &StructuralError{TreeID: p.ID, Issues: issues}
	}
	return t, nil
}

func nodeFromPayload(np NodePayload) *SkillNode {
	n := &SkillNode{
		ID:                 np.ID,
		Title:              strings.TrimSpace(np.Title),
		Description:        np.Description,
		Tier:               np.Tier,
		Prerequisites:      sortedUnique(np.Prerequisites),
		CompletionCriteria: append([]string(nil), np.CompletionCriteria...),
		EstimatedHours:     np.EstimatedHours,
		XPValue:            np.XPValue,
		LinkedStats:        ParseStats(np.LinkedStats),
	}
	if n.Tier < 0 {
		n.Tier = 0
	}
	if n.EstimatedHours < 0 {
		n.EstimatedHours = 0
	}
	if n.XPValue < 0 {
		n.XPValue = 0
	}
	n.Status = n.InitialStatus()
	return n
}

// Payload renders the tree in the nested wire shape, progress included.
func (t *SkillTree) Payload() *TreePayload {
	p := &TreePayload{
		ID:          t.ID,
		GoalID:      t.GoalID,
		Title:       t.Title,
		GeneratedAt: t.GeneratedAt,
	}
	updated := t.LastUpdated
	p.LastUpdated = &updated
	progress := t.ProgressPercentage()
	p.Progress = &progress
	for _, b := range t.Branches {
		bp := BranchPayload{ID: b.ID, Name: b.Name, Nodes: []NodePayload{}}
		for _, n := range t.BranchNodes(b) {
			bp.Nodes = append(bp.Nodes, n.Payload())
		}
		p.Branches = append(p.Branches, bp)
	}
	return p
}

func (n *SkillNode) Payload() NodePayload {
	np := NodePayload{
		ID:                 n.ID,
		Title:              n.Title,
		Description:        n.Description,
		Tier:               n.Tier,
		Prerequisites:      append([]string{}, n.Prerequisites...),
		CompletionCriteria: append([]string{}, n.CompletionCriteria...),
		EstimatedHours:     n.EstimatedHours,
		XPValue:            n.XPValue,
		Status:             string(n.Status),
		LinkedStats:        statStrings(n.LinkedStats),
		CompletionNotes:    n.CompletionNotes,
	}
	if n.CompletedAt != nil {
		t := *n.CompletedAt
		np.CompletedAt = &t
	}
	return np
}
