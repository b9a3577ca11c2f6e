package engine

import (
	"sort"
	"time"
)

type Timeframe string

const (
	TimeframeWeekly    Timeframe = "weekly"
	TimeframeMonthly   Timeframe = "monthly"
	TimeframeQuarterly Timeframe = "quarterly"
	TimeframeAnnual    Timeframe = "annual"
)

func (t Timeframe) IsValid() bool {
	switch t {
	case TimeframeWeekly, TimeframeMonthly, TimeframeQuarterly, TimeframeAnnual:
		return true
	default:
		return false
	}
}

// DefaultTimeframe is used when a goal is created without one.
const DefaultTimeframe Timeframe = TimeframeQuarterly

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalArchived  GoalStatus = "archived"
)

type NodeStatus string

const (
	NodeLocked     NodeStatus = "locked"
	NodeAvailable  NodeStatus = "available"
	NodeInProgress NodeStatus = "in_progress"
	NodeCompleted  NodeStatus = "completed"
)

func (s NodeStatus) IsValid() bool {
	switch s {
	case NodeLocked, NodeAvailable, NodeInProgress, NodeCompleted:
		return true
	default:
		return false
	}
}

// Stat is one of the six character attributes a node can train.
type Stat string

const (
	StatSTR Stat = "STR"
	StatINT Stat = "INT"
	StatWIS Stat = "WIS"
	StatDEX Stat = "DEX"
	StatCHA Stat = "CHA"
	StatVIT Stat = "VIT"
)

// AllStats lists the attributes in display order.
var AllStats = []Stat{StatSTR, StatINT, StatWIS, StatDEX, StatCHA, StatVIT}

func (s Stat) IsValid() bool {
	switch s {
	case StatSTR, StatINT, StatWIS, StatDEX, StatCHA, StatVIT:
		return true
	default:
		return false
	}
}

type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Timeframe   Timeframe  `json:"timeframe"`
	TargetDate  *time.Time `json:"targetDate,omitempty"`
	TreeID      string     `json:"treeId,omitempty"`
	Status      GoalStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (g *Goal) Clone() *Goal {
	if g == nil {
		return nil
	}
	c := *g
	if g.TargetDate != nil {
		d := *g.TargetDate
		c.TargetDate = &d
	}
	return &c
}

type SkillNode struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Tier               int        `json:"tier"`
	Prerequisites      []string   `json:"prerequisites"`
	CompletionCriteria []string   `json:"completionCriteria"`
	EstimatedHours     float64    `json:"estimatedHours"`
	XPValue            int        `json:"xpValue"`
	Status             NodeStatus `json:"status"`
	LinkedStats        []Stat     `json:"linkedStats"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CompletionNotes    string     `json:"completionNotes,omitempty"`
}

func (n *SkillNode) Clone() *SkillNode {
	if n == nil {
		return nil
	}
	c := *n
	c.Prerequisites = append([]string(nil), n.Prerequisites...)
	c.CompletionCriteria = append([]string(nil), n.CompletionCriteria...)
	c.LinkedStats = append([]Stat(nil), n.LinkedStats...)
	if n.CompletedAt != nil {
		t := *n.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// InitialStatus is the status a freshly generated node starts in.
func (n *SkillNode) InitialStatus() NodeStatus {
	if len(n.Prerequisites) == 0 {
		return NodeAvailable
	}
	return NodeLocked
}

// Branch is a display grouping of nodes. NodeIDs order is display order.
type Branch struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	NodeIDs []string `json:"nodeIds"`
}

// LegacyBranchID names the synthetic branch that holds completed nodes a
// regeneration no longer mentions.
const (
	LegacyBranchID   = "legacy"
	LegacyBranchName = "Legacy"
)

// SkillTree owns its nodes in an arena keyed by id. Branches reference nodes
// by id only.
type SkillTree struct {
	ID          string
	GoalID      string
	Title       string
	Branches    []*Branch
	GeneratedAt time.Time
	LastUpdated time.Time

	nodes    map[string]*SkillNode
	branchOf map[string]string
}

func NewSkillTree(id, goalID, title string) *SkillTree {
	return &SkillTree{
		ID:       id,
		GoalID:   goalID,
		Title:    title,
		nodes:    map[string]*SkillNode{},
		branchOf: map[string]string{},
	}
}

// AddBranch appends an empty branch and returns it.
func (t *SkillTree) AddBranch(id, name string) *Branch {
	b := &Branch{ID: id, Name: name}
	t.Branches = append(t.Branches, b)
	return b
}

// Branch returns the branch with the given id, or nil.
func (t *SkillTree) Branch(id string) *Branch {
	for _, b := range t.Branches {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// PutNode inserts n into the arena and appends it to branch b. If a node with
// the same id already exists it is replaced and false is returned.
func (t *SkillTree) PutNode(b *Branch, n *SkillNode) bool {
	if t.nodes == nil {
		t.nodes = map[string]*SkillNode{}
		t.branchOf = map[string]string{}
	}
	_, exists := t.nodes[n.ID]
	t.nodes[n.ID] = n
	if !exists {
		b.NodeIDs = append(b.NodeIDs, n.ID)
		t.branchOf[n.ID] = b.ID
	}
	return !exists
}

func (t *SkillTree) Node(id string) *SkillNode {
	return t.nodes[id]
}

// BranchOf returns the id of the branch holding node id.
func (t *SkillTree) BranchOf(id string) string {
	return t.branchOf[id]
}

// Nodes returns all nodes in branch display order.
func (t *SkillTree) Nodes() []*SkillNode {
	out := make([]*SkillNode, 0, len(t.nodes))
	for _, b := range t.Branches {
		for _, id := range b.NodeIDs {
			if n := t.nodes[id]; n != nil {
				out = append(out, n)
			}
		}
	}
	return out
}

// NodeIDs returns every node id sorted ascending.
func (t *SkillTree) NodeIDs() []string {
	ids := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BranchNodes returns the nodes of branch b in display order.
func (t *SkillTree) BranchNodes(b *Branch) []*SkillNode {
	out := make([]*SkillNode, 0, len(b.NodeIDs))
	for _, id := range b.NodeIDs {
		if n := t.nodes[id]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (t *SkillTree) TotalNodes() int {
	return len(t.nodes)
}

func (t *SkillTree) CompletedNodes() int {
	n := 0
	for _, node := range t.nodes {
		if node.Status == NodeCompleted {
			n++
		}
	}
	return n
}

// CompletedIDs returns the ids of completed nodes, sorted.
func (t *SkillTree) CompletedIDs() []string {
	var ids []string
	for id, node := range t.nodes {
		if node.Status == NodeCompleted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// AvailableNodes returns nodes a user can act on right now.
func (t *SkillTree) AvailableNodes() []*SkillNode {
	var out []*SkillNode
	for _, n := range t.Nodes() {
		if n.Status == NodeAvailable || n.Status == NodeInProgress {
			out = append(out, n)
		}
	}
	return out
}

func (t *SkillTree) ProgressPercentage() float64 {
	total := t.TotalNodes()
	if total == 0 {
		return 0
	}
	return float64(t.CompletedNodes()) / float64(total) * 100
}

func (t *SkillTree) IsComplete() bool {
	return t.TotalNodes() > 0 && t.CompletedNodes() == t.TotalNodes()
}

// BranchProgress is the completion percentage of a single branch.
func (t *SkillTree) BranchProgress(b *Branch) float64 {
	nodes := t.BranchNodes(b)
	if len(nodes) == 0 {
		return 0
	}
	done := 0
	for _, n := range nodes {
		if n.Status == NodeCompleted {
			done++
		}
	}
	return float64(done) / float64(len(nodes)) * 100
}

// Clone deep-copies the tree, arena included.
func (t *SkillTree) Clone() *SkillTree {
	if t == nil {
		return nil
	}
	c := NewSkillTree(t.ID, t.GoalID, t.Title)
	c.GeneratedAt = t.GeneratedAt
	c.LastUpdated = t.LastUpdated
	for _, b := range t.Branches {
		nb := c.AddBranch(b.ID, b.Name)
		for _, id := range b.NodeIDs {
			if n := t.nodes[id]; n != nil {
				c.PutNode(nb, n.Clone())
			}
		}
	}
	return c
}

// UserStats is the single progression record of the local user.
type UserStats struct {
	Level            int        `json:"level"`
	TotalXP          int        `json:"totalXP"`
	CurrentStreak    int        `json:"currentStreak"`
	LongestStreak    int        `json:"longestStreak"`
	NodesCompleted   int        `json:"nodesCompleted"`
	TreesCompleted   int        `json:"treesCompleted"`
	STR              int        `json:"str"`
	INT              int        `json:"int"`
	WIS              int        `json:"wis"`
	DEX              int        `json:"dex"`
	CHA              int        `json:"cha"`
	VIT              int        `json:"vit"`
	LastActivityDate *time.Time `json:"-"`
}

// BaseAttributeValue is where every attribute starts.
const BaseAttributeValue = 10

func NewUserStats() UserStats {
	return UserStats{
		Level: 1,
		STR:   BaseAttributeValue,
		INT:   BaseAttributeValue,
		WIS:   BaseAttributeValue,
		DEX:   BaseAttributeValue,
		CHA:   BaseAttributeValue,
		VIT:   BaseAttributeValue,
	}
}

// Attribute returns the counter for s.
func (u UserStats) Attribute(s Stat) int {
	switch s {
	case StatSTR:
		return u.STR
	case StatINT:
		return u.INT
	case StatWIS:
		return u.WIS
	case StatDEX:
		return u.DEX
	case StatCHA:
		return u.CHA
	case StatVIT:
		return u.VIT
	default:
		return 0
	}
}

func (u UserStats) Clone() UserStats {
	if u.LastActivityDate != nil {
		d := *u.LastActivityDate
		u.LastActivityDate = &d
	}
	return u
}
