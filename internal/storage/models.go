package storage

import "time"

// Stats is the single progression row of the local user.
type Stats struct {
	Key            string
	Level          int
	TotalXP        int
	CurrentStreak  int
	LongestStreak  int
	NodesCompleted int
	TreesCompleted int
	Str            int
	Int            int
	Wis            int
	Dex            int
	Cha            int
	Vit            int
	LastActivity   *time.Time
}

type Goal struct {
	ID          string
	Title       string
	Description string
	Timeframe   string
	TargetDate  *time.Time
	Status      string
	CreatedAt   time.Time
	// ContextSources are opaque ids last passed to the generator.
	ContextSources []string
}

type Tree struct {
	ID          string
	GoalID      string
	Title       string
	GeneratedAt time.Time
	LastUpdated time.Time
}

type Branch struct {
	TreeID   string
	ID       string
	Name     string
	Position int
}

type Node struct {
	ID                 string
	TreeID             string
	BranchID           string
	Position           int
	Title              string
	Description        string
	Tier               int
	Prerequisites      []string
	CompletionCriteria []string
	EstimatedHours     float64
	XPValue            int
	Status             string
	LinkedStats        []string
	CompletedAt        *time.Time
	CompletionNotes    string
}

// TreeRecord is a tree row with its branches and nodes, both in position order.
type TreeRecord struct {
	Tree     Tree
	Branches []Branch
	Nodes    []Node
}

type NodeCompletion struct {
	ID          int64
	NodeID      string
	TreeID      string
	CompletedAt time.Time
	XPAwarded   int
}

type Achievement struct {
	Code     string
	EarnedAt time.Time
}
