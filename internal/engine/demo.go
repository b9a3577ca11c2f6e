package engine

import (
	"time"

	"github.com/google/uuid"
)

type demoNodeDef struct {
	Key         string
	Title       string
	Description string
	Tier        int
	Requires    []string
	Criteria    []string
	Hours       float64
	XP          int
	Stats       []string
}

func builtinDemoNodes() []demoNodeDef {
	return []demoNodeDef{
		{
			Key:         "research",
			Title:       "Research & Planning",
			Description: "Define scope and research requirements",
			Tier:        1,
			Criteria:    []string{"Document requirements", "Create initial roadmap"},
			Hours:       3,
			XP:          100,
			Stats:       []string{"INT", "WIS"},
		},
		{
			Key:         "setup",
			Title:       "Setup Development Environment",
			Description: "Configure tools and dependencies",
			Tier:        1,
			Criteria:    []string{"Install dependencies", "Configure project"},
			Hours:       2,
			XP:          75,
			Stats:       []string{"DEX"},
		},
		{
			Key:         "core",
			Title:       "Core Implementation",
			Description: "Build the main functionality",
			Tier:        2,
			Requires:    []string{"research", "setup"},
			Criteria:    []string{"Implement core features", "Write unit tests"},
			Hours:       8,
			XP:          250,
			Stats:       []string{"INT", "DEX"},
		},
		{
			Key:         "ship",
			Title:       "Polish & Ship",
			Description: "Final refinements and deployment",
			Tier:        3,
			Requires:    []string{"core"},
			Criteria:    []string{"Fix remaining bugs", "Deploy to production"},
			Hours:       4,
			XP:          300,
			Stats:       []string{"WIS", "CHA"},
		},
	}
}

// demoNamespace seeds the deterministic demo ids.
var demoNamespace = uuid.MustParse("3f1c8a52-6a0e-4b7e-9d1f-5b8e2c7a4d10")

// DemoID derives a stable id from a goal id and a key, so regenerating the
// demo tree for the same goal yields the same node ids.
func DemoID(goalID, key string) string {
	return uuid.NewSHA1(demoNamespace, []byte(goalID+"/"+key)).String()
}

// DemoTree builds the four-quest starter tree for goal: two tier 1 quests,
// one tier 2 quest needing both, and a final tier 3 quest. It is a single
// branch named after the goal.
func DemoTree(goal Goal, at time.Time) *TreePayload {
	branch := BranchPayload{
		ID:   DemoID(goal.ID, "branch"),
		Name: goal.Title,
	}
	for _, def := range builtinDemoNodes() {
		prereqs := make([]string, 0, len(def.Requires))
		for _, key := range def.Requires {
			prereqs = append(prereqs, DemoID(goal.ID, key))
		}
		branch.Nodes = append(branch.Nodes, NodePayload{
			ID:                 DemoID(goal.ID, def.Key),
			Title:              def.Title,
			Description:        def.Description,
			Tier:               def.Tier,
			Prerequisites:      prereqs,
			CompletionCriteria: append([]string(nil), def.Criteria...),
			EstimatedHours:     def.Hours,
			XPValue:            def.XP,
			LinkedStats:        append([]string(nil), def.Stats...),
		})
	}
	return &TreePayload{
		ID:          DemoID(goal.ID, "tree"),
		GoalID:      goal.ID,
		Title:       goal.Title,
		Branches:    []BranchPayload{branch},
		GeneratedAt: at,
	}
}
