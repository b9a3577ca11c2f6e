package engine

import "time"

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type nodeDef struct {
	id     string
	tier   int
	pre    []string
	xp     int
	status NodeStatus
	stats  []Stat
}

// buildTestTree puts specs into one branch per tier, in order. A zero
// status means the initial status for the node's prerequisites.
func buildTestTree(id string, specs ...nodeDef) *SkillTree {
	t := NewSkillTree(id, "goal-"+id, "Tree "+id)
	t.GeneratedAt = testNow
	t.LastUpdated = testNow
	for _, sp := range specs {
		bid := "tier" + string(rune('0'+sp.tier))
		b := t.Branch(bid)
		if b == nil {
			b = t.AddBranch(bid, bid)
		}
		n := &SkillNode{
			ID:            sp.id,
			Title:         "Quest " + sp.id,
			Tier:          sp.tier,
			Prerequisites: sp.pre,
			XPValue:       sp.xp,
			LinkedStats:   sp.stats,
		}
		n.Status = sp.status
		if n.Status == "" {
			n.Status = n.InitialStatus()
		}
		t.PutNode(b, n)
	}
	return t
}

func statusOf(t *SkillTree, id string) NodeStatus {
	if n := t.Node(id); n != nil {
		return n.Status
	}
	return ""
}
