package engine

import (
	"slices"
	"sort"
	"time"
)

// MergeResult is a reconciled tree plus what changed relative to the old one.
type MergeResult struct {
	Tree          *SkillTree
	NodesAdded    int
	NodesModified int
	NodesRemoved  int
	// Retained lists completed nodes kept although the new tree dropped them.
	Retained []string
	// Unlocked lists nodes the post-merge resolver pass made available.
	Unlocked []string
}

// Merge reconciles a freshly generated tree into the existing one. Local
// progress (status, completion time, notes) always comes from existing;
// content comes from generated. Completed nodes are never dropped. Neither
// input is modified.
//
// The merged tree is resolved to a stable state before it is returned; a
// structural problem in the result is returned as error together with the
// (still usable) result.
func Merge(existing, generated *SkillTree, now time.Time) (*MergeResult, error) {
	merged := NewSkillTree(existing.ID, existing.GoalID, generated.Title)
	merged.GeneratedAt = generated.GeneratedAt
	merged.LastUpdated = now

	res := &MergeResult{Tree: merged}

	// A generated legacy branch merges like any other and stays last.
	var legacy *Branch
	for _, gb := range legacyLast(generated.Branches) {
		var b *Branch
		if gb.ID == LegacyBranchID {
			legacy = &Branch{ID: LegacyBranchID, Name: LegacyBranchName}
			b = legacy
		} else {
			b = merged.AddBranch(gb.ID, gb.Name)
		}
		for _, id := range gb.NodeIDs {
			gen := generated.nodes[id]
			if gen == nil || merged.nodes[id] != nil {
				continue
			}
			old := existing.nodes[id]
			if old == nil {
				n := gen.Clone()
				n.Status = NodeLocked
				n.CompletedAt = nil
				n.CompletionNotes = ""
				merged.PutNode(b, n)
				res.NodesAdded++
				continue
			}
			n, modified := adoptContent(old, gen)
			merged.PutNode(b, n)
			if modified {
				res.NodesModified++
			}
		}
	}

	for _, id := range orderedIDs(existing) {
		if merged.nodes[id] != nil {
			continue
		}
		old := existing.nodes[id]
		if old.Status != NodeCompleted {
			res.NodesRemoved++
			continue
		}
		if legacy == nil {
			legacy = &Branch{ID: LegacyBranchID, Name: LegacyBranchName}
		}
		merged.PutNode(legacy, old.Clone())
		res.Retained = append(res.Retained, id)
	}
	// Retained nodes may point at prerequisites that did not survive.
	for _, id := range res.Retained {
		n := merged.nodes[id]
		kept := n.Prerequisites[:0]
		for _, pre := range n.Prerequisites {
			if merged.nodes[pre] != nil {
				kept = append(kept, pre)
			}
		}
		n.Prerequisites = kept
	}
	if legacy != nil && len(legacy.NodeIDs) > 0 {
		merged.Branches = append(merged.Branches, legacy)
	}

	unlocked, err := ResolveUntilStable(merged)
	res.Unlocked = unlocked
	return res, err
}

// adoptContent builds the merged node: progress from old, content from gen.
func adoptContent(old, gen *SkillNode) (*SkillNode, bool) {
	n := gen.Clone()
	n.Status = old.Status
	n.CompletionNotes = old.CompletionNotes
	n.CompletedAt = nil
	if old.CompletedAt != nil {
		t := *old.CompletedAt
		n.CompletedAt = &t
	}

	modified := old.Title != gen.Title ||
		old.Description != gen.Description ||
		old.EstimatedHours != gen.EstimatedHours ||
		old.XPValue != gen.XPValue ||
		!slices.Equal(old.CompletionCriteria, gen.CompletionCriteria) ||
		!sameSet(old.Prerequisites, gen.Prerequisites) ||
		!sameSet(statStrings(old.LinkedStats), statStrings(gen.LinkedStats))
	return n, modified
}

// legacyLast returns branches with the legacy branch, if any, moved to the end.
func legacyLast(branches []*Branch) []*Branch {
	out := make([]*Branch, 0, len(branches))
	var legacy *Branch
	for _, b := range branches {
		if b.ID == LegacyBranchID {
			legacy = b
			continue
		}
		out = append(out, b)
	}
	if legacy != nil {
		out = append(out, legacy)
	}
	return out
}

// orderedIDs walks a tree in display order, then picks up any arena entry no
// branch references.
func orderedIDs(t *SkillTree) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range t.Nodes() {
		if !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, n.ID)
		}
	}
	var rest []string
	for id := range t.nodes {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func sameSet(a, b []string) bool {
	return slices.Equal(sortedUnique(a), sortedUnique(b))
}

func statStrings(in []Stat) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
