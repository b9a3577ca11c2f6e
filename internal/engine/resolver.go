package engine

import (
	"sort"
)

// ValidateStructure checks that every prerequisite resolves inside the tree
// and that the prerequisite graph is acyclic. It returns nil or a
// *StructuralError listing every problem found.
func ValidateStructure(t *SkillTree) error {
	var issues []error

	for _, id := range t.NodeIDs() {
		n := t.nodes[id]
		for _, pre := range n.Prerequisites {
			if _, ok := t.nodes[pre]; !ok {
				issues = append(issues, DanglingPrerequisite{NodeID: id, MissingID: pre})
			}
		}
	}

	for _, cycle := range findCycles(t) {
		issues = append(issues, CycleDetected{NodeIDs: cycle})
	}

	if len(issues) == 0 {
		return nil
	}
	return &StructuralError{TreeID: t.ID, Issues: issues}
}

// findCycles returns the node sets of every prerequisite cycle, each sorted,
// ordered by first id. A node listing itself as prerequisite is a cycle of one.
func findCycles(t *SkillTree) [][]string {
	ids := t.NodeIDs()

	index := make(map[string]int, len(ids))
	lowlink := make(map[string]int, len(ids))
	onStack := make(map[string]bool, len(ids))
	var stack []string
	next := 0
	var cycles [][]string

	var strongConnect func(id string)
	strongConnect = func(id string) {
		index[id] = next
		lowlink[id] = next
		next++
		stack = append(stack, id)
		onStack[id] = true

		for _, pre := range sortedUnique(t.nodes[id].Prerequisites) {
			if _, ok := t.nodes[pre]; !ok {
				continue
			}
			if _, seen := index[pre]; !seen {
				strongConnect(pre)
				lowlink[id] = min(lowlink[id], lowlink[pre])
			} else if onStack[pre] {
				lowlink[id] = min(lowlink[id], index[pre])
			}
		}

		if lowlink[id] != index[id] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == id {
				break
			}
		}
		if len(component) > 1 || selfLoop(t.nodes[id]) {
			sort.Strings(component)
			cycles = append(cycles, component)
		}
	}

	for _, id := range ids {
		if _, seen := index[id]; !seen {
			strongConnect(id)
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func selfLoop(n *SkillNode) bool {
	for _, pre := range n.Prerequisites {
		if pre == n.ID {
			return true
		}
	}
	return false
}

func sortedUnique(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	j := 0
	for i := range out {
		if i == 0 || out[i] != out[i-1] {
			out[j] = out[i]
			j++
		}
	}
	return out[:j]
}

// unlockOrder returns node ids sorted by (tier, id).
func unlockOrder(t *SkillTree) []string {
	ids := t.NodeIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		return a.ID < b.ID
	})
	return ids
}

// RecomputeUnlocks promotes locked nodes whose prerequisites are all completed
// to available and returns the ids that changed, in processing order.
//
// Every decision is made against the completed set as it was when the pass
// started, so a node unlocked here never unlocks another in the same pass.
// Nodes on a cycle or with a dangling prerequisite are left alone; the
// problems are returned as a *StructuralError next to the changes made for
// the rest of the tree.
func RecomputeUnlocks(t *SkillTree) ([]string, error) {
	structErr := ValidateStructure(t)
	var affected map[string]bool
	if se, ok := structErr.(*StructuralError); ok {
		affected = se.Affected()
	}

	completed := make(map[string]bool, len(t.nodes))
	for id, n := range t.nodes {
		if n.Status == NodeCompleted {
			completed[id] = true
		}
	}

	var changed []string
	for _, id := range unlockOrder(t) {
		n := t.nodes[id]
		if n.Status != NodeLocked || affected[id] {
			continue
		}
		ready := true
		for _, pre := range n.Prerequisites {
			if !completed[pre] {
				ready = false
				break
			}
		}
		if ready {
			n.Status = NodeAvailable
			changed = append(changed, id)
		}
	}
	return changed, structErr
}

// ResolveUntilStable re-runs RecomputeUnlocks until a pass changes nothing and
// returns every id that changed along the way.
func ResolveUntilStable(t *SkillTree) ([]string, error) {
	var (
		all []string
		err error
	)
	// Each productive pass flips at least one locked node, so the loop ends
	// within len(nodes)+1 passes.
	for pass := 0; pass <= len(t.nodes); pass++ {
		var changed []string
		changed, err = RecomputeUnlocks(t)
		all = append(all, changed...)
		if len(changed) == 0 {
			break
		}
	}
	return all, err
}
