package root

import (
	"fmt"
	"sort"
	"strings"

	"levelup/internal/engine"
)

// matchID resolves ref against ids: an exact match wins, otherwise a unique
// prefix. what names the kind of id in errors.
func matchID(ids []string, ref, what string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%s id is required", what)
	}
	var hits []string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			hits = append(hits, id)
		}
	}
	switch len(hits) {
	case 0:
		return "", fmt.Errorf("no %s matches %q", what, ref)
	case 1:
		return hits[0], nil
	default:
		sort.Strings(hits)
		return "", fmt.Errorf("%q is ambiguous: %d %ss match", ref, len(hits), what)
	}
}

func resolveGoal(svc *engine.Service, ref string) (string, error) {
	var ids []string
	for _, g := range svc.Goals() {
		ids = append(ids, g.ID)
	}
	return matchID(ids, ref, "goal")
}

// resolveTree accepts a tree id or the id of the goal owning it.
func resolveTree(svc *engine.Service, ref string) (string, error) {
	var ids []string
	for _, t := range svc.Trees() {
		ids = append(ids, t.ID)
	}
	if id, err := matchID(ids, ref, "tree"); err == nil {
		return id, nil
	}
	goalID, err := resolveGoal(svc, ref)
	if err != nil {
		return "", fmt.Errorf("no tree or goal matches %q", ref)
	}
	t, err := svc.TreeForGoal(goalID)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func resolveNode(svc *engine.Service, ref string) (string, error) {
	var ids []string
	for _, t := range svc.Trees() {
		ids = append(ids, t.NodeIDs()...)
	}
	return matchID(ids, ref, "node")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
