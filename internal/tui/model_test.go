package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"levelup/internal/engine"
	"levelup/internal/storage"
)

func newTestBoard(t *testing.T) (boardModel, *engine.Goal) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "tui.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, err := engine.NewService(ctx, db, engine.WithClock(func() time.Time { return now }), engine.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	g, err := svc.AddGoal(ctx, engine.GoalInput{Title: "Ship a CLI"})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	if _, err := svc.CreateDemoTree(ctx, g.ID); err != nil {
		t.Fatalf("CreateDemoTree: %v", err)
	}

	m := newBoardModel(ctx, svc)
	t.Cleanup(m.close)
	next, _ := m.Update(m.loadCmd()())
	return next.(boardModel), g
}

func press(t *testing.T, m boardModel, key tea.KeyMsg) (boardModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key)
	return next.(boardModel), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardLinesExpandActiveGoals(t *testing.T) {
	m, g := newTestBoard(t)

	lines := m.boardLines()
	if len(lines) != 6 {
		t.Fatalf("expected goal, branch and 4 quests, got %d lines", len(lines))
	}
	if lines[0].kind != lineGoal || lines[1].kind != lineBranch || lines[2].kind != lineNode {
		t.Fatalf("unexpected line kinds: %+v", lines[:3])
	}
	if lines[2].id != engine.DemoID(g.ID, "research") {
		t.Fatalf("expected research first, got %s", lines[2].title)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := len(m.boardLines()); got != 1 {
		t.Fatalf("expected collapsed goal, got %d lines", got)
	}
}

func TestBoardCompleteSelectedQuest(t *testing.T) {
	m, g := newTestBoard(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	line, ok := m.current()
	if !ok || line.id != engine.DemoID(g.ID, "research") {
		t.Fatalf("expected research selected, got %+v", line)
	}

	m, cmd := press(t, m, runes("c"))
	if cmd == nil {
		t.Fatalf("expected a completion command")
	}
	next, _ := m.Update(cmd())
	m = next.(boardModel)
	if !strings.Contains(m.lastLog, "+100 XP") {
		t.Fatalf("unexpected log: %q", m.lastLog)
	}

	select {
	case ev := <-m.events:
		if ev.Kind == "" {
			t.Fatalf("expected an engine event")
		}
	default:
		t.Fatalf("expected the completion to publish an event")
	}
}

func TestBoardRejectsCompletingGoalRow(t *testing.T) {
	m, _ := newTestBoard(t)

	m, cmd := press(t, m, runes("c"))
	if cmd != nil {
		t.Fatalf("goal rows cannot be completed")
	}
	if !strings.Contains(m.lastLog, "Select a quest") {
		t.Fatalf("unexpected log: %q", m.lastLog)
	}
}

func TestBoardRefreshNeedsGenerator(t *testing.T) {
	m, _ := newTestBoard(t)

	m, cmd := press(t, m, runes("g"))
	if cmd != nil {
		t.Fatalf("expected no refresh without a generator")
	}
	if m.refreshing != "" {
		t.Fatalf("refresh should not be marked running")
	}
}

func TestBoardViewShowsStats(t *testing.T) {
	m, _ := newTestBoard(t)
	out := m.View()
	for _, want := range []string{"Level 1", "Attributes", "Skill Trees", "Ship a CLI"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}
