package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"levelup/internal/engine"
	"levelup/internal/ui"
)

type lineKind int

const (
	lineGoal lineKind = iota
	lineBranch
	lineNode
)

type boardModel struct {
	ctx context.Context
	svc *engine.Service

	width  int
	height int

	stats engine.UserStats
	goals []*engine.Goal
	trees map[string]*engine.SkillTree // by goal id

	expanded map[string]bool
	selected int

	lastLog string
	loading bool

	spinner       spinner.Model
	refreshing    string
	cancelRefresh context.CancelFunc

	events      chan engine.Event
	unsubscribe func()
}

type loadedMsg struct {
	stats engine.UserStats
	goals []*engine.Goal
	trees map[string]*engine.SkillTree
}

type completedMsg struct {
	res *engine.CompleteResult
	err error
}

type startedMsg struct {
	node *engine.SkillNode
	err  error
}

type demoMsg struct {
	tree *engine.SkillTree
	err  error
}

type refreshedMsg struct {
	treeID  string
	outcome engine.RefreshOutcome
}

type eventMsg engine.Event

func newBoardModel(ctx context.Context, svc *engine.Service) boardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	events := make(chan engine.Event, 32)
	unsubscribe := svc.Events().Subscribe(func(ev engine.Event) {
		select {
		case events <- ev:
		default:
			// A reload is already pending.
		}
	})

	return boardModel{
		ctx:         ctx,
		svc:         svc,
		expanded:    map[string]bool{},
		loading:     true,
		lastLog:     "Loaded.",
		spinner:     sp,
		events:      events,
		unsubscribe: unsubscribe,
	}
}

// close drops the event subscription and any refresh still in flight.
func (m boardModel) close() {
	if m.cancelRefresh != nil {
		m.cancelRefresh()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.waitEvent())
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		msg := loadedMsg{
			stats: m.svc.Stats(),
			goals: m.svc.Goals(),
			trees: map[string]*engine.SkillTree{},
		}
		for _, t := range m.svc.Trees() {
			msg.trees[t.GoalID] = t
		}
		return msg
	}
}

func (m boardModel) waitEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m boardModel) completeCmd(id string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.CompleteNode(m.ctx, id, "")
		return completedMsg{res: res, err: err}
	}
}

func (m boardModel) startCmd(id string) tea.Cmd {
	return func() tea.Msg {
		n, err := m.svc.StartNode(m.ctx, id)
		return startedMsg{node: n, err: err}
	}
}

func (m boardModel) demoCmd(goalID string) tea.Cmd {
	return func() tea.Msg {
		t, err := m.svc.CreateDemoTree(m.ctx, goalID)
		return demoMsg{tree: t, err: err}
	}
}

func refreshCmd(ch <-chan engine.RefreshOutcome, treeID string) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{treeID: treeID, outcome: <-ch}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		first := m.goals == nil
		m.loading = false
		m.stats = msg.stats
		m.goals = msg.goals
		m.trees = msg.trees
		if first {
			for _, g := range m.goals {
				if g.Status == engine.GoalActive && m.trees[g.ID] != nil {
					m.expanded[g.ID] = true
				}
			}
		}
		m.clampSelection()
		return m, nil
	case eventMsg:
		return m, tea.Batch(m.loadCmd(), m.waitEvent())
	case completedMsg:
		if msg.err != nil {
			m.lastLog = "Complete failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = completionLog(msg.res)
		return m, nil
	case startedMsg:
		if msg.err != nil {
			m.lastLog = "Start failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = fmt.Sprintf("Started %s.", msg.node.Title)
		return m, nil
	case demoMsg:
		if msg.err != nil {
			m.lastLog = "Demo tree failed: " + msg.err.Error()
			return m, nil
		}
		m.expanded[msg.tree.GoalID] = true
		m.lastLog = fmt.Sprintf("Planted %s with %d quests.", msg.tree.Title, msg.tree.TotalNodes())
		return m, nil
	case refreshedMsg:
		m.refreshing = ""
		if m.cancelRefresh != nil {
			m.cancelRefresh()
			m.cancelRefresh = nil
		}
		switch o := msg.outcome; {
		case o.Discarded:
			m.lastLog = "Refresh cancelled."
		case o.Err != nil:
			m.lastLog = "Refresh failed: " + o.Err.Error()
		default:
			m.lastLog = fmt.Sprintf("Refreshed: +%d ~%d -%d", o.Result.NodesAdded, o.Result.NodesModified, o.Result.NodesRemoved)
		}
		return m, nil
	case spinner.TickMsg:
		if m.refreshing == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m boardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.cancelRefresh != nil {
			m.cancelRefresh()
			m.cancelRefresh = nil
		}
		return m, tea.Quit
	case "esc":
		if m.cancelRefresh != nil {
			m.cancelRefresh()
			m.cancelRefresh = nil
			m.lastLog = "Cancelling refresh…"
		}
		return m, nil
	case "r":
		m.lastLog = fmt.Sprintf("Reloaded at %s.", time.Now().Format("15:04:05"))
		return m, m.loadCmd()
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.boardLines())-1 {
			m.selected++
		}
		return m, nil
	}

	line, ok := m.current()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "enter":
		if line.kind == lineGoal {
			m.expanded[line.goalID] = !m.expanded[line.goalID]
		}
		return m, nil
	case "s":
		if line.kind != lineNode {
			m.lastLog = "Select a quest to start."
			return m, nil
		}
		return m, m.startCmd(line.id)
	case "c", " ":
		if line.kind != lineNode {
			m.lastLog = "Select a quest to complete."
			return m, nil
		}
		if line.status == engine.NodeCompleted {
			m.lastLog = "Already completed."
			return m, nil
		}
		m.lastLog = fmt.Sprintf("Completing %s…", line.title)
		return m, m.completeCmd(line.id)
	case "d":
		if m.trees[line.goalID] != nil {
			m.lastLog = "Goal already has a tree."
			return m, nil
		}
		return m, m.demoCmd(line.goalID)
	case "g":
		t := m.trees[line.goalID]
		if t == nil {
			m.lastLog = "Goal has no tree yet (d plants the demo tree)."
			return m, nil
		}
		if m.refreshing != "" {
			m.lastLog = "A refresh is already running."
			return m, nil
		}
		if !m.svc.HasGenerator() {
			m.lastLog = "No generator configured."
			return m, nil
		}
		ctx, cancel := context.WithCancel(m.ctx)
		m.cancelRefresh = cancel
		m.refreshing = t.ID
		m.lastLog = "Refreshing " + t.Title + "…"
		return m, tea.Batch(m.spinner.Tick, refreshCmd(m.svc.RefreshTreeAsync(ctx, t.ID), t.ID))
	}
	return m, nil
}

func completionLog(res *engine.CompleteResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Completed %s: +%d XP", res.Node.Title, res.XPGained)
	if res.LevelUp {
		fmt.Fprintf(&b, " %s → %d", ui.BadgeLevelUp, res.NewLevel)
	}
	if len(res.NewNodes) > 0 {
		fmt.Fprintf(&b, ", %d unlocked", len(res.NewNodes))
	}
	if res.TreeCompleted {
		b.WriteString(", tree complete " + ui.IconTrophy)
	}
	for _, a := range res.Achievements {
		fmt.Fprintf(&b, " %s %s", a.Icon, a.Name)
	}
	return b.String()
}

type boardLine struct {
	kind     lineKind
	id       string
	goalID   string
	title    string
	status   engine.NodeStatus
	progress float64
	xp       int
	expanded bool
	hasTree  bool
	archived bool
}

func (m boardModel) boardLines() []boardLine {
	var out []boardLine
	for _, g := range m.goals {
		t := m.trees[g.ID]
		gl := boardLine{
			kind:     lineGoal,
			id:       g.ID,
			goalID:   g.ID,
			title:    g.Title,
			expanded: m.expanded[g.ID],
			hasTree:  t != nil,
			archived: g.Status == engine.GoalArchived,
		}
		if t != nil {
			gl.progress = t.ProgressPercentage()
		}
		out = append(out, gl)
		if t == nil || !m.expanded[g.ID] {
			continue
		}
		for _, b := range t.Branches {
			out = append(out, boardLine{kind: lineBranch, id: b.ID, goalID: g.ID, title: b.Name, progress: t.BranchProgress(b)})
			for _, n := range t.BranchNodes(b) {
				out = append(out, boardLine{kind: lineNode, id: n.ID, goalID: g.ID, title: n.Title, status: n.Status, xp: n.XPValue})
			}
		}
	}
	return out
}

func (m *boardModel) clampSelection() {
	n := len(m.boardLines())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m boardModel) current() (boardLine, bool) {
	lines := m.boardLines()
	if m.selected < 0 || m.selected >= len(lines) {
		return boardLine{}, false
	}
	return lines[m.selected], true
}

func (m boardModel) View() string {
	header := m.renderHeader()
	sidebar := m.renderSidebar()
	main := m.renderMain()
	footer := m.renderFooter()

	leftW := 28
	if m.width > 0 {
		maxLeft := m.width / 2
		if maxLeft < leftW {
			leftW = maxLeft
		}
		if leftW < 18 {
			leftW = 18
		}
	}

	linesLeft := strings.Split(sidebar, "\n")
	linesRight := strings.Split(main, "\n")
	rows := max(len(linesLeft), len(linesRight))

	var body strings.Builder
	for i := 0; i < rows; i++ {
		l, r := "", ""
		if i < len(linesLeft) {
			l = linesLeft[i]
		}
		if i < len(linesRight) {
			r = linesRight[i]
		}
		body.WriteString(padRight(l, leftW))
		body.WriteString("  ")
		body.WriteString(r)
		body.WriteString("\n")
	}

	return header + "\n" + body.String() + footer
}

func (m boardModel) renderHeader() string {
	if m.loading {
		return "Levelup | loading…"
	}
	into, span := engine.LevelProgress(m.stats.TotalXP)
	return fmt.Sprintf("Levelup | Level %d | XP %d %s | %s %d days",
		m.stats.Level, m.stats.TotalXP, ui.ProgressBar(into, span, 30), ui.IconFlame, m.stats.CurrentStreak)
}

func (m boardModel) renderSidebar() string {
	if m.loading {
		return "Attributes\n\nLoading…"
	}
	lines := []string{"Attributes"}
	top := engine.BaseAttributeValue
	for _, s := range engine.AllStats {
		top = max(top, m.stats.Attribute(s))
	}
	for _, s := range engine.AllStats {
		v := m.stats.Attribute(s)
		lines = append(lines, fmt.Sprintf("- %s %3d %s", s, v, ui.ProgressBar(v, top, 12)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Quests %d  Trees %d", m.stats.NodesCompleted, m.stats.TreesCompleted),
		fmt.Sprintf("Best streak %d", m.stats.LongestStreak),
		"",
		"Keys",
		"- ↑/↓ or j/k: move",
		"- enter: expand/collapse",
		"- s: start  c/space: complete",
		"- d: demo tree  g: refresh",
		"- esc: cancel refresh",
		"- r: reload  q: quit",
	)
	return strings.Join(lines, "\n")
}

func (m boardModel) renderMain() string {
	if m.loading {
		return "Loading…"
	}
	var out []string
	out = append(out, "Focus")
	focus := m.svc.AvailableNodes()
	if len(focus) == 0 {
		out = append(out, "(nothing available)")
	}
	for i, f := range focus {
		if i == 3 {
			break
		}
		out = append(out, fmt.Sprintf("- %s %s (%d XP, %s)", ui.StatusIcon(string(f.Node.Status)), f.Node.Title, f.Node.XPValue, f.GoalTitle))
	}
	out = append(out, "", "Skill Trees")

	lines := m.boardLines()
	if len(lines) == 0 {
		out = append(out, "(no goals yet)")
		return strings.Join(out, "\n")
	}
	for i, bl := range lines {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		var row string
		switch bl.kind {
		case lineGoal:
			fold := "  "
			if bl.hasTree {
				fold = "▸ "
				if bl.expanded {
					fold = "▾ "
				}
			}
			row = fold + bl.title
			if bl.hasTree {
				row += " " + ui.Percent(bl.progress, 10)
			}
			if bl.archived {
				row += " (archived)"
			}
			if m.refreshing != "" && m.trees[bl.goalID] != nil && m.trees[bl.goalID].ID == m.refreshing {
				row += " " + m.spinner.View()
			}
		case lineBranch:
			row = fmt.Sprintf("    %s %.0f%%", bl.title, bl.progress)
		case lineNode:
			row = fmt.Sprintf("      %s %s (%d XP)", ui.StatusIcon(string(bl.status)), bl.title, bl.xp)
		}
		if i == m.selected {
			row = ui.SelectedRow.Render(row)
		}
		out = append(out, cursor+row)
	}
	return strings.Join(out, "\n")
}

func (m boardModel) renderFooter() string {
	return "\n" + m.lastLog
}

func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
