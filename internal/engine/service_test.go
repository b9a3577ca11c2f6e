package engine

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"levelup/internal/storage"
)

type fakeGenerator struct {
	mu       sync.Mutex
	generate func(ctx context.Context, req GenerateRequest) (*TreePayload, error)
	refresh  func(ctx context.Context, req RefreshRequest) (*TreePayload, error)
	calls    int
}

func (f *fakeGenerator) GenerateTree(ctx context.Context, req GenerateRequest) (*TreePayload, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.generate(ctx, req)
}

func (f *fakeGenerator) RefreshTree(ctx context.Context, req RefreshRequest) (*TreePayload, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.refresh(ctx, req)
}

type registeringGenerator struct {
	*fakeGenerator
	err error
}

func (r registeringGenerator) CreateGoal(ctx context.Context, in GoalInput) (*Goal, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &Goal{ID: "remote-" + in.Title, Title: in.Title}, nil
}

func staticTree(nodes ...NodePayload) func(context.Context, GenerateRequest) (*TreePayload, error) {
	return func(_ context.Context, req GenerateRequest) (*TreePayload, error) {
		return &TreePayload{
			Title:    req.Goal.Title,
			Branches: []BranchPayload{{ID: "main", Name: "Main", Nodes: nodes}},
		}, nil
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestService(t *testing.T, db *sql.DB, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
	}
	svc, err := NewService(context.Background(), db, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func addGoal(t *testing.T, svc *Service, title string) *Goal {
	t.Helper()
	g, err := svc.AddGoal(context.Background(), GoalInput{Title: title})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	return g
}

func TestGoalToLevelUp(t *testing.T) {
	gen := &fakeGenerator{generate: staticTree(
		NodePayload{ID: "big", Title: "Big quest", XPValue: 450, LinkedStats: []string{"STR"}},
		NodePayload{ID: "next", Title: "Next", Prerequisites: []string{"big"}, XPValue: 10},
	)}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	ctx := context.Background()

	g := addGoal(t, svc, "Run a marathon")
	if g.Timeframe != DefaultTimeframe || g.Status != GoalActive {
		t.Fatalf("unexpected goal defaults: %+v", g)
	}
	tree, err := svc.GenerateTree(ctx, g.ID, []string{"doc-1"})
	if err != nil {
		t.Fatalf("GenerateTree: %v", err)
	}
	if tree.GoalID != g.ID || tree.TotalNodes() != 2 {
		t.Fatalf("unexpected tree: goal=%s nodes=%d", tree.GoalID, tree.TotalNodes())
	}

	res, err := svc.CompleteNode(ctx, "big", "  done  ")
	if err != nil {
		t.Fatalf("CompleteNode: %v", err)
	}
	if !res.LevelUp || res.NewLevel != 2 || res.XPGained != 450 {
		t.Fatalf("unexpected result: levelUp=%v newLevel=%d xp=%d", res.LevelUp, res.NewLevel, res.XPGained)
	}
	if res.Node.CompletionNotes != "done" || res.Node.CompletedAt == nil {
		t.Fatalf("completion data missing: %+v", res.Node)
	}
	if len(res.NewNodes) != 1 || res.NewNodes[0].ID != "next" || res.NewNodes[0].Status != NodeAvailable {
		t.Fatalf("unexpected new nodes: %+v", res.NewNodes)
	}

	stats := svc.Stats()
	if stats.TotalXP != 450 || stats.STR != 11 || stats.CurrentStreak != 1 || stats.NodesCompleted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCompleteNodeStateMachine(t *testing.T) {
	gen := &fakeGenerator{generate: staticTree(
		NodePayload{ID: "a", Title: "A", XPValue: 10},
		NodePayload{ID: "b", Title: "B", Prerequisites: []string{"a"}, XPValue: 10},
	)}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	ctx := context.Background()
	g := addGoal(t, svc, "Learn Go")
	if _, err := svc.GenerateTree(ctx, g.ID, nil); err != nil {
		t.Fatalf("GenerateTree: %v", err)
	}

	if _, err := svc.CompleteNode(ctx, "missing", ""); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("err = %v, want ErrNodeNotFound", err)
	}

	_, err := svc.CompleteNode(ctx, "b", "")
	var it InvalidTransition
	if !errors.Is(err, ErrInvalidTransition) || !errors.As(err, &it) {
		t.Fatalf("err = %v, want InvalidTransition", err)
	}
	if it.From != NodeLocked || it.To != NodeCompleted {
		t.Fatalf("unexpected transition %+v", it)
	}
	if _, err := svc.StartNode(ctx, "b"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("StartNode locked err = %v", err)
	}

	started, err := svc.StartNode(ctx, "a")
	if err != nil {
		t.Fatalf("StartNode: %v", err)
	}
	if started.Status != NodeInProgress {
		t.Fatalf("status %s, want in_progress", started.Status)
	}
	if _, err := svc.CompleteNode(ctx, "a", ""); err != nil {
		t.Fatalf("CompleteNode from in_progress: %v", err)
	}
	if _, err := svc.CompleteNode(ctx, "a", ""); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second completion err = %v, want ErrAlreadyCompleted", err)
	}
	if svc.Stats().NodesCompleted != 1 {
		t.Fatalf("failed completion changed stats")
	}
}

func TestGenerateTreeRejectsInvalidPayloadWhole(t *testing.T) {
	gen := &fakeGenerator{generate: staticTree(
		NodePayload{ID: "a", Title: "A"},
		NodePayload{ID: "b", Title: "B", Prerequisites: []string{"c"}},
		NodePayload{ID: "c", Title: "C", Prerequisites: []string{"b"}},
	)}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	ctx := context.Background()
	g := addGoal(t, svc, "Cycles")

	if _, err := svc.GenerateTree(ctx, g.ID, nil); !errors.Is(err, ErrStructural) {
		t.Fatalf("err = %v, want ErrStructural", err)
	}
	if _, err := svc.TreeForGoal(g.ID); !errors.Is(err, ErrTreeNotFound) {
		t.Fatalf("invalid tree was attached: %v", err)
	}
	if _, _, err := svc.Node("a"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("node of rejected tree is reachable: %v", err)
	}
}

func TestGenerateTreeErrors(t *testing.T) {
	boom := errors.New("connection refused")
	gen := &fakeGenerator{generate: func(context.Context, GenerateRequest) (*TreePayload, error) { return nil, boom }}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	ctx := context.Background()

	if _, err := svc.GenerateTree(ctx, "nope", nil); !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("err = %v, want ErrGoalNotFound", err)
	}
	g := addGoal(t, svc, "Backend down")
	_, err := svc.GenerateTree(ctx, g.ID, nil)
	if !errors.Is(err, ErrBackendUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want backend error wrapping cause", err)
	}

	if _, err := svc.CreateDemoTree(ctx, g.ID); err != nil {
		t.Fatalf("CreateDemoTree: %v", err)
	}
	if _, err := svc.GenerateTree(ctx, g.ID, nil); !errors.Is(err, ErrGoalHasTree) {
		t.Fatalf("err = %v, want ErrGoalHasTree", err)
	}
}

func TestNodeIDsAreUniqueAcrossTrees(t *testing.T) {
	gen := &fakeGenerator{generate: staticTree(NodePayload{ID: "shared", Title: "Shared"})}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	ctx := context.Background()

	if _, err := svc.GenerateTree(ctx, addGoal(t, svc, "One").ID, nil); err != nil {
		t.Fatalf("GenerateTree: %v", err)
	}
	_, err := svc.GenerateTree(ctx, addGoal(t, svc, "Two").ID, nil)
	var dn DuplicateNode
	if !errors.As(err, &dn) || dn.NodeID != "shared" {
		t.Fatalf("err = %v, want DuplicateNode shared", err)
	}
}

func TestDemoTreeFlow(t *testing.T) {
	svc := newTestService(t, openTestDB(t))
	ctx := context.Background()
	g := addGoal(t, svc, "Build an app")

	tree, err := svc.CreateDemoTree(ctx, g.ID)
	if err != nil {
		t.Fatalf("CreateDemoTree: %v", err)
	}
	if tree.TotalNodes() != 4 || len(tree.AvailableNodes()) != 2 {
		t.Fatalf("demo tree: %d nodes, %d available", tree.TotalNodes(), len(tree.AvailableNodes()))
	}
	if tree.Branches[0].Name != g.Title {
		t.Fatalf("branch name %q, want goal title", tree.Branches[0].Name)
	}

	research, setup, core, ship := DemoID(g.ID, "research"), DemoID(g.ID, "setup"), DemoID(g.ID, "core"), DemoID(g.ID, "ship")
	if _, err := svc.CompleteNode(ctx, research, ""); err != nil {
		t.Fatalf("complete research: %v", err)
	}
	res, err := svc.CompleteNode(ctx, setup, "")
	if err != nil {
		t.Fatalf("complete setup: %v", err)
	}
	if len(res.NewNodes) != 1 || res.NewNodes[0].ID != core {
		t.Fatalf("core not unlocked: %+v", res.NewNodes)
	}
	if _, err := svc.CompleteNode(ctx, core, ""); err != nil {
		t.Fatalf("complete core: %v", err)
	}
	res, err = svc.CompleteNode(ctx, ship, "")
	if err != nil {
		t.Fatalf("complete ship: %v", err)
	}
	if !res.TreeCompleted {
		t.Fatalf("tree not reported complete")
	}

	stats := svc.Stats()
	// 100 + 75 + 250 + 300
	if stats.TotalXP != 725 || stats.Level != 2 || stats.TreesCompleted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.INT != 12 || stats.DEX != 12 || stats.WIS != 12 || stats.CHA != 11 {
		t.Fatalf("unexpected attributes: %+v", stats)
	}
	goal, _ := svc.Goal(g.ID)
	if goal.Status != GoalCompleted {
		t.Fatalf("goal status %s, want completed", goal.Status)
	}

	earned := map[string]bool{}
	for _, a := range svc.Achievements() {
		if a.Earned {
			earned[a.ID] = true
		}
	}
	for _, id := range []string{"first_quest", "first_tree", "getting_started"} {
		if !earned[id] {
			t.Fatalf("achievement %s not earned", id)
		}
	}
	n, total := CountEarned(svc.Achievements())
	if n != len(earned) || total != len(svc.Achievements()) || n >= total {
		t.Fatalf("CountEarned = %d/%d, earned map has %d", n, total, len(earned))
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	g := addGoal(t, svc, "Persist me")
	if _, err := svc.CreateDemoTree(ctx, g.ID); err != nil {
		t.Fatalf("CreateDemoTree: %v", err)
	}
	if _, err := svc.CompleteNode(ctx, DemoID(g.ID, "research"), "notes"); err != nil {
		t.Fatalf("CompleteNode: %v", err)
	}

	reopened := newTestService(t, db)
	before, _ := svc.TreeForGoal(g.ID)
	after, err := reopened.TreeForGoal(g.ID)
	if err != nil {
		t.Fatalf("TreeForGoal after reopen: %v", err)
	}
	normalize := cmp.Transformer("utc", func(t time.Time) time.Time { return t.UTC() })
	if diff := cmp.Diff(before.Payload(), after.Payload(), normalize); diff != "" {
		t.Fatalf("tree changed across reopen (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(svc.Stats(), reopened.Stats(), normalize); diff != "" {
		t.Fatalf("stats changed across reopen (-before +after):\n%s", diff)
	}
	comps, err := reopened.RecentCompletions(ctx, 5)
	if err != nil {
		t.Fatalf("RecentCompletions: %v", err)
	}
	if len(comps) != 1 || comps[0].XPAwarded != 100 {
		t.Fatalf("unexpected completion log: %+v", comps)
	}
}

func TestDeleteGoalCascades(t *testing.T) {
	svc := newTestService(t, openTestDB(t))
	ctx := context.Background()
	g := addGoal(t, svc, "Short lived")
	tree, err := svc.CreateDemoTree(ctx, g.ID)
	if err != nil {
		t.Fatalf("CreateDemoTree: %v", err)
	}

	if err := svc.DeleteGoal(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	if _, err := svc.Tree(tree.ID); !errors.Is(err, ErrTreeNotFound) {
		t.Fatalf("tree survived: %v", err)
	}
	if _, _, err := svc.Node(DemoID(g.ID, "research")); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("node survived: %v", err)
	}
	if err := svc.DeleteGoal(ctx, g.ID); !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestUpdateAndArchiveGoal(t *testing.T) {
	svc := newTestService(t, openTestDB(t))
	ctx := context.Background()
	g := addGoal(t, svc, "Original")

	empty := "   "
	if _, err := svc.UpdateGoal(ctx, g.ID, GoalPatch{Title: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	title := "Renamed"
	tf := TimeframeAnnual
	target := testNow.AddDate(1, 0, 0)
	updated, err := svc.UpdateGoal(ctx, g.ID, GoalPatch{Title: &title, Timeframe: &tf, TargetDate: &target})
	if err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	if updated.Title != "Renamed" || updated.Timeframe != TimeframeAnnual || updated.TargetDate == nil {
		t.Fatalf("update not applied: %+v", updated)
	}

	archived, err := svc.ArchiveGoal(ctx, g.ID)
	if err != nil {
		t.Fatalf("ArchiveGoal: %v", err)
	}
	if archived.Status != GoalArchived {
		t.Fatalf("status %s, want archived", archived.Status)
	}

	if _, err := svc.AddGoal(ctx, GoalInput{Title: "x", Timeframe: "decade"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad timeframe err = %v", err)
	}
}

func TestAddGoalRegistersRemotely(t *testing.T) {
	ctx := context.Background()

	ok := registeringGenerator{fakeGenerator: &fakeGenerator{}}
	svc := newTestService(t, openTestDB(t), WithGenerator(ok))
	g, err := svc.AddGoal(ctx, GoalInput{Title: "Remote"})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	if g.ID != "remote-Remote" {
		t.Fatalf("id %q, want remote id", g.ID)
	}

	failing := registeringGenerator{fakeGenerator: &fakeGenerator{}, err: errors.New("503")}
	svc = newTestService(t, openTestDB(t), WithGenerator(failing))
	if _, err := svc.AddGoal(ctx, GoalInput{Title: "Remote"}); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if len(svc.Goals()) != 0 {
		t.Fatalf("failed registration left a local goal")
	}
}

func TestRefreshMergesIntoCurrentState(t *testing.T) {
	release := make(chan struct{})
	requested := make(chan struct{})
	gen := &fakeGenerator{
		generate: staticTree(
			NodePayload{ID: "a", Title: "A", XPValue: 10},
			NodePayload{ID: "b", Title: "B", XPValue: 10},
		),
		refresh: func(ctx context.Context, req RefreshRequest) (*TreePayload, error) {
			close(requested)
			<-release
			return &TreePayload{Branches: []BranchPayload{{ID: "main", Name: "Main", Nodes: []NodePayload{
				{ID: "b", Title: "B2", XPValue: 20},
				{ID: "c", Title: "C", Prerequisites: []string{"b"}, XPValue: 30},
			}}}}, nil
		},
	}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	ctx := context.Background()
	g := addGoal(t, svc, "Moving target")
	tree, err := svc.GenerateTree(ctx, g.ID, nil)
	if err != nil {
		t.Fatalf("GenerateTree: %v", err)
	}

	outcome := svc.RefreshTreeAsync(ctx, tree.ID)
	<-requested
	// Progress made while the backend is thinking must survive the merge.
	if _, err := svc.CompleteNode(ctx, "a", ""); err != nil {
		t.Fatalf("CompleteNode: %v", err)
	}
	close(release)

	out := <-outcome
	if out.Err != nil || out.Discarded {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	res := out.Result
	if res.NodesAdded != 1 || res.NodesModified != 1 || res.NodesRemoved != 0 {
		t.Fatalf("counts added=%d modified=%d removed=%d", res.NodesAdded, res.NodesModified, res.NodesRemoved)
	}
	if diff := cmp.Diff([]string{"a"}, res.Retained); diff != "" {
		t.Fatalf("retained mismatch (-want +got):\n%s", diff)
	}
	stored, _ := svc.Tree(tree.ID)
	if statusOf(stored, "a") != NodeCompleted || stored.Node("b").Title != "B2" {
		t.Fatalf("merged tree wrong: a=%s b=%q", statusOf(stored, "a"), stored.Node("b").Title)
	}
}

func TestRefreshAsyncDiscardsAfterCancel(t *testing.T) {
	requested := make(chan struct{})
	gen := &fakeGenerator{
		generate: staticTree(NodePayload{ID: "a", Title: "A"}),
		refresh: func(ctx context.Context, req RefreshRequest) (*TreePayload, error) {
			close(requested)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	g := addGoal(t, svc, "Cancel me")
	tree, err := svc.GenerateTree(context.Background(), g.ID, nil)
	if err != nil {
		t.Fatalf("GenerateTree: %v", err)
	}
	before := tree.Payload()

	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	outcome := svc.RefreshTreeAsync(ctx, tree.ID)
	<-requested
	cancel()

	out, ok := <-outcome
	if !ok || !out.Discarded || out.Err != nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if _, open := <-outcome; open {
		t.Fatalf("outcome channel not closed")
	}
	after, _ := svc.Tree(tree.ID)
	if diff := cmp.Diff(before, after.Payload()); diff != "" {
		t.Fatalf("discarded refresh changed the tree (-before +after):\n%s", diff)
	}
}

func TestRefreshRejectsInvalidResponse(t *testing.T) {
	gen := &fakeGenerator{
		generate: staticTree(NodePayload{ID: "a", Title: "A"}),
		refresh: func(context.Context, RefreshRequest) (*TreePayload, error) {
			return &TreePayload{Branches: []BranchPayload{{ID: "m", Nodes: []NodePayload{
				{ID: "a", Title: "A", Prerequisites: []string{"a"}},
			}}}}, nil
		},
	}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	ctx := context.Background()
	g := addGoal(t, svc, "Self loop")
	tree, err := svc.GenerateTree(ctx, g.ID, nil)
	if err != nil {
		t.Fatalf("GenerateTree: %v", err)
	}
	if _, err := svc.RefreshTree(ctx, tree.ID); !errors.Is(err, ErrStructural) {
		t.Fatalf("err = %v, want ErrStructural", err)
	}
	if _, err := svc.RefreshTree(ctx, "unknown"); !errors.Is(err, ErrTreeNotFound) {
		t.Fatalf("err = %v, want ErrTreeNotFound", err)
	}
}

func TestEventsFollowCommits(t *testing.T) {
	svc := newTestService(t, openTestDB(t))
	ctx := context.Background()

	var mu sync.Mutex
	var kinds []EventKind
	cancel := svc.Events().Subscribe(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	g := addGoal(t, svc, "Observe")
	if _, err := svc.CreateDemoTree(ctx, g.ID); err != nil {
		t.Fatalf("CreateDemoTree: %v", err)
	}
	if _, err := svc.CompleteNode(ctx, DemoID(g.ID, "research"), ""); err != nil {
		t.Fatalf("CompleteNode: %v", err)
	}
	cancel()
	if err := svc.DeleteGoal(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}

	want := []EventKind{EventGoalAdded, EventTreeCreated, EventNodeStatus, EventStatsChanged}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestAvailableNodesSkipsArchivedGoals(t *testing.T) {
	svc := newTestService(t, openTestDB(t))
	ctx := context.Background()
	keep := addGoal(t, svc, "Keep")
	drop := addGoal(t, svc, "Drop")
	for _, g := range []*Goal{keep, drop} {
		if _, err := svc.CreateDemoTree(ctx, g.ID); err != nil {
			t.Fatalf("CreateDemoTree: %v", err)
		}
	}
	if _, err := svc.ArchiveGoal(ctx, drop.ID); err != nil {
		t.Fatalf("ArchiveGoal: %v", err)
	}
	focus := svc.AvailableNodes()
	if len(focus) != 2 {
		t.Fatalf("got %d focus nodes, want 2", len(focus))
	}
	for _, f := range focus {
		if f.GoalID != keep.ID {
			t.Fatalf("archived goal leaked into focus list")
		}
	}
}

func requireCompletedPrerequisites(t *testing.T, tree *SkillTree) {
	t.Helper()
	for _, n := range tree.Nodes() {
		if n.Status != NodeCompleted {
			continue
		}
		for _, pre := range n.Prerequisites {
			if statusOf(tree, pre) != NodeCompleted {
				t.Fatalf("completed node %s has unfinished prerequisite %s", n.ID, pre)
			}
		}
	}
}

func TestCompletionNeedsFinishedPrerequisitesAfterRefresh(t *testing.T) {
	gen := &fakeGenerator{
		generate: staticTree(
			NodePayload{ID: "a", Title: "A", XPValue: 10},
			NodePayload{ID: "b", Title: "B", XPValue: 10},
			NodePayload{ID: "c", Title: "C", XPValue: 10},
		),
		refresh: func(context.Context, RefreshRequest) (*TreePayload, error) {
			return &TreePayload{Branches: []BranchPayload{{ID: "main", Name: "Main", Nodes: []NodePayload{
				{ID: "a", Title: "A", XPValue: 10},
				{ID: "b", Title: "B", Prerequisites: []string{"a"}, XPValue: 10},
				{ID: "c", Title: "C", XPValue: 10},
				{ID: "d", Title: "D", Prerequisites: []string{"c"}, XPValue: 10},
			}}}}, nil
		},
	}
	svc := newTestService(t, openTestDB(t), WithGenerator(gen))
	ctx := context.Background()
	g := addGoal(t, svc, "Shifting ground")
	tree, err := svc.GenerateTree(ctx, g.ID, nil)
	if err != nil {
		t.Fatalf("GenerateTree: %v", err)
	}
	if _, err := svc.CompleteNode(ctx, "c", ""); err != nil {
		t.Fatalf("CompleteNode c: %v", err)
	}
	if _, err := svc.RefreshTree(ctx, tree.ID); err != nil {
		t.Fatalf("RefreshTree: %v", err)
	}

	stored, _ := svc.Tree(tree.ID)
	if statusOf(stored, "b") != NodeAvailable || statusOf(stored, "d") != NodeAvailable {
		t.Fatalf("after refresh b=%s d=%s, want both available", statusOf(stored, "b"), statusOf(stored, "d"))
	}

	_, err = svc.CompleteNode(ctx, "b", "")
	var it InvalidTransition
	if !errors.As(err, &it) || it.NodeID != "b" || it.To != NodeCompleted {
		t.Fatalf("completing b before a: err = %v, want InvalidTransition", err)
	}
	stored, _ = svc.Tree(tree.ID)
	requireCompletedPrerequisites(t, stored)

	for _, id := range []string{"d", "a", "b"} {
		if _, err := svc.CompleteNode(ctx, id, ""); err != nil {
			t.Fatalf("CompleteNode %s: %v", id, err)
		}
		stored, _ = svc.Tree(tree.ID)
		requireCompletedPrerequisites(t, stored)
	}
	if !stored.IsComplete() {
		t.Fatalf("tree not complete after finishing every node")
	}
	if st := svc.Stats(); st.TotalXP != 40 {
		t.Fatalf("TotalXP=%d, want 40", st.TotalXP)
	}
}
