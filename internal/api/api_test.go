package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelup/internal/engine"
	"levelup/internal/metrics"
	"levelup/internal/storage"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *engine.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc, err := engine.NewService(context.Background(), db,
		engine.WithClock(func() time.Time { return testNow }),
		engine.WithLocation(time.UTC))
	require.NoError(t, err)

	return NewRouter(svc, metrics.New(), nil), svc
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func createGoal(t *testing.T, r http.Handler, title string) engine.Goal {
	t.Helper()
	w := performRequest(r, http.MethodPost, "/api/arise/goals", map[string]any{"title": title, "timeframe": "month"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var g engine.Goal
	decode(t, w, &g)
	return g
}

func TestCreateGoal(t *testing.T) {
	r, _ := setupRouter(t)

	g := createGoal(t, r, "  Learn Go ")
	assert.Equal(t, "Learn Go", g.Title)
	assert.Equal(t, engine.TimeframeMonthly, g.Timeframe)
	assert.Equal(t, engine.GoalActive, g.Status)

	w := performRequest(r, http.MethodGet, "/api/arise/goals", nil)
	var goals []engine.Goal
	env := decode(t, w, &goals)
	assert.Equal(t, http.StatusOK, env.Code)
	require.Len(t, goals, 1)
	assert.Equal(t, g.ID, goals[0].ID)
}

func TestCreateGoal_Invalid(t *testing.T) {
	r, _ := setupRouter(t)

	w := performRequest(r, http.MethodPost, "/api/arise/goals", map[string]any{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/api/arise/goals", map[string]any{"title": "x", "timeframe": "fortnight"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.Contains(t, env.Message, "fortnight")
}

func TestUpdateAndArchiveGoal(t *testing.T) {
	r, _ := setupRouter(t)
	g := createGoal(t, r, "Learn Go")

	w := performRequest(r, http.MethodPatch, "/api/arise/goals/"+g.ID, map[string]any{"title": "Master Go", "timeframe": "year"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated engine.Goal
	decode(t, w, &updated)
	assert.Equal(t, "Master Go", updated.Title)
	assert.Equal(t, engine.TimeframeAnnual, updated.Timeframe)

	w = performRequest(r, http.MethodPost, "/api/arise/goals/"+g.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var archived engine.Goal
	decode(t, w, &archived)
	assert.Equal(t, engine.GoalArchived, archived.Status)

	w = performRequest(r, http.MethodPatch, "/api/arise/goals/missing", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDemoTreeFlow(t *testing.T) {
	r, _ := setupRouter(t)
	g := createGoal(t, r, "Ship a CLI")

	w := performRequest(r, http.MethodPost, "/api/arise/trees/demo", map[string]any{"goalId": g.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tree engine.TreePayload
	decode(t, w, &tree)
	require.Len(t, tree.Branches, 1)
	require.NotNil(t, tree.Progress)
	assert.Equal(t, 0.0, *tree.Progress)

	w = performRequest(r, http.MethodPost, "/api/arise/trees/demo", map[string]any{"goalId": g.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	core := engine.DemoID(g.ID, "core")
	w = performRequest(r, http.MethodPost, "/api/arise/nodes/"+core+"/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = performRequest(r, http.MethodPut, "/api/arise/nodes/"+engine.DemoID(g.ID, "research")+"/status", map[string]any{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var started engine.SkillNode
	decode(t, w, &started)
	assert.Equal(t, engine.NodeInProgress, started.Status)

	var res completeNodeResponse
	w = performRequest(r, http.MethodPost, "/api/arise/nodes/"+engine.DemoID(g.ID, "research")+"/complete", map[string]any{"completionNotes": "done"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &res)
	assert.Equal(t, 100, res.XPGained)
	assert.False(t, res.LevelUp)
	assert.Nil(t, res.NewLevel)
	assert.Empty(t, res.NewNodes)

	w = performRequest(r, http.MethodPost, "/api/arise/nodes/"+engine.DemoID(g.ID, "setup")+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = completeNodeResponse{}
	decode(t, w, &res)
	require.Len(t, res.NewNodes, 1)
	assert.Equal(t, core, res.NewNodes[0].ID)

	w = performRequest(r, http.MethodPut, "/api/arise/nodes/"+core+"/status", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = completeNodeResponse{}
	decode(t, w, &res)
	assert.True(t, res.LevelUp)
	require.NotNil(t, res.NewLevel)
	assert.Equal(t, 2, *res.NewLevel)

	w = performRequest(r, http.MethodPost, "/api/arise/nodes/"+core+"/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = performRequest(r, http.MethodGet, "/api/arise/stats", nil)
	var st statsView
	decode(t, w, &st)
	assert.Equal(t, 425, st.TotalXP)
	assert.Equal(t, 2, st.Level)
	assert.Equal(t, 3, st.NodesCompleted)
	assert.Equal(t, 900-425, st.XPToNextLevel)
	assert.Equal(t, 1, st.CurrentStreak)

	w = performRequest(r, http.MethodGet, "/api/arise/focus", nil)
	var focus []focusView
	decode(t, w, &focus)
	require.Len(t, focus, 1)
	assert.Equal(t, engine.DemoID(g.ID, "ship"), focus[0].Node.ID)

	w = performRequest(r, http.MethodGet, "/api/arise/completions?limit=2", nil)
	var recent []completionView
	decode(t, w, &recent)
	assert.Len(t, recent, 2)
}

func TestCompleteNode_StreamedBody(t *testing.T) {
	r, _ := setupRouter(t)
	g := createGoal(t, r, "Ship a CLI")
	performRequest(r, http.MethodPost, "/api/arise/trees/demo", map[string]any{"goalId": g.ID})

	send := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/arise/nodes/"+engine.DemoID(g.ID, id)+"/complete", nil)
		req.Body = io.NopCloser(strings.NewReader(body))
		req.ContentLength = -1
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send("research", `{"completionNotes": "read the docs"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res completeNodeResponse
	decode(t, w, &res)
	assert.Equal(t, "read the docs", res.Node.CompletionNotes)

	w = send("setup", `{"completionNotes": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send("setup", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = completeNodeResponse{}
	decode(t, w, &res)
	assert.Empty(t, res.Node.CompletionNotes)
}

func TestUpdateNodeStatus_Rejected(t *testing.T) {
	r, _ := setupRouter(t)
	g := createGoal(t, r, "Ship a CLI")
	performRequest(r, http.MethodPost, "/api/arise/trees/demo", map[string]any{"goalId": g.ID})

	w := performRequest(r, http.MethodPut, "/api/arise/nodes/"+engine.DemoID(g.ID, "research")+"/status", map[string]any{"status": "locked"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	for _, path := range []string{"/api/arise/trees/nope", "/api/arise/goals/nope", "/api/arise/nodes/nope"} {
		w := performRequest(r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := performRequest(r, http.MethodPost, "/api/arise/nodes/nope/complete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateWithoutBackend(t *testing.T) {
	r, _ := setupRouter(t)
	g := createGoal(t, r, "Learn Go")

	w := performRequest(r, http.MethodPost, "/api/arise/trees/generate", map[string]any{"goalId": g.ID})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestDeleteGoal(t *testing.T) {
	r, svc := setupRouter(t)
	g := createGoal(t, r, "Learn Go")
	performRequest(r, http.MethodPost, "/api/arise/trees/demo", map[string]any{"goalId": g.ID})

	w := performRequest(r, http.MethodDelete, "/api/arise/goals/"+g.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.Trees())

	w = performRequest(r, http.MethodDelete, "/api/arise/goals/"+g.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := setupRouter(t)

	w := performRequest(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}
