package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"levelup/internal/engine"
)

type completeNodeRequest struct {
	CompletionNotes string `json:"completionNotes"`
}

type nodeStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	CompletionNotes string `json:"completionNotes"`
}

type nodeView struct {
	*engine.SkillNode
	TreeID string `json:"treeId"`
}

type completeNodeResponse struct {
	Node          *engine.SkillNode    `json:"node"`
	TreeID        string               `json:"treeId"`
	XPGained      int                  `json:"xpGained"`
	NewNodes      []*engine.SkillNode  `json:"newNodes,omitempty"`
	LevelUp       bool                 `json:"levelUp"`
	NewLevel      *int                 `json:"newLevel,omitempty"`
	TreeCompleted bool                 `json:"treeCompleted"`
	Achievements  []engine.Achievement `json:"achievements,omitempty"`
}

type statsView struct {
	engine.UserStats
	XPToNextLevel int `json:"xpToNextLevel"`
	LevelXP       int `json:"levelXP"`
	LevelSpan     int `json:"levelSpan"`
}

type completionView struct {
	NodeID      string    `json:"nodeId"`
	TreeID      string    `json:"treeId"`
	CompletedAt time.Time `json:"completedAt"`
	XPAwarded   int       `json:"xpAwarded"`
}

type focusView struct {
	Node      *engine.SkillNode `json:"node"`
	TreeID    string            `json:"treeId"`
	GoalID    string            `json:"goalId"`
	GoalTitle string            `json:"goalTitle"`
}

func (h *Handler) GetNode(c *gin.Context) {
	n, treeID, err := h.svc.Node(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, nodeView{SkillNode: n, TreeID: treeID})
}

func (h *Handler) StartNode(c *gin.Context) {
	n, err := h.svc.StartNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, n)
}

func (h *Handler) CompleteNode(c *gin.Context) {
	var req completeNodeRequest
	// The body is optional.
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			BadRequest(c, err.Error())
			return
		}
	}
	h.complete(c, req.CompletionNotes)
}

// UpdateNodeStatus accepts in_progress and completed; every other target is
// owned by the resolver.
func (h *Handler) UpdateNodeStatus(c *gin.Context) {
	var req nodeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	switch engine.NodeStatus(req.Status) {
	case engine.NodeInProgress:
		h.StartNode(c)
	case engine.NodeCompleted:
		h.complete(c, req.CompletionNotes)
	default:
		h.fail(c, fmt.Errorf("%w: status %q cannot be set directly", engine.ErrInvalidInput, req.Status))
	}
}

func (h *Handler) complete(c *gin.Context, notes string) {
	res, err := h.svc.CompleteNode(c.Request.Context(), c.Param("id"), notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := completeNodeResponse{
		Node:          res.Node,
		TreeID:        res.TreeID,
		XPGained:      res.XPGained,
		NewNodes:      res.NewNodes,
		LevelUp:       res.LevelUp,
		TreeCompleted: res.TreeCompleted,
		Achievements:  res.Achievements,
	}
	if res.LevelUp {
		lvl := res.NewLevel
		out.NewLevel = &lvl
	}
	Success(c, out)
}

func (h *Handler) GetStats(c *gin.Context) {
	st := h.svc.Stats()
	into, span := engine.LevelProgress(st.TotalXP)
	Success(c, statsView{
		UserStats:     st,
		XPToNextLevel: engine.XPToNextLevel(st.Level, st.TotalXP),
		LevelXP:       into,
		LevelSpan:     span,
	})
}

func (h *Handler) ListAchievements(c *gin.Context) {
	Success(c, h.svc.Achievements())
}

func (h *Handler) Focus(c *gin.Context) {
	out := []focusView{}
	for _, f := range h.svc.AvailableNodes() {
		out = append(out, focusView{Node: f.Node, TreeID: f.TreeID, GoalID: f.GoalID, GoalTitle: f.GoalTitle})
	}
	Success(c, out)
}

func (h *Handler) RecentCompletions(c *gin.Context) {
	limit := 10
	if s := c.Query("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil {
			limit = l
		}
	}
	rows, err := h.svc.RecentCompletions(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]completionView, 0, len(rows))
	for _, r := range rows {
		out = append(out, completionView{NodeID: r.NodeID, TreeID: r.TreeID, CompletedAt: r.CompletedAt, XPAwarded: r.XPAwarded})
	}
	Success(c, out)
}
