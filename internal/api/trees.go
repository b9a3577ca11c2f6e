package api

import (
	"github.com/gin-gonic/gin"

	"levelup/internal/engine"
)

type generateTreeRequest struct {
	GoalID           string   `json:"goalId" binding:"required"`
	ContextSourceIDs []string `json:"contextSourceIds"`
}

type refreshTreeResponse struct {
	Tree          *engine.TreePayload `json:"tree"`
	NodesAdded    int                 `json:"nodesAdded"`
	NodesModified int                 `json:"nodesModified"`
	NodesRemoved  int                 `json:"nodesRemoved"`
	Retained      []string            `json:"retained,omitempty"`
	Unlocked      []string            `json:"unlocked,omitempty"`
}

func (h *Handler) ListTrees(c *gin.Context) {
	out := []*engine.TreePayload{}
	for _, t := range h.svc.Trees() {
		out = append(out, t.Payload())
	}
	Success(c, out)
}

func (h *Handler) GetTree(c *gin.Context) {
	t, err := h.svc.Tree(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, t.Payload())
}

func (h *Handler) GenerateTree(c *gin.Context) {
	var req generateTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.GenerateTree(c.Request.Context(), req.GoalID, req.ContextSourceIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, t.Payload())
}

func (h *Handler) CreateDemoTree(c *gin.Context) {
	var req struct {
		GoalID string `json:"goalId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.CreateDemoTree(c.Request.Context(), req.GoalID)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, t.Payload())
}

func (h *Handler) RefreshTree(c *gin.Context) {
	res, err := h.svc.RefreshTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, refreshTreeResponse{
		Tree:          res.Tree.Payload(),
		NodesAdded:    res.NodesAdded,
		NodesModified: res.NodesModified,
		NodesRemoved:  res.NodesRemoved,
		Retained:      res.Retained,
		Unlocked:      res.Unlocked,
	})
}
