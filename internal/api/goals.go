package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"levelup/internal/engine"
)

type createGoalRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Timeframe   string     `json:"timeframe"`
	TargetDate  *time.Time `json:"targetDate"`
}

type updateGoalRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Timeframe       *string    `json:"timeframe"`
	TargetDate      *time.Time `json:"targetDate"`
	ClearTargetDate bool       `json:"clearTargetDate"`
}

func (h *Handler) ListGoals(c *gin.Context) {
	goals := h.svc.Goals()
	if goals == nil {
		goals = []*engine.Goal{}
	}
	Success(c, goals)
}

func (h *Handler) GetGoal(c *gin.Context) {
	g, err := h.svc.Goal(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, g)
}

func (h *Handler) CreateGoal(c *gin.Context) {
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	tf, err := engine.ParseTimeframe(req.Timeframe)
	if err != nil {
		h.fail(c, err)
		return
	}

	g, err := h.svc.AddGoal(c.Request.Context(), engine.GoalInput{
		Title:       req.Title,
		Description: req.Description,
		Timeframe:   tf,
		TargetDate:  req.TargetDate,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, g)
}

func (h *Handler) UpdateGoal(c *gin.Context) {
	var req updateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	patch := engine.GoalPatch{
		Title:           req.Title,
		Description:     req.Description,
		TargetDate:      req.TargetDate,
		ClearTargetDate: req.ClearTargetDate,
	}
	if req.Timeframe != nil {
		tf, err := engine.ParseTimeframe(*req.Timeframe)
		if err != nil {
			h.fail(c, err)
			return
		}
		patch.Timeframe = &tf
	}

	g, err := h.svc.UpdateGoal(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, g)
}

func (h *Handler) ArchiveGoal(c *gin.Context) {
	g, err := h.svc.ArchiveGoal(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, g)
}

func (h *Handler) DeleteGoal(c *gin.Context) {
	if err := h.svc.DeleteGoal(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	Success(c, nil)
}
