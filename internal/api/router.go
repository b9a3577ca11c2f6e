// Package api exposes the engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"levelup/internal/engine"
	"levelup/internal/metrics"
)

type Handler struct {
	svc *engine.Service
	log *zap.Logger
}

func NewHandler(svc *engine.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// NewRouter wires every route. m may be nil, which drops /metrics and the
// request instrumentation.
func NewRouter(svc *engine.Service, m *metrics.Metrics, log *zap.Logger) *gin.Engine {
	h := NewHandler(svc, log)

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog())
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", m.Handler())
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a := r.Group("/api/arise")
	{
		a.GET("/goals", h.ListGoals)
		a.POST("/goals", h.CreateGoal)
		a.GET("/goals/:id", h.GetGoal)
		a.PATCH("/goals/:id", h.UpdateGoal)
		a.POST("/goals/:id/archive", h.ArchiveGoal)
		a.DELETE("/goals/:id", h.DeleteGoal)

		a.GET("/trees", h.ListTrees)
		a.POST("/trees/generate", h.GenerateTree)
		a.POST("/trees/demo", h.CreateDemoTree)
		a.GET("/trees/:id", h.GetTree)
		a.POST("/trees/:id/refresh", h.RefreshTree)

		a.GET("/nodes/:id", h.GetNode)
		a.POST("/nodes/:id/start", h.StartNode)
		a.POST("/nodes/:id/complete", h.CompleteNode)
		a.PUT("/nodes/:id/status", h.UpdateNodeStatus)

		a.GET("/stats", h.GetStats)
		a.GET("/achievements", h.ListAchievements)
		a.GET("/focus", h.Focus)
		a.GET("/completions", h.RecentCompletions)
	}
	return r
}

func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
