package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelup/internal/engine"
)

func TestObserveEngineEvents(t *testing.T) {
	m := New()
	stats := engine.NewUserStats()
	stats.Level = 3
	stats.TotalXP = 950
	stats.CurrentStreak = 4

	m.Observe(engine.Event{Kind: engine.EventNodeStatus})
	m.Observe(engine.Event{Kind: engine.EventNodeStatus})
	m.Observe(engine.Event{Kind: engine.EventStatsChanged, Stats: &stats})
	m.Observe(engine.Event{Kind: engine.EventTreeMerged, NodesAdded: 2, NodesModified: 1, NodesRemoved: 3})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EngineEvents.WithLabelValues(string(engine.EventNodeStatus))))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Level))
	assert.Equal(t, 950.0, testutil.ToFloat64(m.TotalXP))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CurrentStreak))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MergeChanges.WithLabelValues("added")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MergeChanges.WithLabelValues("removed")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "http_requests_total"), "metrics output lacks request counter")
	assert.Contains(t, body, "levelup_player_level")
}
