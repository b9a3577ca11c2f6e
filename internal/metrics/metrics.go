package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"levelup/internal/engine"
)

// Metrics owns a private registry so several instances (tests, one per
// server) never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	EngineEvents    *prometheus.CounterVec
	MergeChanges    *prometheus.CounterVec
	Level           prometheus.Gauge
	TotalXP         prometheus.Gauge
	CurrentStreak   prometheus.Gauge
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		EngineEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levelup_engine_events_total",
				Help: "Committed engine state changes by kind",
			},
			[]string{"kind"},
		),
		MergeChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levelup_merge_nodes_total",
				Help: "Nodes touched by tree refresh merges",
			},
			[]string{"change"},
		),
		Level: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "levelup_player_level",
			Help: "Current player level",
		}),
		TotalXP: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "levelup_player_xp_total",
			Help: "Total XP earned",
		}),
		CurrentStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "levelup_player_streak_days",
			Help: "Current daily completion streak",
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"method", "endpoint"},
		),
	}
	m.Registry.MustRegister(
		m.EngineEvents,
		m.MergeChanges,
		m.Level,
		m.TotalXP,
		m.CurrentStreak,
		m.RequestCounter,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SetStats primes the player gauges, e.g. at startup.
func (m *Metrics) SetStats(s engine.UserStats) {
	m.Level.Set(float64(s.Level))
	m.TotalXP.Set(float64(s.TotalXP))
	m.CurrentStreak.Set(float64(s.CurrentStreak))
}

// Observe is an engine event handler; pass it to Events.Subscribe.
func (m *Metrics) Observe(ev engine.Event) {
	m.EngineEvents.WithLabelValues(string(ev.Kind)).Inc()
	switch ev.Kind {
	case engine.EventStatsChanged:
		if ev.Stats != nil {
			m.SetStats(*ev.Stats)
		}
	case engine.EventTreeMerged:
		m.MergeChanges.WithLabelValues("added").Add(float64(ev.NodesAdded))
		m.MergeChanges.WithLabelValues("modified").Add(float64(ev.NodesModified))
		m.MergeChanges.WithLabelValues("removed").Add(float64(ev.NodesRemoved))
	}
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
