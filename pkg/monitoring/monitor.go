package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)

	QuestToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_quest_toggles_total",
			Help: "Quest completion toggles by outcome",
		},
		[]string{"outcome"},
	)

	DaySettlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_day_settlements_total",
			Help: "Day close attempts by outcome",
		},
		[]string{"outcome"},
	)

	BadgeAwards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_badge_awards_total",
			Help: "Badges minted by badge id",
		},
		[]string{"badge"},
	)

	TemplateClones = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_template_clones_total",
			Help: "Quests cloned from pinned templates",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(QuestToggles)
	prometheus.MustRegister(DaySettlements)
	prometheus.MustRegister(BadgeAwards)
	prometheus.MustRegister(TemplateClones)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
