// Package metrics provides Prometheus metrics collection for GeoShield
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoshield",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geoshield",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	httpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "geoshield",
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
		[]string{"service"},
	)
)

// Risk and analytics metrics
var (
	riskScoreHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geoshield",
			Name:      "risk_score",
			Help:      "Risk score distribution for evaluated login attempts",
			Buckets:   []float64{0, 10, 25, 35, 50, 65, 80, 90, 100}, // 0-100 scale
		},
		[]string{"level"}, // level: low, medium, high
	)

	attemptsLoggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoshield",
			Name:      "attempts_logged_total",
			Help:      "Total number of login attempts recorded in the analytics ledger",
		},
		[]string{"level", "not_me"}, // not_me: "true" or "false"
	)
)

// Threat intel metrics
var (
	intelLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoshield",
			Name:      "intel_lookups_total",
			Help:      "Total number of threat intel sub-lookups",
		},
		[]string{"source", "outcome"}, // source: geo, vt, otx; outcome: success, degraded
	)

	intelCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoshield",
			Name:      "intel_cache_total",
			Help:      "Threat intel cache lookups",
		},
		[]string{"outcome"}, // outcome: hit, miss, error
	)
)

// Assistant metrics
var (
	assistantRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoshield",
			Name:      "assistant_requests_total",
			Help:      "Total number of narrative assistant requests",
		},
		[]string{"mode", "outcome"}, // mode: live, offline; outcome: success, failure
	)

	assistantDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geoshield",
			Name:      "assistant_duration_seconds",
			Help:      "Time taken to produce an assistant answer",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)
)

// Middleware returns a Gin middleware that records HTTP metrics.
// serviceName is used as the "service" label on all metrics.
func Middleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		// Skip metrics endpoint itself to avoid recursion
		if path == "/metrics" {
			c.Next()
			return
		}

		httpRequestsInFlight.WithLabelValues(serviceName).Inc()
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(serviceName, method, path, status).Inc()
		httpRequestDuration.WithLabelValues(serviceName, method, path).Observe(duration)
		httpRequestsInFlight.WithLabelValues(serviceName).Dec()
	}
}

// Handler returns a gin.HandlerFunc that serves Prometheus metrics.
// Register this on the "/metrics" route.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordRiskScore records an evaluated risk score with its level
func RecordRiskScore(level string, score float64) {
	riskScoreHistogram.WithLabelValues(level).Observe(score)
}

// RecordAttemptLogged records an attempt written to the analytics ledger
func RecordAttemptLogged(level string, notMe bool) {
	attemptsLoggedTotal.WithLabelValues(level, strconv.FormatBool(notMe)).Inc()
}

// RecordIntelLookup records a single threat intel sub-lookup outcome
func RecordIntelLookup(source, outcome string) {
	intelLookupsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordIntelCache records a threat intel cache lookup outcome
func RecordIntelCache(outcome string) {
	intelCacheTotal.WithLabelValues(outcome).Inc()
}

// RecordAssistantRequest records an assistant request outcome and duration
func RecordAssistantRequest(mode, outcome string, duration time.Duration) {
	assistantRequestsTotal.WithLabelValues(mode, outcome).Inc()
	assistantDuration.WithLabelValues(mode).Observe(duration.Seconds())
}
