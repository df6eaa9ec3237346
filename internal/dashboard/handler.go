// Package dashboard exposes the HTTP API for the security-operations
// dashboard: login simulation, analytics views, threat intel and the
// narrative assistant.
package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/geoshield/geoshield/internal/analytics"
	"github.com/geoshield/geoshield/internal/assistant"
	"github.com/geoshield/geoshield/internal/auth"
	apperrors "github.com/geoshield/geoshield/internal/common/errors"
	"github.com/geoshield/geoshield/internal/intel"
	"github.com/geoshield/geoshield/internal/risk"
)

// Handler holds the dashboard's service dependencies
type Handler struct {
	login     *auth.Service
	evaluator *risk.Evaluator
	weights   *risk.WeightStore
	attempts  *analytics.AttemptLogger
	reporter  *analytics.Reporter
	gateway   intel.Gateway
	generator assistant.Generator
	logger    *zap.Logger
}

// NewHandler creates the dashboard handler
func NewHandler(login *auth.Service, evaluator *risk.Evaluator, weights *risk.WeightStore,
	attempts *analytics.AttemptLogger, reporter *analytics.Reporter,
	gateway intel.Gateway, generator assistant.Generator, logger *zap.Logger) *Handler {
	return &Handler{
		login:     login,
		evaluator: evaluator,
		weights:   weights,
		attempts:  attempts,
		reporter:  reporter,
		gateway:   gateway,
		generator: generator,
		logger:    logger.With(zap.String("component", "dashboard_handler")),
	}
}

// RegisterRoutes registers all dashboard API routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/services-status", h.ServicesStatus)

	r.POST("/login", h.Login)
	r.POST("/evaluate", h.Evaluate)

	r.GET("/analytics", h.GetAnalytics)
	r.DELETE("/analytics", h.ResetAnalytics)

	r.GET("/weights", h.GetWeights)
	r.PUT("/weights", h.PutWeights)

	r.GET("/stats/summary", h.StatsSummary)
	r.GET("/stats/countries", h.StatsCountries)
	r.GET("/stats/hours", h.StatsHours)
	r.GET("/stats/threats", h.StatsThreats)
	r.GET("/attempts", h.ListAttempts)

	r.POST("/ip-intel", h.IPIntel)
	r.POST("/assistant", h.Assistant)
}

// ServicesStatus reports the intel gateway mode and per-source availability
func (h *Handler) ServicesStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.gateway.Status())
}

// Login runs the demo login flow and returns the risk assessment
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("invalid login payload"))
		return
	}
	if req.Username == "" {
		apperrors.HandleError(c, apperrors.ValidationError("username is required"))
		return
	}

	result, err := h.login.Login(c.Request.Context(), req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type evaluateRequest struct {
	State         string `json:"state"`
	TravelCountry string `json:"travelCountry"`
	ActualCountry string `json:"actualCountry"`
	Device        string `json:"device"`
	Network       string `json:"network"`
	ThreatTag     string `json:"threatTag"`
	NotMe         bool   `json:"notMe"`
	IP            string `json:"ip"`
	Scenario      string `json:"scenario"`
}

// Evaluate scores a manually constructed attempt context and records it
func (h *Handler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("invalid evaluation payload"))
		return
	}

	ctx := c.Request.Context()
	riskCtx := risk.Context{
		State:         req.State,
		TravelCountry: req.TravelCountry,
		ActualCountry: req.ActualCountry,
		Device:        req.Device,
		Network:       req.Network,
		ThreatTag:     req.ThreatTag,
		NotMe:         req.NotMe,
	}

	assessment := h.evaluator.Evaluate(riskCtx, h.weights.Load(ctx))

	snapshot, err := h.attempts.LogAttempt(ctx, analytics.Record{
		Context:    riskCtx,
		Assessment: assessment,
		IP:         req.IP,
		Scenario:   req.Scenario,
	})
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessment": assessment,
		"analytics":  snapshot,
	})
}

// GetAnalytics returns the normalized analytics snapshot
func (h *Handler) GetAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.attempts.Snapshot(c.Request.Context()))
}

// ResetAnalytics clears the analytics ledger
func (h *Handler) ResetAnalytics(c *gin.Context) {
	if err := h.attempts.Reset(c.Request.Context()); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// GetWeights returns the active risk weights
func (h *Handler) GetWeights(c *gin.Context) {
	c.JSON(http.StatusOK, h.weights.Load(c.Request.Context()))
}

// PutWeights replaces the risk weights; changes apply to the next evaluation
func (h *Handler) PutWeights(c *gin.Context) {
	var weights risk.Weights
	if err := c.ShouldBindJSON(&weights); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("invalid weights payload"))
		return
	}
	if weights.TravelMismatch < 0 || weights.NewDevice < 0 || weights.NetworkRisk < 0 ||
		weights.ThreatIntel < 0 || weights.NotMe < 0 {
		apperrors.HandleError(c, apperrors.ValidationError("weights must be non-negative"))
		return
	}

	if err := h.weights.Save(c.Request.Context(), weights); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, weights)
}

// StatsSummary returns the headline summary with the active-alert banner
func (h *Handler) StatsSummary(c *gin.Context) {
	snapshot := h.attempts.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, h.reporter.Summarize(snapshot))
}

// StatsCountries returns the country ranking with map intensities
func (h *Handler) StatsCountries(c *gin.Context) {
	snapshot := h.attempts.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"countries": h.reporter.RankCountries(snapshot)})
}

// StatsHours returns the 24-bucket hourly histogram
func (h *Handler) StatsHours(c *gin.Context) {
	snapshot := h.attempts.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"hours": h.reporter.HourlyHistogram(snapshot)})
}

// StatsThreats returns the per-IP threat rollup
func (h *Handler) StatsThreats(c *gin.Context) {
	snapshot := h.attempts.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, h.reporter.ThreatRollup(snapshot))
}

// ListAttempts returns a filtered slice of the attempt log
func (h *Handler) ListAttempts(c *gin.Context) {
	filter := analytics.AttemptFilter{
		Level:     c.Query("level"),
		Country:   c.Query("country"),
		NotMeOnly: c.Query("notMe") == "true",
	}

	snapshot := h.attempts.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"attempts": h.reporter.FilterAttempts(snapshot, filter)})
}

type ipIntelRequest struct {
	IP string `json:"ip"`
}

// IPIntel resolves threat intelligence for an IPv4 address
func (h *Handler) IPIntel(c *gin.Context) {
	var req ipIntelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("invalid ip-intel payload"))
		return
	}
	if req.IP == "" {
		apperrors.HandleError(c, apperrors.ValidationError("ip is required"))
		return
	}

	result, err := h.gateway.Lookup(c.Request.Context(), req.IP)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type assistantRequest struct {
	Question  string              `json:"question"`
	Analytics *analytics.Snapshot `json:"analytics"`
}

// Assistant answers a free-form question about the analytics ledger.
// A client-supplied snapshot takes precedence over the stored one.
func (h *Handler) Assistant(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("invalid assistant payload"))
		return
	}
	if req.Question == "" {
		apperrors.HandleError(c, apperrors.ValidationError("question is required"))
		return
	}

	snapshot := req.Analytics
	if snapshot == nil {
		snapshot = h.attempts.Snapshot(c.Request.Context())
	} else {
		snapshot.Normalize()
	}

	answer, err := h.generator.Answer(c.Request.Context(), req.Question, snapshot)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
