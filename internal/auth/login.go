// Package auth implements the demo login flow: a hardcoded credential
// check, device-identity markers, and risk evaluation of every attempt.
package auth

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geoshield/geoshield/internal/analytics"
	"github.com/geoshield/geoshield/internal/common/kv"
	"github.com/geoshield/geoshield/internal/risk"
)

// DeviceIDKey is the storage key for the known device marker.
const DeviceIDKey = "deviceID"

// LoginRequest carries the demo login form plus the simulated context
type LoginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	State         string `json:"state"`
	TravelCountry string `json:"travelCountry"`
	ActualCountry string `json:"actualCountry"`
	Network       string `json:"network"`
	ThreatTag     string `json:"threatTag"`
	NotMe         bool   `json:"notMe"`
	DeviceID      string `json:"deviceID"`
	IP            string `json:"ip"`
	Scenario      string `json:"scenario"`
}

// LoginResult is the outcome of a login attempt
type LoginResult struct {
	Success    bool            `json:"success"`
	Device     string          `json:"device"`
	DeviceID   string          `json:"deviceID,omitempty"`
	Assessment risk.Assessment `json:"assessment"`
}

// Service runs the demo login flow
type Service struct {
	evaluator *risk.Evaluator
	weights   *risk.WeightStore
	attempts  *analytics.AttemptLogger
	store     kv.Store
	username  string
	password  string
	logger    *zap.Logger
}

// NewService creates the login service with the configured demo credentials
func NewService(evaluator *risk.Evaluator, weights *risk.WeightStore, attempts *analytics.AttemptLogger,
	store kv.Store, username, password string, logger *zap.Logger) *Service {
	return &Service{
		evaluator: evaluator,
		weights:   weights,
		attempts:  attempts,
		store:     store,
		username:  username,
		password:  password,
		logger:    logger.With(zap.String("component", "auth")),
	}
}

// Login checks the demo credentials, classifies the device, evaluates
// the attempt and records it in the analytics ledger. Failed credentials
// are recorded as failed-credential attempts, not returned as errors.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	success := req.Username == s.username && req.Password == s.password

	device, deviceID := s.classifyDevice(ctx, req.DeviceID)

	riskCtx := risk.Context{
		State:         req.State,
		TravelCountry: req.TravelCountry,
		ActualCountry: req.ActualCountry,
		Device:        device,
		Network:       req.Network,
		ThreatTag:     req.ThreatTag,
		NotMe:         req.NotMe,
	}
	if !success {
		riskCtx.State = risk.StateLoginFail
	}

	assessment := s.evaluator.Evaluate(riskCtx, s.weights.Load(ctx))

	if _, err := s.attempts.LogAttempt(ctx, analytics.Record{
		Context:    riskCtx,
		Assessment: assessment,
		IP:         req.IP,
		Scenario:   req.Scenario,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Login attempt processed",
		zap.Bool("success", success),
		zap.String("device", device),
		zap.String("level", assessment.Level.String()),
		zap.Int("score", assessment.Score),
	)

	return &LoginResult{
		Success:    success,
		Device:     device,
		DeviceID:   deviceID,
		Assessment: assessment,
	}, nil
}

// classifyDevice compares the client's marker with the stored one. A
// matching marker means a known device; anything else is a new device
// and rotates the stored marker.
func (s *Service) classifyDevice(ctx context.Context, clientMarker string) (device, marker string) {
	stored, err := s.store.Get(ctx, DeviceIDKey)
	if err == nil && clientMarker != "" && clientMarker == stored {
		return risk.DeviceKnown, stored
	}

	marker = uuid.NewString()
	if err := s.store.Set(ctx, DeviceIDKey, marker, 0); err != nil {
		s.logger.Warn("Failed to persist device marker", zap.Error(err))
		return risk.DeviceUnknown, ""
	}
	return risk.DeviceNew, marker
}
