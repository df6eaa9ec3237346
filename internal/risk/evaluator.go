// Package risk provides rules-based risk assessment for simulated login attempts
package risk

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Level represents the classification of risk
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// String returns the string representation of Level
func (l Level) String() string {
	return string(l)
}

// Rank orders levels for severity comparison: low < medium < high.
func (l Level) Rank() int {
	switch l {
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	default:
		return 0
	}
}

// Login states understood by the evaluator
const (
	StateInside    = "inside"
	StateTraveler  = "traveler"
	StateLoginFail = "login-fail"
)

// Device dispositions
const (
	DeviceKnown   = "known"
	DeviceNew     = "new"
	DeviceUnknown = "unknown"
)

// Network types. Home and office carry no penalty.
const (
	NetworkHome    = "home"
	NetworkOffice  = "office"
	NetworkPublic  = "public"
	NetworkVPN     = "vpn"
	NetworkUnknown = "unknown"
)

const failedCredentialPenalty = 30

// Context describes a single login attempt to be scored
type Context struct {
	State         string `json:"state"`
	TravelCountry string `json:"travelCountry"`
	ActualCountry string `json:"actualCountry"`
	Device        string `json:"device"`
	Network       string `json:"network"`
	ThreatTag     string `json:"threatTag"`
	NotMe         bool   `json:"notMe"`
}

// Assessment is the outcome of evaluating a Context
type Assessment struct {
	Score       int       `json:"score"` // 0-100
	Level       Level     `json:"level"`
	Reasons     []string  `json:"reasons"`
	Decision    string    `json:"decision"`
	UserMessage string    `json:"userMessage"`
	Timestamp   time.Time `json:"timestamp"`
}

// Evaluator scores login attempt contexts against a weight set
type Evaluator struct {
	logger      *zap.Logger
	homeCountry string
}

// NewEvaluator creates an Evaluator. homeCountry is the expected country
// for attempts with state "inside".
func NewEvaluator(homeCountry string, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		logger:      logger.With(zap.String("component", "risk_evaluator")),
		homeCountry: homeCountry,
	}
}

// Evaluate scores a login attempt context. Pure with respect to its
// inputs; weight changes only affect subsequent calls.
func (e *Evaluator) Evaluate(ctx Context, weights Weights) Assessment {
	score := 0
	reasons := []string{}

	if ctx.State == StateLoginFail {
		score += failedCredentialPenalty
		reasons = append(reasons, "Failed-credential attempt")
	}

	// Expected country is only defined for inside/traveler states; a
	// traveler with no destination set has no expectation to violate.
	expected := ""
	switch ctx.State {
	case StateInside:
		expected = e.homeCountry
	case StateTraveler:
		expected = ctx.TravelCountry
	}
	if expected != "" && ctx.ActualCountry != "" && expected != ctx.ActualCountry {
		score += weights.TravelMismatch
		reasons = append(reasons, "Sign-in country differs from expected location")
	}

	switch ctx.Device {
	case DeviceNew:
		score += weights.NewDevice
		reasons = append(reasons, "New device")
	case DeviceUnknown:
		score += int(math.Round(float64(weights.NewDevice) * 0.7))
		reasons = append(reasons, "Unrecognized device")
	}

	switch ctx.Network {
	case NetworkPublic, NetworkVPN:
		score += weights.NetworkRisk
		reasons = append(reasons, "Risky network ("+ctx.Network+")")
	case NetworkUnknown:
		score += int(math.Round(float64(weights.NetworkRisk) * 0.5))
		reasons = append(reasons, "Unclassified network")
	}

	if ctx.ThreatTag != "" {
		score += weights.ThreatIntel
		reasons = append(reasons, "Threat intel match: "+ctx.ThreatTag)
	}

	if ctx.NotMe {
		score += weights.NotMe
		reasons = append(reasons, "User reported this was not them")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	// notMe always escalates to high regardless of the numeric score.
	level := LevelLow
	switch {
	case ctx.NotMe || score >= 80:
		level = LevelHigh
	case score >= 35:
		level = LevelMedium
	}

	decision, userMessage := e.describe(level)
	if ctx.NotMe && score < 80 {
		decision += " Escalated because the user disowned the attempt."
	}

	assessment := Assessment{
		Score:       score,
		Level:       level,
		Reasons:     reasons,
		Decision:    decision,
		UserMessage: userMessage,
		Timestamp:   time.Now(),
	}

	e.logger.Debug("Risk evaluated",
		zap.Int("score", score),
		zap.String("level", string(level)),
		zap.Strings("reasons", reasons),
	)

	return assessment
}

// describe maps a level to the operator decision and the end-user message
func (e *Evaluator) describe(level Level) (decision, userMessage string) {
	switch level {
	case LevelHigh:
		return "Block the attempt and require identity verification.",
			"We blocked a suspicious sign-in to your account. Please verify your identity."
	case LevelMedium:
		return "Allow after a one-time code is verified.",
			"We noticed something unusual about this sign-in. A quick verification is needed."
	default:
		return "Allow normal authentication flow.",
			"Sign-in looks normal."
	}
}
