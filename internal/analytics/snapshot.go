// Package analytics maintains the per-client security analytics ledger:
// attempt counters, country buckets, the rolling attempt log and the
// derived security score.
package analytics

import (
	"time"

	"github.com/geoshield/geoshield/internal/risk"
)

const (
	// SnapshotKey is the storage key for the analytics snapshot.
	SnapshotKey = "securityAnalytics"

	// MaxAttemptLog caps the rolling attempt log.
	MaxAttemptLog = 500

	// UnknownCountry is the sentinel bucket for attempts without a
	// resolvable country.
	UnknownCountry = "unknown"

	// DefaultSecurityScore applies when no attempts are recorded.
	DefaultSecurityScore = 10.0
)

// CountryStat aggregates attempts for a single country bucket
type CountryStat struct {
	Total  int `json:"total"`
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Attempt is a single recorded login attempt, newest-first in the log
type Attempt struct {
	ID            string     `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	State         string     `json:"state"`
	TravelCountry string     `json:"travelCountry,omitempty"`
	Country       string     `json:"country"`
	IP            string     `json:"ip,omitempty"`
	Device        string     `json:"device"`
	Network       string     `json:"network"`
	ThreatTag     string     `json:"threatTag,omitempty"`
	NotMe         bool       `json:"notMe"`
	Score         int        `json:"score"`
	Level         risk.Level `json:"level"`
	Reasons       []string   `json:"reasons,omitempty"`
	ShortDecision string     `json:"shortDecision,omitempty"`
	Scenario      string     `json:"scenario,omitempty"`
}

// Snapshot is the canonical analytics state for one client
type Snapshot struct {
	TotalAttempts int                    `json:"totalAttempts"`
	Low           int                    `json:"low"`
	Medium        int                    `json:"medium"`
	High          int                    `json:"high"`
	NotMeCount    int                    `json:"notMeCount"`
	SecurityScore float64                `json:"securityScore"` // 1-10
	CountryStats  map[string]CountryStat `json:"countryStats"`
	AttemptLog    []Attempt              `json:"attemptLog"`
	LastUpdated   time.Time              `json:"lastUpdated"`
}

// NewSnapshot returns a fresh default snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		SecurityScore: DefaultSecurityScore,
		CountryStats:  make(map[string]CountryStat),
		AttemptLog:    []Attempt{},
	}
}

// Normalize repairs a snapshot decoded from storage: nil collections get
// allocated, an unset score falls back to the default, and the log is
// re-capped. Counter fields keep whatever was stored.
func (s *Snapshot) Normalize() {
	if s.CountryStats == nil {
		s.CountryStats = make(map[string]CountryStat)
	}
	if s.AttemptLog == nil {
		s.AttemptLog = []Attempt{}
	}
	if len(s.AttemptLog) > MaxAttemptLog {
		s.AttemptLog = s.AttemptLog[:MaxAttemptLog]
	}
	if s.SecurityScore == 0 {
		s.SecurityScore = DefaultSecurityScore
	}
}

// RecomputeSecurityScore derives the 1-10 posture score from the level
// counters. An empty ledger scores a perfect 10.
func (s *Snapshot) RecomputeSecurityScore() {
	if s.TotalAttempts == 0 {
		s.SecurityScore = DefaultSecurityScore
		return
	}

	score := 10 - (float64(s.High)*3+float64(s.Medium)*1.5)/float64(s.TotalAttempts)
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	s.SecurityScore = score
}

// countryBucket maps an attempt's country to its stats bucket name
func countryBucket(country string) string {
	if country == "" {
		return UnknownCountry
	}
	return country
}
