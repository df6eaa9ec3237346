package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geoshield/geoshield/internal/metrics"
	"github.com/geoshield/geoshield/internal/risk"
)

// AttemptLogger is the single writer for the analytics snapshot. Every
// mutation goes through LogAttempt or Reset, serialized by a mutex so a
// record is atomic from the caller's perspective.
type AttemptLogger struct {
	store  *Store
	logger *zap.Logger
	mu     sync.Mutex
}

// NewAttemptLogger creates an AttemptLogger over the snapshot store
func NewAttemptLogger(store *Store, logger *zap.Logger) *AttemptLogger {
	return &AttemptLogger{
		store:  store,
		logger: logger.With(zap.String("component", "attempt_logger")),
	}
}

// Record describes an attempt to be logged
type Record struct {
	Context    risk.Context
	Assessment risk.Assessment
	IP         string
	Scenario   string
}

// LogAttempt folds a scored attempt into the snapshot and persists it.
// Returns the updated snapshot.
func (l *AttemptLogger) LogAttempt(ctx context.Context, rec Record) (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := l.store.Load(ctx)

	snapshot.TotalAttempts++
	switch rec.Assessment.Level {
	case risk.LevelHigh:
		snapshot.High++
	case risk.LevelMedium:
		snapshot.Medium++
	default:
		snapshot.Low++
	}
	if rec.Context.NotMe {
		snapshot.NotMeCount++
	}

	bucket := countryBucket(rec.Context.ActualCountry)
	stat := snapshot.CountryStats[bucket]
	stat.Total++
	switch rec.Assessment.Level {
	case risk.LevelHigh:
		stat.High++
	case risk.LevelMedium:
		stat.Medium++
	default:
		stat.Low++
	}
	snapshot.CountryStats[bucket] = stat

	attempt := Attempt{
		ID:            uuid.NewString(),
		Timestamp:     rec.Assessment.Timestamp,
		State:         rec.Context.State,
		TravelCountry: rec.Context.TravelCountry,
		Country:       bucket,
		IP:            rec.IP,
		Device:        rec.Context.Device,
		Network:       rec.Context.Network,
		ThreatTag:     rec.Context.ThreatTag,
		NotMe:         rec.Context.NotMe,
		Score:         rec.Assessment.Score,
		Level:         rec.Assessment.Level,
		Reasons:       rec.Assessment.Reasons,
		ShortDecision: rec.Assessment.Decision,
		Scenario:      rec.Scenario,
	}
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = time.Now()
	}

	// Newest first, tail dropped past the cap
	snapshot.AttemptLog = append([]Attempt{attempt}, snapshot.AttemptLog...)
	if len(snapshot.AttemptLog) > MaxAttemptLog {
		snapshot.AttemptLog = snapshot.AttemptLog[:MaxAttemptLog]
	}

	snapshot.RecomputeSecurityScore()

	if err := l.store.Save(ctx, snapshot); err != nil {
		return nil, err
	}

	metrics.RecordRiskScore(rec.Assessment.Level.String(), float64(rec.Assessment.Score))
	metrics.RecordAttemptLogged(rec.Assessment.Level.String(), rec.Context.NotMe)

	l.logger.Debug("Attempt logged",
		zap.String("level", rec.Assessment.Level.String()),
		zap.Int("score", rec.Assessment.Score),
		zap.String("country", bucket),
		zap.Bool("not_me", rec.Context.NotMe),
		zap.Int("total", snapshot.TotalAttempts),
	)

	return snapshot, nil
}

// Reset clears the ledger
func (l *AttemptLogger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Reset(ctx)
}

// Snapshot returns the current snapshot without mutating it
func (l *AttemptLogger) Snapshot(ctx context.Context) *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Load(ctx)
}
