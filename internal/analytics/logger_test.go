package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geoshield/geoshield/internal/common/kv"
	"github.com/geoshield/geoshield/internal/risk"
)

func newTestLogger(t *testing.T) *AttemptLogger {
	t.Helper()
	store := NewStore(kv.NewMemoryStore(), zap.NewNop())
	return NewAttemptLogger(store, zap.NewNop())
}

func record(level risk.Level, score int, country string, notMe bool) Record {
	return Record{
		Context: risk.Context{
			State:         risk.StateInside,
			ActualCountry: country,
			Device:        risk.DeviceKnown,
			Network:       risk.NetworkHome,
			NotMe:         notMe,
		},
		Assessment: risk.Assessment{Score: score, Level: level},
	}
}

func TestLogAttemptCounters(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()

	_, err := l.LogAttempt(ctx, record(risk.LevelLow, 0, "Saudi Arabia", false))
	require.NoError(t, err)
	_, err = l.LogAttempt(ctx, record(risk.LevelMedium, 40, "Brazil", false))
	require.NoError(t, err)
	snapshot, err := l.LogAttempt(ctx, record(risk.LevelHigh, 90, "Brazil", true))
	require.NoError(t, err)

	assert.Equal(t, 3, snapshot.TotalAttempts)
	assert.Equal(t, 1, snapshot.Low)
	assert.Equal(t, 1, snapshot.Medium)
	assert.Equal(t, 1, snapshot.High)
	assert.Equal(t, 1, snapshot.NotMeCount)

	// Level buckets always sum to the total
	assert.Equal(t, snapshot.TotalAttempts, snapshot.Low+snapshot.Medium+snapshot.High)

	brazil := snapshot.CountryStats["Brazil"]
	assert.Equal(t, 2, brazil.Total)
	assert.Equal(t, brazil.Total, brazil.Low+brazil.Medium+brazil.High)
	assert.Equal(t, 1, brazil.Medium)
	assert.Equal(t, 1, brazil.High)

	assert.Len(t, snapshot.AttemptLog, 3)
	// Newest first
	assert.Equal(t, risk.LevelHigh, snapshot.AttemptLog[0].Level)
	assert.Equal(t, risk.LevelLow, snapshot.AttemptLog[2].Level)
	assert.NotEmpty(t, snapshot.AttemptLog[0].ID)
	assert.False(t, snapshot.AttemptLog[0].Timestamp.IsZero())
}

func TestLogAttemptUnknownCountrySentinel(t *testing.T) {
	l := newTestLogger(t)

	snapshot, err := l.LogAttempt(context.Background(), record(risk.LevelLow, 0, "", false))
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.CountryStats[UnknownCountry].Total)
	assert.Equal(t, UnknownCountry, snapshot.AttemptLog[0].Country)
}

func TestLogAttemptCapsLogAtLimit(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()

	var snapshot *Snapshot
	var err error
	for i := 0; i < MaxAttemptLog+25; i++ {
		snapshot, err = l.LogAttempt(ctx, record(risk.LevelLow, 0, "Saudi Arabia", false))
		require.NoError(t, err)
	}

	assert.Len(t, snapshot.AttemptLog, MaxAttemptLog)
	// Counters keep growing past the log cap
	assert.Equal(t, MaxAttemptLog+25, snapshot.TotalAttempts)
}

func TestSecurityScoreRecomputation(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()

	// Empty ledger scores a perfect 10
	assert.Equal(t, DefaultSecurityScore, l.Snapshot(ctx).SecurityScore)

	// One high out of one: 10 - 3/1 = 7
	snapshot, err := l.LogAttempt(ctx, record(risk.LevelHigh, 90, "Brazil", false))
	require.NoError(t, err)
	assert.InDelta(t, 7.0, snapshot.SecurityScore, 0.001)

	// One high + one medium out of two: 10 - (3+1.5)/2 = 7.75
	snapshot, err = l.LogAttempt(ctx, record(risk.LevelMedium, 40, "Brazil", false))
	require.NoError(t, err)
	assert.InDelta(t, 7.75, snapshot.SecurityScore, 0.001)
}

func TestSecurityScoreFloorsAtOne(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()

	var snapshot *Snapshot
	var err error
	for i := 0; i < 10; i++ {
		snapshot, err = l.LogAttempt(ctx, record(risk.LevelHigh, 100, "Brazil", true))
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, snapshot.SecurityScore)
}

func TestResetClearsLedger(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()

	_, err := l.LogAttempt(ctx, record(risk.LevelHigh, 90, "Brazil", false))
	require.NoError(t, err)
	require.NoError(t, l.Reset(ctx))

	snapshot := l.Snapshot(ctx)
	assert.Equal(t, 0, snapshot.TotalAttempts)
	assert.Empty(t, snapshot.AttemptLog)
	assert.Equal(t, DefaultSecurityScore, snapshot.SecurityScore)
}
