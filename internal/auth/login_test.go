package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geoshield/geoshield/internal/analytics"
	"github.com/geoshield/geoshield/internal/common/kv"
	"github.com/geoshield/geoshield/internal/risk"
)

func newTestService(t *testing.T) (*Service, *analytics.AttemptLogger) {
	t.Helper()

	store := kv.NewMemoryStore()
	logger := zap.NewNop()
	attempts := analytics.NewAttemptLogger(analytics.NewStore(store, logger), logger)

	svc := NewService(
		risk.NewEvaluator("Saudi Arabia", logger),
		risk.NewWeightStore(store, logger),
		attempts,
		store,
		"demo", "P@ssw0rd!",
		logger,
	)
	return svc, attempts
}

func TestLoginSuccessNewDevice(t *testing.T) {
	svc, attempts := newTestService(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, LoginRequest{
		Username:      "demo",
		Password:      "P@ssw0rd!",
		State:         risk.StateInside,
		ActualCountry: "Saudi Arabia",
		Network:       risk.NetworkHome,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, risk.DeviceNew, result.Device)
	assert.NotEmpty(t, result.DeviceID)
	// Only the new-device penalty applies
	assert.Equal(t, 20, result.Assessment.Score)

	snapshot := attempts.Snapshot(ctx)
	assert.Equal(t, 1, snapshot.TotalAttempts)
}

func TestLoginKnownDeviceOnSecondAttempt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := LoginRequest{
		Username:      "demo",
		Password:      "P@ssw0rd!",
		State:         risk.StateInside,
		ActualCountry: "Saudi Arabia",
		Network:       risk.NetworkHome,
	}

	first, err := svc.Login(ctx, req)
	require.NoError(t, err)
	require.Equal(t, risk.DeviceNew, first.Device)

	req.DeviceID = first.DeviceID
	second, err := svc.Login(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, risk.DeviceKnown, second.Device)
	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, 0, second.Assessment.Score)
}

func TestLoginUnknownMarkerRotates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := LoginRequest{
		Username:      "demo",
		Password:      "P@ssw0rd!",
		State:         risk.StateInside,
		ActualCountry: "Saudi Arabia",
		Network:       risk.NetworkHome,
	}

	first, err := svc.Login(ctx, req)
	require.NoError(t, err)

	// A stale marker counts as a new device and gets replaced
	req.DeviceID = "stale-marker"
	second, err := svc.Login(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, risk.DeviceNew, second.Device)
	assert.NotEqual(t, first.DeviceID, second.DeviceID)
}

func TestLoginBadCredentialsRecordedAsFailure(t *testing.T) {
	svc, attempts := newTestService(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, LoginRequest{
		Username:      "demo",
		Password:      "wrong",
		State:         risk.StateInside,
		ActualCountry: "Saudi Arabia",
		Network:       risk.NetworkHome,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	// Failed credential (+30) plus new device (+20)
	assert.Equal(t, 50, result.Assessment.Score)
	assert.Equal(t, risk.LevelMedium, result.Assessment.Level)

	snapshot := attempts.Snapshot(ctx)
	assert.Equal(t, 1, snapshot.TotalAttempts)
	assert.Equal(t, risk.StateLoginFail, snapshot.AttemptLog[0].State)
}
