package risk

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	apperrors "github.com/geoshield/geoshield/internal/common/errors"
	"github.com/geoshield/geoshield/internal/common/kv"
)

// WeightsKey is the storage key for the persisted weight set.
const WeightsKey = "riskWeights"

// Weights holds the additive penalty for each risk signal
type Weights struct {
	TravelMismatch int `json:"travelMismatch"`
	NewDevice      int `json:"newDevice"`
	NetworkRisk    int `json:"networkRisk"`
	ThreatIntel    int `json:"threatIntel"`
	NotMe          int `json:"notMe"`
}

// DefaultWeights returns the stock weight set
func DefaultWeights() Weights {
	return Weights{
		TravelMismatch: 25,
		NewDevice:      20,
		NetworkRisk:    15,
		ThreatIntel:    30,
		NotMe:          40,
	}
}

// WeightStore persists the weight set independently of analytics state.
// Updates take effect on the next evaluation only.
type WeightStore struct {
	store  kv.Store
	logger *zap.Logger
}

// NewWeightStore creates a WeightStore backed by the given key/value store
func NewWeightStore(store kv.Store, logger *zap.Logger) *WeightStore {
	return &WeightStore{
		store:  store,
		logger: logger.With(zap.String("component", "weight_store")),
	}
}

// Load returns the persisted weights, falling back to defaults when the
// key is missing or holds malformed JSON.
func (w *WeightStore) Load(ctx context.Context) Weights {
	raw, err := w.store.Get(ctx, WeightsKey)
	if err != nil {
		return DefaultWeights()
	}

	var weights Weights
	if err := json.Unmarshal([]byte(raw), &weights); err != nil {
		w.logger.Warn("Malformed stored weights, using defaults", zap.Error(err))
		return DefaultWeights()
	}
	return weights
}

// Save persists a new weight set
func (w *WeightStore) Save(ctx context.Context, weights Weights) error {
	data, err := json.Marshal(weights)
	if err != nil {
		return apperrors.Internal("failed to encode weights", err)
	}
	if err := w.store.Set(ctx, WeightsKey, string(data), 0); err != nil {
		return apperrors.StorageError("save weights", err)
	}

	w.logger.Info("Risk weights updated",
		zap.Int("travel_mismatch", weights.TravelMismatch),
		zap.Int("new_device", weights.NewDevice),
		zap.Int("network_risk", weights.NetworkRisk),
		zap.Int("threat_intel", weights.ThreatIntel),
		zap.Int("not_me", weights.NotMe),
	)
	return nil
}

// Reset removes the persisted weight set so defaults apply again
func (w *WeightStore) Reset(ctx context.Context) error {
	if err := w.store.Delete(ctx, WeightsKey); err != nil {
		return apperrors.StorageError("reset weights", err)
	}
	return nil
}
