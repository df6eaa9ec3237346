package analytics

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/geoshield/geoshield/internal/common/errors"
	"github.com/geoshield/geoshield/internal/common/kv"
)

// Store persists the analytics snapshot in the key/value layer. All
// schema repair happens at this boundary: readers always receive a
// well-formed snapshot.
type Store struct {
	store  kv.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a snapshot store
func NewStore(store kv.Store, logger *zap.Logger) *Store {
	return &Store{
		store:  store,
		logger: logger.With(zap.String("component", "analytics_store")),
		now:    time.Now,
	}
}

// Load returns the stored snapshot. A missing key or corrupt payload
// yields a fresh default snapshot, never an error.
func (s *Store) Load(ctx context.Context) *Snapshot {
	raw, err := s.store.Get(ctx, SnapshotKey)
	if err != nil {
		return NewSnapshot()
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		s.logger.Warn("Corrupt analytics snapshot, starting fresh", zap.Error(err))
		return NewSnapshot()
	}

	snapshot.Normalize()
	return &snapshot
}

// Save stamps lastUpdated and persists the snapshot
func (s *Store) Save(ctx context.Context, snapshot *Snapshot) error {
	snapshot.LastUpdated = s.now()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return apperrors.Internal("failed to encode analytics snapshot", err)
	}
	if err := s.store.Set(ctx, SnapshotKey, string(data), 0); err != nil {
		return apperrors.StorageError("save analytics snapshot", err)
	}
	return nil
}

// Reset removes the stored snapshot so the next Load starts fresh
func (s *Store) Reset(ctx context.Context) error {
	if err := s.store.Delete(ctx, SnapshotKey); err != nil {
		return apperrors.StorageError("reset analytics snapshot", err)
	}
	s.logger.Info("Analytics snapshot reset")
	return nil
}
