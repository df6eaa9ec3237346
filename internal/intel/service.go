package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/geoshield/geoshield/internal/common/errors"
	"github.com/geoshield/geoshield/internal/common/kv"
	"github.com/geoshield/geoshield/internal/metrics"
)

// Config holds live gateway configuration
type Config struct {
	VTAPIKey  string
	OTXAPIKey string

	HTTPTimeout time.Duration

	// CacheTTL applies to fully successful lookups; DegradedCacheTTL to
	// lookups where at least one sub-result was unavailable, so a
	// transient upstream failure heals without a restart.
	CacheTTL         time.Duration
	DegradedCacheTTL time.Duration

	// Base URL overrides for tests
	GeoBaseURL string
	VTBaseURL  string
	OTXBaseURL string
}

// Service is the live Gateway: three concurrent sub-lookups with
// per-source failure isolation and a TTL-bounded result cache.
type Service struct {
	sources *sources
	cache   kv.Store
	config  Config
	logger  *zap.Logger
}

// NewService creates the live gateway
func NewService(cfg Config, cache kv.Store, logger *zap.Logger) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.DegradedCacheTTL == 0 {
		cfg.DegradedCacheTTL = 5 * time.Minute
	}

	log := logger.With(zap.String("component", "intel_gateway"))
	return &Service{
		sources: newSources(cfg, log),
		cache:   cache,
		config:  cfg,
		logger:  log,
	}
}

// Status reports configured sub-sources. Geolocation needs no credential.
func (s *Service) Status() Status {
	return Status{
		Mode: "live",
		Geo:  true,
		VT:   s.config.VTAPIKey != "",
		OTX:  s.config.OTXAPIKey != "",
	}
}

// Lookup resolves intelligence for an IPv4 address. The three
// sub-lookups run concurrently; each failure degrades only its own
// sub-result. Only the IP format is grounds for an error.
func (s *Service) Lookup(ctx context.Context, ip string) (*Result, error) {
	if !ValidIPv4(ip) {
		return nil, apperrors.ValidationError("a valid IPv4 address is required")
	}

	cacheKey := fmt.Sprintf("intel:%s", ip)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		var result Result
		if json.Unmarshal([]byte(cached), &result) == nil {
			metrics.RecordIntelCache("hit")
			return &result, nil
		}
	}
	metrics.RecordIntelCache("miss")

	result := &Result{IP: ip, LookupTime: time.Now()}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		geo, err := s.sources.lookupGeo(ctx, ip)
		if err != nil {
			s.logger.Warn("Geo lookup degraded", zap.String("ip", ip), zap.Error(err))
			metrics.RecordIntelLookup("geo", "degraded")
			return
		}
		metrics.RecordIntelLookup("geo", "success")
		result.Geo = geo
	}()

	go func() {
		defer wg.Done()
		rep, err := s.sources.lookupVT(ctx, ip)
		if err != nil {
			s.logger.Warn("Reputation lookup degraded", zap.String("ip", ip), zap.Error(err))
			metrics.RecordIntelLookup("vt", "degraded")
			return
		}
		metrics.RecordIntelLookup("vt", "success")
		result.Reputation = rep
	}()

	go func() {
		defer wg.Done()
		pulses, err := s.sources.lookupOTX(ctx, ip)
		if err != nil {
			s.logger.Warn("Pulse lookup degraded", zap.String("ip", ip), zap.Error(err))
			metrics.RecordIntelLookup("otx", "degraded")
			return
		}
		metrics.RecordIntelLookup("otx", "success")
		result.Pulses = pulses
	}()

	wg.Wait()

	result.Degraded = !result.Geo.Available || !result.Reputation.Available || !result.Pulses.Available

	ttl := s.config.CacheTTL
	if result.Degraded {
		ttl = s.config.DegradedCacheTTL
	}
	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, cacheKey, string(data), ttl); err != nil {
			s.logger.Warn("Failed to cache intel result", zap.String("ip", ip), zap.Error(err))
		}
	}

	s.logger.Info("Intel lookup completed",
		zap.String("ip", ip),
		zap.Bool("degraded", result.Degraded),
		zap.Bool("geo", result.Geo.Available),
		zap.Bool("vt", result.Reputation.Available),
		zap.Bool("otx", result.Pulses.Available),
	)

	return result, nil
}
