package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	"github.com/noah-isme/simcheck-bridge/pkg/similarity"
)

const featuresCacheKey = "simcheck:features"

// FeatureConfig holds the cache lifetime and the values used when the
// similarity service cannot report its features.
type FeatureConfig struct {
	CacheTTL                   time.Duration
	FallbackRequireEULA        bool
	FallbackSearchRepositories []string
}

// FeatureService resolves the tenant feature set.
type FeatureService struct {
	transport similarityTransport
	cache     *CacheService
	cfg       FeatureConfig
	logger    *zap.Logger
}

// NewFeatureService constructs the service. cache may be nil.
func NewFeatureService(transport similarityTransport, cache *CacheService, cfg FeatureConfig, logger *zap.Logger) *FeatureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeatureService{transport: transport, cache: cache, cfg: cfg, logger: logger}
}

// Features returns the cached feature set, fetching it when missing. Any
// failure to fetch falls back to configuration and is not cached.
func (s *FeatureService) Features(ctx context.Context) (*models.TenantFeatures, error) {
	features, _, err := s.Lookup(ctx)
	return features, err
}

// Lookup is Features that also reports whether the cache served the result.
func (s *FeatureService) Lookup(ctx context.Context) (*models.TenantFeatures, bool, error) {
	var cached models.TenantFeatures
	if hit, _ := s.cache.Get(ctx, featuresCacheKey, &cached); hit {
		return &cached, true, nil
	}

	features, ok := s.fetch(ctx)
	if !ok {
		return s.fallback(), false, nil
	}
	_ = s.cache.Set(ctx, featuresCacheKey, features, s.cfg.CacheTTL)
	return features, false, nil
}

// Refresh drops the cached feature set.
func (s *FeatureService) Refresh(ctx context.Context) error {
	return s.cache.Invalidate(ctx, featuresCacheKey)
}

func (s *FeatureService) fetch(ctx context.Context) (*models.TenantFeatures, bool) {
	if s.transport == nil {
		return nil, false
	}
	resp, err := s.transport.Send(ctx, similarity.Request{
		Operation: "features",
		Method:    http.MethodGet,
		Endpoint:  similarity.EndpointFeaturesEnabled,
	})
	if err != nil {
		s.logger.Sugar().Warnw("tenant features unavailable, using configured fallback", "error", err)
		return nil, false
	}
	if !resp.Success() {
		s.logger.Sugar().Warnw("tenant features rejected, using configured fallback", "status", resp.StatusCode, "message", resp.Message())
		return nil, false
	}
	var features models.TenantFeatures
	if err := resp.Decode(&features); err != nil {
		s.logger.Sugar().Warnw("tenant features undecodable, using configured fallback", "error", err)
		return nil, false
	}
	return &features, true
}

func (s *FeatureService) fallback() *models.TenantFeatures {
	repos := make([]string, len(s.cfg.FallbackSearchRepositories))
	copy(repos, s.cfg.FallbackSearchRepositories)
	return &models.TenantFeatures{
		Tenant: models.TenantSettings{RequireEULA: s.cfg.FallbackRequireEULA},
		Similarity: models.SimilarityFeatures{
			GenerationSettings: models.GenerationFeatures{SearchRepositories: repos},
		},
	}
}
