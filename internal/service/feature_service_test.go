package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
	sets    int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func TestFeatureServiceCachesRemoteFeatures(t *testing.T) {
	transport := newTransportStub()
	transport.reply("features", http.StatusOK, map[string]interface{}{
		"tenant":     map[string]interface{}{"require_eula": true},
		"similarity": map[string]interface{}{"generation_settings": map[string]interface{}{"search_repositories": []string{"INTERNET"}}},
	})
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewFeatureService(transport, NewCacheService(repo, metrics, time.Hour, zap.NewNop(), true), FeatureConfig{}, zap.NewNop())

	first, err := svc.Features(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Tenant.RequireEULA)
	assert.Equal(t, []string{"INTERNET"}, first.Similarity.GenerationSettings.SearchRepositories)

	second, hit, err := svc.Lookup(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Len(t, transport.requests, 1)
	assert.Equal(t, 1, repo.sets)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheHits)
}

func TestFeatureServiceFallsBackWithoutCaching(t *testing.T) {
	transport := newTransportStub()
	transport.fail("features")
	transport.reply("features", http.StatusInternalServerError, nil)
	repo := newMemoryCacheRepo()
	svc := NewFeatureService(transport, NewCacheService(repo, nil, time.Hour, nil, true), FeatureConfig{
		FallbackRequireEULA:        true,
		FallbackSearchRepositories: []string{"INTERNET", "PUBLICATION"},
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		features, err := svc.Features(context.Background())
		require.NoError(t, err)
		assert.True(t, features.Tenant.RequireEULA)
		assert.Equal(t, []string{"INTERNET", "PUBLICATION"}, features.Similarity.GenerationSettings.SearchRepositories)
	}
	assert.Zero(t, repo.sets)
	assert.Len(t, transport.requests, 2)
}

func TestFeatureServiceRefreshDropsCache(t *testing.T) {
	transport := newTransportStub()
	transport.reply("features", http.StatusOK, map[string]interface{}{"tenant": map[string]interface{}{"require_eula": false}})
	transport.reply("features", http.StatusOK, map[string]interface{}{"tenant": map[string]interface{}{"require_eula": true}})
	svc := NewFeatureService(transport, NewCacheService(newMemoryCacheRepo(), nil, time.Hour, nil, true), FeatureConfig{}, nil)

	features, err := svc.Features(context.Background())
	require.NoError(t, err)
	assert.False(t, features.Tenant.RequireEULA)

	require.NoError(t, svc.Refresh(context.Background()))
	features, err = svc.Features(context.Background())
	require.NoError(t, err)
	assert.True(t, features.Tenant.RequireEULA)
}

func TestFeatureServiceWithoutCache(t *testing.T) {
	transport := newTransportStub()
	transport.reply("features", http.StatusOK, map[string]interface{}{"tenant": map[string]interface{}{"require_eula": true}})
	svc := NewFeatureService(transport, nil, FeatureConfig{}, nil)

	features, err := svc.Features(context.Background())
	require.NoError(t, err)
	assert.True(t, features.Tenant.RequireEULA)
}
