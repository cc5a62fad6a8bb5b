package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestCacheRepositorySetGet(t *testing.T) {
	srv, client := newMiniRedis(t)
	repo := NewCacheRepository(client, nil)
	ctx := context.Background()

	features := models.TenantFeatures{Tenant: models.TenantSettings{RequireEULA: true}}
	require.NoError(t, repo.Set(ctx, "features", features, time.Minute))

	var got models.TenantFeatures
	require.NoError(t, repo.Get(ctx, "features", &got))
	assert.True(t, got.Tenant.RequireEULA)

	srv.FastForward(2 * time.Minute)
	err := repo.Get(ctx, "features", &got)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryUndecodableIsMiss(t *testing.T) {
	srv, client := newMiniRedis(t)
	repo := NewCacheRepository(client, nil)
	require.NoError(t, srv.Set("features", "{not json"))

	var got models.TenantFeatures
	err := repo.Get(context.Background(), "features", &got)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var got models.TenantFeatures
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", got, time.Second))
	assert.NoError(t, repo.Delete(context.Background(), "k"))
}

func TestReceiptRepositoryPush(t *testing.T) {
	srv, client := newMiniRedis(t)
	repo := NewReceiptRepository(client, "test:receipts")
	ctx := context.Background()

	require.NoError(t, repo.Push(ctx,
		models.DigitalReceipt{Audience: models.ReceiptAudienceStudent, RecipientIDs: []string{"user-1"}},
		models.DigitalReceipt{Audience: models.ReceiptAudienceInstructor, RecipientIDs: []string{"instructor-1"}},
	))

	items, err := srv.List("test:receipts")
	require.NoError(t, err)
	require.Len(t, items, 2)
	var first models.DigitalReceipt
	require.NoError(t, json.Unmarshal([]byte(items[0]), &first))
	assert.Equal(t, models.ReceiptAudienceStudent, first.Audience)
}

func TestReceiptRepositoryPushEmpty(t *testing.T) {
	srv, client := newMiniRedis(t)
	repo := NewReceiptRepository(client, "")
	require.NoError(t, repo.Push(context.Background()))
	assert.False(t, srv.Exists("simcheck:receipts"))
}
