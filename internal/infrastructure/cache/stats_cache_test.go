package cache

import (
	"context"
	"testing"
	"time"

	appbilling "github.com/daftar/backend/internal/application/billing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStatsCache_OverallRoundTrip(t *testing.T) {
	cache := NewInMemoryStatsCache()
	ctx := context.Background()

	_, ok := cache.GetOverall(ctx)
	assert.False(t, ok)

	stats := &appbilling.OverallStatsResponse{MerchantCount: 3}
	cache.SetOverall(ctx, stats)

	got, ok := cache.GetOverall(ctx)
	require.True(t, ok)
	assert.Equal(t, stats, got)
}

func TestInMemoryStatsCache_MerchantRoundTrip(t *testing.T) {
	cache := NewInMemoryStatsCache()
	ctx := context.Background()
	merchantID := uuid.New()

	_, ok := cache.GetMerchant(ctx, merchantID)
	assert.False(t, ok)

	stats := &appbilling.MerchantStatsResponse{MerchantID: merchantID}
	cache.SetMerchant(ctx, merchantID, stats)

	got, ok := cache.GetMerchant(ctx, merchantID)
	require.True(t, ok)
	assert.Equal(t, stats, got)

	// Other merchants remain misses
	_, ok = cache.GetMerchant(ctx, uuid.New())
	assert.False(t, ok)
}

func TestInMemoryStatsCache_Invalidate(t *testing.T) {
	cache := NewInMemoryStatsCache()
	ctx := context.Background()
	merchantID := uuid.New()

	cache.SetOverall(ctx, &appbilling.OverallStatsResponse{})
	cache.SetMerchant(ctx, merchantID, &appbilling.MerchantStatsResponse{MerchantID: merchantID})

	cache.Invalidate()

	_, ok := cache.GetOverall(ctx)
	assert.False(t, ok)
	_, ok = cache.GetMerchant(ctx, merchantID)
	assert.False(t, ok)
}

func TestInMemoryStatsCache_TTLExpiry(t *testing.T) {
	cache := NewInMemoryStatsCache(WithStatsTTL(10 * time.Millisecond))
	ctx := context.Background()

	cache.SetOverall(ctx, &appbilling.OverallStatsResponse{})
	time.Sleep(20 * time.Millisecond)

	_, ok := cache.GetOverall(ctx)
	assert.False(t, ok)
}

func TestInMemoryStatsCache_HitMissCounters(t *testing.T) {
	cache := NewInMemoryStatsCache()
	ctx := context.Background()

	cache.GetOverall(ctx)
	cache.SetOverall(ctx, &appbilling.OverallStatsResponse{})
	cache.GetOverall(ctx)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}
