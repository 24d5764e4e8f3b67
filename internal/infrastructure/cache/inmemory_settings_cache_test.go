package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenform/storefront/internal/domain/region"
	"github.com/alpenform/storefront/internal/infrastructure/config"
)

func testRegions() []region.Region {
	return []region.Region{
		{ID: "reg_ch", Name: "Switzerland", CurrencyCode: "chf", TaxRate: decimal.NewFromFloat(0.081)},
		{ID: "reg_eu", Name: "Europe", CurrencyCode: "eur"},
	}
}

func TestInMemorySettingsCache(t *testing.T) {
	ctx := context.Background()

	t.Run("starts unpopulated", func(t *testing.T) {
		cache := NewInMemorySettingsCache()

		regions, ok, err := cache.Regions(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, regions)
	})

	t.Run("set then get", func(t *testing.T) {
		cache := NewInMemorySettingsCache()
		require.NoError(t, cache.SetRegions(ctx, testRegions()))

		regions, ok, err := cache.Regions(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		require.Len(t, regions, 2)
		assert.Equal(t, "reg_ch", regions[0].ID)
	})

	t.Run("empty list still counts as populated", func(t *testing.T) {
		cache := NewInMemorySettingsCache()
		require.NoError(t, cache.SetRegions(ctx, nil))

		_, ok, err := cache.Regions(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("reset drops entries", func(t *testing.T) {
		cache := NewInMemorySettingsCache()
		require.NoError(t, cache.SetRegions(ctx, testRegions()))
		require.NoError(t, cache.Reset(ctx))

		_, ok, err := cache.Regions(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		cache := NewInMemorySettingsCache()
		require.NoError(t, cache.SetRegions(ctx, testRegions()))

		regions, _, err := cache.Regions(ctx)
		require.NoError(t, err)
		regions[0].ID = "mutated"

		fresh, _, err := cache.Regions(ctx)
		require.NoError(t, err)
		assert.Equal(t, "reg_ch", fresh[0].ID)
	})
}

func TestInMemorySettingsCache_ConcurrentAccess(t *testing.T) {
	cache := NewInMemorySettingsCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = cache.SetRegions(ctx, testRegions())
		}()
		go func() {
			defer wg.Done()
			_, _, _ = cache.Regions(ctx)
		}()
	}
	wg.Wait()

	regions, ok, err := cache.Regions(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, regions, 2)
}

func TestSettingsCacheFactory_Fallback(t *testing.T) {
	t.Run("no redis host yields in-memory", func(t *testing.T) {
		factory := NewSettingsCacheFactory(config.RedisConfig{})

		cache, err := factory.CreateCache()
		require.NoError(t, err)
		assert.IsType(t, &InMemorySettingsCache{}, cache)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		factory := NewSettingsCacheFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1})

		cache, err := factory.CreateCache()
		require.NoError(t, err)
		assert.IsType(t, &InMemorySettingsCache{}, cache)
	})

	t.Run("fallback disabled surfaces the error", func(t *testing.T) {
		factory := NewSettingsCacheFactory(
			config.RedisConfig{Host: "127.0.0.1", Port: 1},
			WithInMemoryFallback(false),
		)

		cache, err := factory.CreateCache()
		assert.Error(t, err)
		assert.Nil(t, cache)
	})
}
