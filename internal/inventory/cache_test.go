// AngelaMos | 2026
// cache_test.go

package inventory

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/stockease/internal/core"
)

// scanlessKV mimics a store without prefix scans.
type scanlessKV struct {
	*core.MemoryKV
}

func (s *scanlessKV) DeleteByPrefix(
	_ context.Context,
	_ string,
) (int64, error) {
	return 0, core.ErrScanUnsupported
}

func TestCacheEntriesPersistUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()
	cache := NewCache(kv, slog.Default())

	cache.SetPage(ctx, "u1", 1, 10, ProductListResponse{Count: 1})

	// With prefix scans available, entries carry no TTL and outlive any
	// staleness window.
	kv.SetClock(func() time.Time { return time.Now().Add(24 * time.Hour) })

	page, err := cache.GetPage(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)

	cache.Invalidate(ctx, "u1", "p1")

	_, err = cache.GetPage(ctx, "u1", 1, 10)
	assert.ErrorIs(t, err, core.ErrCacheMiss)
}

func TestCacheScanlessStoreFallsBackToTTL(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()
	cache := NewCache(&scanlessKV{MemoryKV: kv}, slog.Default())

	cache.SetPage(ctx, "u1", 1, 10, ProductListResponse{Count: 1})

	_, err := cache.GetPage(ctx, "u1", 1, 10)
	require.NoError(t, err)

	// Pages cannot be invalidated by prefix here, so the entry must age
	// out on its own.
	kv.SetClock(func() time.Time { return time.Now().Add(6 * time.Minute) })

	_, err = cache.GetPage(ctx, "u1", 1, 10)
	assert.ErrorIs(t, err, core.ErrCacheMiss)
}
