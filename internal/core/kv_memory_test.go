// AngelaMos | 2026
// kv_memory_test.go

package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKVSetGet(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "a", "1", 0))

	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	now := time.Now()
	kv.SetClock(func() time.Time { return now })

	require.NoError(t, kv.Set(ctx, "a", "1", time.Minute))

	_, err := kv.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryKVDeleteCount(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "a", "1", 0))

	deleted, err := kv.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Second delete of the same key observes nothing; this count is what
	// makes single-use consumption race-safe.
	deleted, err = kv.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestMemoryKVDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "user:1:products:page:1:page_size:10", "x", 0))
	require.NoError(t, kv.Set(ctx, "user:1:products:page:2:page_size:5", "y", 0))
	require.NoError(t, kv.Set(ctx, "user:2:products:page:1:page_size:10", "z", 0))

	deleted, err := kv.DeleteByPrefix(ctx, "user:1:products:page:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = kv.Get(ctx, "user:2:products:page:1:page_size:10")
	assert.NoError(t, err)
}
