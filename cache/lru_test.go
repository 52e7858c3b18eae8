package cache

import (
	"testing"

	"github.com/hupe1980/assetload/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU(100, nil)
	ctx := t.Context()

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Set(ctx, "a", []byte("alpha"))
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "alpha", string(got))

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU(10, nil)
	ctx := t.Context()

	c.Set(ctx, "a", make([]byte, 4))
	c.Set(ctx, "b", make([]byte, 4))
	_, _ = c.Get(ctx, "a") // a is now most recent
	c.Set(ctx, "c", make([]byte, 4))

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, int64(8), c.Size())
	assert.Equal(t, 2, c.Len())
}

func TestLRU_TooLarge(t *testing.T) {
	c := NewLRU(10, nil)
	c.Set(t.Context(), "big", make([]byte, 11))

	_, ok := c.Get(t.Context(), "big")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRU_ReplaceAndInvalidate(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	c := NewLRU(50, rc)
	ctx := t.Context()

	c.Set(ctx, "k", make([]byte, 10))
	c.Set(ctx, "k", make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())
	assert.Equal(t, int64(20), rc.MemoryUsage())

	c.Invalidate("k")
	assert.Zero(t, c.Size())
	assert.Zero(t, rc.MemoryUsage())
}

func TestLRU_RespectsControllerBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
	c := NewLRU(50, rc)
	ctx := t.Context()

	require.NoError(t, rc.AcquireMemory(5)) // someone else holds half the budget

	c.Set(ctx, "k", make([]byte, 8))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, int64(5), rc.MemoryUsage())
}
