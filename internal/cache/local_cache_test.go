package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCache(t *testing.T) {
	t.Run("ttl 为 0 时永不过期", func(t *testing.T) {
		c := NewLocalCache[int](0)
		defer c.Close()

		c.Set("a", 1)
		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("过期条目不可读", func(t *testing.T) {
		c := NewLocalCache[string](20 * time.Millisecond)
		defer c.Close()

		c.Set("a", "x")
		time.Sleep(40 * time.Millisecond)
		_, ok := c.Get("a")
		assert.False(t, ok)
	})

	t.Run("未命中", func(t *testing.T) {
		c := NewLocalCache[string](0)
		v, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Empty(t, v)
	})
}

func TestCountryCache(t *testing.T) {
	ctx := context.Background()
	c := NewCountryCache()

	_, ok := c.Get(ctx, "8.8.8.8")
	assert.False(t, ok)

	c.Set(ctx, "8.8.8.8", "United States")
	c.Set(ctx, "1.1.1.1", "Unknown")

	country, ok := c.Get(ctx, "8.8.8.8")
	assert.True(t, ok)
	assert.Equal(t, "United States", country)
	assert.Equal(t, 2, c.Len())
}
