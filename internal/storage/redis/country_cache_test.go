package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestCountryKey(t *testing.T) {
	assert.Equal(t, "geo:country:8.8.8.8", countryKey("8.8.8.8"))
}

func TestCountryCache_UnavailableRedisIsMiss(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	cache := NewCountryCache(NewWithClient(rdb, nil), 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cache.Set(ctx, "8.8.8.8", "United States")
	country, ok := cache.Get(ctx, "8.8.8.8")
	assert.False(t, ok)
	assert.Empty(t, country)
}
