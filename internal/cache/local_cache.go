package cache

import (
	"context"
	"sync"
	"time"
)

// LocalCache 本地内存缓存
//
// 使用 sync.Map 实现无锁读取。ttl 为 0 时条目在进程生命周期内有效，
// 不启动清理协程。
type LocalCache[V any] struct {
	data sync.Map
	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time // 零值表示不过期
}

// NewLocalCache 创建本地缓存
//
// 参数:
//   - ttl: 默认过期时间，0 表示永不过期
func NewLocalCache[V any](ttl time.Duration) *LocalCache[V] {
	c := &LocalCache[V]{
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop(cleanupInterval(ttl))
	}
	return c
}

// Get 获取缓存值
func (c *LocalCache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.data.Load(key)
	if !ok {
		return zero, false
	}

	entry := val.(*cacheEntry[V])
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.data.Delete(key)
		return zero, false
	}
	return entry.value, true
}

// Set 设置缓存值，使用默认过期时间
func (c *LocalCache[V]) Set(key string, value V) {
	entry := &cacheEntry[V]{value: value}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.data.Store(key, entry)
}

// Len 返回条目数量（包含尚未清理的过期条目）
func (c *LocalCache[V]) Len() int {
	n := 0
	c.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close 停止清理协程
func (c *LocalCache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *LocalCache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.data.Range(func(key, value any) bool {
				entry := value.(*cacheEntry[V])
				if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
					c.data.Delete(key)
				}
				return true
			})
		}
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

// CountryCache 进程内的 IP -> 国家缓存
type CountryCache struct {
	entries *LocalCache[string]
}

// NewCountryCache 创建进程生命周期内有效的国家缓存
func NewCountryCache() *CountryCache {
	return &CountryCache{entries: NewLocalCache[string](0)}
}

// Get 读取缓存
func (c *CountryCache) Get(_ context.Context, ip string) (string, bool) {
	return c.entries.Get(ip)
}

// Set 写入缓存
func (c *CountryCache) Set(_ context.Context, ip, country string) {
	c.entries.Set(ip, country)
}

// Len 返回已缓存的 IP 数量
func (c *CountryCache) Len() int {
	return c.entries.Len()
}
