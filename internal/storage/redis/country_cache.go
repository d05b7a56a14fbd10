package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const countryKeyPrefix = "geo:country:"

// CountryCache 在 Redis 中按 IP 缓存国家查询结果，多个实例可共享
type CountryCache struct {
	client *Client
	ttl    time.Duration // 0 表示不过期
}

// NewCountryCache 创建国家缓存
func NewCountryCache(client *Client, ttl time.Duration) *CountryCache {
	return &CountryCache{client: client, ttl: ttl}
}

func countryKey(ip string) string {
	return countryKeyPrefix + ip
}

// Get 读取缓存；Redis 出错时按未命中处理
func (c *CountryCache) Get(ctx context.Context, ip string) (string, bool) {
	country, err := c.client.rdb.Get(ctx, countryKey(ip)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.client.log.Warn("country cache read failed", zap.String("ip", ip), zap.Error(err))
		}
		return "", false
	}
	return country, true
}

// Set 写入缓存，失败只记录日志
func (c *CountryCache) Set(ctx context.Context, ip, country string) {
	if err := c.client.rdb.Set(ctx, countryKey(ip), country, c.ttl).Err(); err != nil {
		c.client.log.Warn("country cache write failed", zap.String("ip", ip), zap.Error(err))
	}
}
