// Package cache 基于 Redis 的购物车快照缓存
package cache

import (
	"context"
	"time"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/cache"
)

const (
	keyPrefix     = "storefront:cart:"
	versionPrefix = "storefront:cart-version:"
	// 版本号保留时间需远长于一次读库耗时，过期后回到 0
	minVersionTTL = 24 * time.Hour
)

type cartCache struct {
	redis *cache.RedisCache
	ttl   time.Duration
}

// NewCartCache 创建购物车缓存，ttl 为快照过期时间
func NewCartCache(redis *cache.RedisCache, ttl time.Duration) domain.CartCache {
	return &cartCache{redis: redis, ttl: ttl}
}

func key(owner domain.Owner) string {
	return keyPrefix + owner.Key()
}

func versionKey(owner domain.Owner) string {
	return versionPrefix + owner.Key()
}

func (c *cartCache) Get(ctx context.Context, owner domain.Owner) (*domain.Cart, bool, error) {
	var cart domain.Cart
	ok, err := c.redis.GetJSON(ctx, key(owner), &cart)
	if err != nil || !ok {
		return nil, false, err
	}
	if cart.Items == nil {
		cart.Items = []*domain.CartItem{}
	}
	return &cart, true, nil
}

func (c *cartCache) Version(ctx context.Context, owner domain.Owner) (int64, error) {
	return c.redis.Version(ctx, versionKey(owner))
}

func (c *cartCache) Set(ctx context.Context, owner domain.Owner, cart *domain.Cart, version int64) (bool, error) {
	return c.redis.SetJSONIfVersion(ctx, versionKey(owner), key(owner), version, cart, c.ttl)
}

func (c *cartCache) Invalidate(ctx context.Context, owners ...domain.Owner) error {
	if len(owners) == 0 {
		return nil
	}
	keys := make([]string, 0, len(owners))
	versions := make([]string, 0, len(owners))
	for _, o := range owners {
		keys = append(keys, key(o))
		versions = append(versions, versionKey(o))
	}
	return c.redis.BumpVersions(ctx, versions, c.versionTTL(), keys...)
}

func (c *cartCache) versionTTL() time.Duration {
	if c.ttl*2 > minVersionTTL {
		return c.ttl * 2
	}
	return minVersionTTL
}
