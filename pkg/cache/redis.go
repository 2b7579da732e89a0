// Package cache 提供 Redis 客户端封装与 JSON 序列化助手
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// Config Redis 配置
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	MaxPoolSize  int
	ConnTimeout  int
	ReadTimeout  int
	WriteTimeout int
}

// RedisCache Redis 缓存实现
type RedisCache struct {
	client *redis.Client
}

// New 创建 Redis 缓存实例并检测连通性
func New(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxPoolSize,
		DialTimeout:  time.Duration(cfg.ConnTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info(context.Background(), "Redis connected successfully", "addr", client.Options().Addr)
	return &RedisCache{client: client}, nil
}

// NewFromClient 包装已有客户端
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// GetJSON 读取 JSON 值，key 不存在时返回 false
func (rc *RedisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	val, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// SetJSON 写入 JSON 值
func (rc *RedisCache) SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return rc.client.Set(ctx, key, data, expiration).Err()
}

// Delete 删除缓存
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return rc.client.Del(ctx, keys...).Err()
}

// setIfVersion KEYS[1] 为版本号，KEYS[2] 为数据；版本号等于 ARGV[1] 时才写入，ARGV[3] 为过期毫秒数
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if (current or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// Version 读取版本号，不存在时为 0
func (rc *RedisCache) Version(ctx context.Context, versionKey string) (int64, error) {
	v, err := rc.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetJSONIfVersion 版本号仍为 expected 时写入 JSON 值，返回是否写入。
// 读数据前先取版本号，写回时版本号已变说明期间发生过失效，数据可能已过期。
func (rc *RedisCache) SetJSONIfVersion(ctx context.Context, versionKey, key string, expected int64, value any, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}
	n, err := setIfVersion.Run(ctx, rc.client, []string{versionKey, key}, expected, data, expiration.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// BumpVersions 在一个 MULTI 中递增版本号并删除数据 key
func (rc *RedisCache) BumpVersions(ctx context.Context, versionKeys []string, versionTTL time.Duration, keys ...string) error {
	_, err := rc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, vk := range versionKeys {
			pipe.Incr(ctx, vk)
			pipe.Expire(ctx, vk, versionTTL)
		}
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	return err
}

// Close 关闭连接
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// GetClient 获取原生客户端
func (rc *RedisCache) GetClient() *redis.Client {
	return rc.client
}
