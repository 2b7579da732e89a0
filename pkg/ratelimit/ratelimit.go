// Package ratelimit 提供按场景划分的 Redis GCRA 限流
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:ratelimit:"

// ScopeGuestCart 游客购物车签发
const ScopeGuestCart = "guest_cart"

// Limit 限流规则
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// PerMinute 每分钟 n 次，突发 n
func PerMinute(n int) Limit {
	return Limit{Rate: n, Period: time.Minute, Burst: n}
}

// Policy 一个限流场景。同一 Scope 下每个 subject（通常是客户端 IP）独立计数
type Policy struct {
	Scope string
	Limit Limit
}

// GuestCartPolicy 每个客户端每分钟最多签发 perMinute 个游客购物车，perMinute <= 0 表示不限
func GuestCartPolicy(perMinute int) Policy {
	return Policy{Scope: ScopeGuestCart, Limit: PerMinute(perMinute)}
}

// Enabled 规则有效时才限流
func (p Policy) Enabled() bool {
	return p.Scope != "" && p.Limit.Rate > 0 && p.Limit.Period > 0
}

// Key 计数使用的 Redis key
func (p Policy) Key(subject string) string {
	return keyPrefix + p.Scope + ":" + subject
}

// Result 限流结果
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// Headers 返回 X-RateLimit-* 响应头，被拒绝时附带 Retry-After（向上取整到秒）
func (r *Result) Headers() map[string]string {
	h := map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(r.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(r.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(ceilSeconds(r.ResetAfter), 10),
	}
	if !r.Allowed {
		h["Retry-After"] = strconv.FormatInt(max(ceilSeconds(r.RetryAfter), 1), 10)
	}
	return h
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// RateLimiter 限流接口
type RateLimiter interface {
	// Allow 检查 subject 在 policy 下是否放行
	Allow(ctx context.Context, policy Policy, subject string) (*Result, error)
}

// Check 未配置限流器或策略未启用时返回 nil 结果表示放行；
// 限流器出错时同样放行，错误交给调用方记录
func Check(ctx context.Context, limiter RateLimiter, policy Policy, subject string) (*Result, error) {
	if limiter == nil || !policy.Enabled() {
		return nil, nil
	}
	return limiter.Allow(ctx, policy, subject)
}

// RedisRateLimiter 基于 Redis 的限流实现
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter 创建 Redis 限流器
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// Allow 检查是否放行
func (r *RedisRateLimiter) Allow(ctx context.Context, policy Policy, subject string) (*Result, error) {
	res, err := r.limiter.Allow(ctx, policy.Key(subject), redis_rate.Limit{
		Rate:   policy.Limit.Rate,
		Period: policy.Limit.Period,
		Burst:  policy.Limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check for %s failed: %w", policy.Scope, err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      policy.Limit.Burst,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}
