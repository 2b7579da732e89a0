package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/ratelimit"
	"github.com/wyfcoding/storefront/pkg/response"
)

// RateLimitMiddleware 按客户端 IP 套用 policy。limiter 为 nil、策略未启用或限流器故障时放行
func RateLimitMiddleware(limiter ratelimit.RateLimiter, policy ratelimit.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := ratelimit.Check(c.Request.Context(), limiter, policy, c.ClientIP())
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable, failing open", "scope", policy.Scope, "error", err)
		}
		if res == nil {
			c.Next()
			return
		}

		for k, v := range res.Headers() {
			c.Header(k, v)
		}
		if !res.Allowed {
			response.ErrorWithStatus(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests")
			return
		}
		c.Next()
	}
}
