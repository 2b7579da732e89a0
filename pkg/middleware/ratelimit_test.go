package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/pkg/ratelimit"
)

type fixedLimiter struct {
	result *ratelimit.Result
	err    error
}

func (f fixedLimiter) Allow(context.Context, ratelimit.Policy, string) (*ratelimit.Result, error) {
	return f.result, f.err
}

func serveLimited(t *testing.T, limiter ratelimit.RateLimiter, policy ratelimit.Policy) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/guest", RateLimitMiddleware(limiter, policy), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/guest", nil))
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	policy := ratelimit.GuestCartPolicy(2)

	tests := []struct {
		name    string
		limiter ratelimit.RateLimiter
		policy  ratelimit.Policy
		status  int
		retry   string
	}{
		{"no limiter", nil, policy, http.StatusCreated, ""},
		{"disabled policy", fixedLimiter{result: &ratelimit.Result{Allowed: false}}, ratelimit.GuestCartPolicy(0), http.StatusCreated, ""},
		{"allowed", fixedLimiter{result: &ratelimit.Result{Allowed: true, Limit: 2, Remaining: 1}}, policy, http.StatusCreated, ""},
		{"denied", fixedLimiter{result: &ratelimit.Result{Allowed: false, Limit: 2, RetryAfter: 3 * time.Second}}, policy, http.StatusTooManyRequests, "3"},
		{"limiter down", fixedLimiter{err: errors.New("redis down")}, policy, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveLimited(t, tt.limiter, tt.policy)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if got := w.Header().Get("Retry-After"); got != tt.retry {
				t.Errorf("Retry-After = %q, want %q", got, tt.retry)
			}
		})
	}
}
