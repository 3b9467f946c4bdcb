package middleware

import (
	"fmt"
	"strconv"
	"time"

	"value-ledger/internal/core/ports"
	"value-ledger/pkg/apperror"
	"value-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a fixed-window limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"sessions":  {Limit: 10, Window: time.Minute},
		"transfers": {Limit: 120, Window: time.Minute},
		"vouches":   {Limit: 30, Window: time.Minute},
		"bridge":    {Limit: 30, Window: time.Minute},
		"queries":   {Limit: 240, Window: time.Minute},
		"events":    {Limit: 10, Window: time.Minute},
		"authority": {Limit: 60, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// A failing store lets the request through.
func RateLimiter(store ports.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return rateLimiter(store, group, rule, log, time.Now)
}

func rateLimiter(store ports.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger, now func() time.Time) gin.HandlerFunc {
	windowSeconds := int64(rule.Window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		count, err := store.Increment(c.Request.Context(), key, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		current := now().Unix()
		resetAt := (current/windowSeconds + 1) * windowSeconds
		remaining := rule.Limit - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(rule.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if count > rule.Limit {
			retryAfter := resetAt - current
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys limits by authenticated account, falling back to
// the client address for public routes.
func extractIdentifier(c *gin.Context) string {
	if id, ok := AccountID(c); ok {
		return "acct:" + id
	}
	return "ip:" + c.ClientIP()
}
