package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitStore keeps a sliding window of attempts per identifier.
type RateLimitStore interface {
	Observe(ctx context.Context, identifier string, window time.Duration, now time.Time) (int, time.Time, error)
	Record(ctx context.Context, identifier string, now time.Time, window time.Duration) error
}

// IdentifierFunc extracts the value a limit is scoped to.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule is a sliding-window limit.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces RateLimitRules. Store failures let the request through.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter builds a limiter on store.
func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule to the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit returns a middleware enforcing rule. Invalid rules and a nil limiter disable it.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rl == nil || rl.store == nil || rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		identifier, ok := rule.Identifier(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("%s:%s", rule.Name, identifier)
		now := rl.now()

		count, oldest, err := rl.store.Observe(ctx, key, rule.Window, now)
		if err != nil {
			rl.logger.Warn("rate limit check failed", zap.String("rule", rule.Name), zap.Error(err))
			c.Next()
			return
		}

		reset := now.Add(rule.Window)
		if !oldest.IsZero() {
			reset = oldest.Add(rule.Window)
		}

		headers := c.Writer.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count >= rule.Limit {
			retry := int(math.Ceil(reset.Sub(now).Seconds()))
			if retry < 0 {
				retry = 0
			}
			headers.Set("X-RateLimit-Remaining", "0")
			headers.Set("Retry-After", strconv.Itoa(retry))
			abortWithError(c, http.StatusTooManyRequests, fmt.Sprintf("too many requests, retry in %d seconds", retry))
			return
		}

		if err := rl.store.Record(ctx, key, now, rule.Window); err != nil {
			rl.logger.Warn("rate limit record failed", zap.String("rule", rule.Name), zap.Error(err))
		}
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(rule.Limit-count-1))

		c.Next()
	}
}
