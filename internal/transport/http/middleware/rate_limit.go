package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitStore defines the persistence operations required by the limiter.
type RateLimitStore interface {
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// RateLimiter enforces a sliding-window attempt budget per client IP. It sits
// in front of the login endpoint as the external gate ahead of any credential
// verification.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock allows injection of a custom clock for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// Limit returns a Gin middleware enforcing the given budget per window.
// Store failures fail open: rejecting logins because the limiter is down
// would be a worse outage than letting attempts through.
func (rl *RateLimiter) Limit(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.store == nil || limit <= 0 || window <= 0 {
			c.Next()
			return
		}

		identifier := c.ClientIP()
		if identifier == "" {
			c.Next()
			return
		}

		now := rl.now()
		ctx := c.Request.Context()

		count, err := rl.store.CountAttempts(ctx, identifier, window, now)
		if err != nil {
			rl.logger.Warn("rate limit check failed, allowing request", zap.Error(err))
			c.Next()
			return
		}

		if count >= limit {
			retryAfter := window
			if oldest, ok, err := rl.store.OldestAttempt(ctx, identifier, window, now); err == nil && ok {
				retryAfter = oldest.Add(window).Sub(now)
				if retryAfter < 0 {
					retryAfter = 0
				}
			}

			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				newErrorResponse(c, "too many attempts"))
			return
		}

		if err := rl.store.RecordAttempt(ctx, identifier, now); err != nil {
			rl.logger.Warn("failed to record rate limit attempt", zap.Error(err))
		}

		c.Next()
	}
}
