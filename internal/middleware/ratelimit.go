package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rakapradana/toko-api/internal/service"
	appErrors "github.com/rakapradana/toko-api/pkg/errors"
	"github.com/rakapradana/toko-api/pkg/ratelimit"
	"github.com/rakapradana/toko-api/pkg/response"
)

// Rate-limiter purposes; each keeps its own bucket per client key.
const (
	RateLimitLogin  = "login"
	RateLimitStepUp = "stepup"
)

// RateLimit rejects requests over the fixed-window budget for the given
// purpose, keyed by client IP, before the handler touches credentials or
// tokens. A limiter backend outage allows the request through; losing the
// throttle is preferable to locking every client out.
func RateLimit(limiter ratelimit.Limiter, purpose string, metrics *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Check(c.Request.Context(), purpose, c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", zap.String("purpose", purpose), zap.Error(err))
			c.Next()
			return
		}

		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			if metrics != nil {
				metrics.IncRateLimited(purpose)
			}
			logger.Warn("rate limit exceeded",
				zap.String("purpose", purpose),
				zap.String("ip", c.ClientIP()),
				zap.Int("retry_after", retryAfter),
			)
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
