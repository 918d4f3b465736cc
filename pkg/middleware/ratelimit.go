package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/armysmp/storefront/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit applies per-route limits keyed by the token's user id, or the
// client IP for anonymous callers. Limiter errors let the request through.
func RateLimit(limiter *ratelimit.Limiter, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if !limiter.Enabled() || endpoint == "" {
			c.Next()
			return
		}

		identity, identityType := c.ClientIP(), ratelimit.IdentityAnonymous
		if token := bearerToken(c); token != "" {
			if claims, err := ParseToken(jwtSecret, token); err == nil {
				identity, identityType = claims.UserID, ratelimit.IdentityAuthenticated
			}
		}

		rule := limiter.RuleFor(endpoint, identityType)
		result, err := limiter.Allow(c.Request.Context(), endpoint, identity, rule, identityType)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			common.ErrorResponse(c, http.StatusTooManyRequests, "too many requests, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
