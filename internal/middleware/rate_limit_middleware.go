package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/shuttle-reservation-backend/internal/services"
)

// Limiter records one request for key, failing with *services.RateLimitError
// when the caller is over budget
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// RateLimit limits requests per authenticated user. Apply after AuthMiddleware;
// unauthenticated requests fall back to the client IP.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if userCtx, ok := GetUserContext(c); ok {
			key = "user:" + userCtx.UserID.String()
		}

		err := limiter.Allow(c.Request.Context(), key)
		if err == nil {
			c.Next()
			return
		}

		var rateErr *services.RateLimitError
		if errors.As(err, &rateErr) {
			seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     rateErr.Message,
				"code":        "RATE_LIMITED",
				"retry_after": seconds,
			})
			return
		}

		// Limiter failures never block bookings
		c.Next()
	}
}
