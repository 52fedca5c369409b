package middleware

import (
	"fmt"
	"math"

	"github.com/labstack/echo/v4"

	"directchat/internal/infrastructure/ratelimit"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

// RateLimit throttles requests per caller for the given action. Authenticated
// callers are keyed by uid, anonymous ones by client IP.
func RateLimit(rl *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get("uid").(string)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, wait := rl.Allow(key, action)
			if !allowed {
				retry := int(math.Ceil(wait.Seconds()))
				if retry < 1 {
					retry = 1
				}
				logger.Warn("RATE LIMIT: %s blocked for %s (retry in %ds)", key, action, retry)
				c.Response().Header().Set("Retry-After", fmt.Sprint(retry))
				return errors.TooManyRequests("Rate limit exceeded")
			}

			return next(c)
		}
	}
}
