package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/previewlab/surgeon/common/logger"
	"github.com/previewlab/surgeon/common/ratelimit"
)

// SurgeryRateLimit caps how often a project can start surgeries. The
// limiter is redis-backed; when redis is unavailable the request is let
// through so a cache outage cannot take the pipeline down with it.
func SurgeryRateLimit(limiter *ratelimit.RateLimiter, limit int64, windowSec int, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			projectID := c.Param("projectId")
			if projectID == "" {
				return next(c)
			}

			result, err := limiter.CheckProjectLimit(c.Request().Context(), projectID, limit, windowSec)
			if err != nil {
				log.Warn("rate limit check failed, allowing request", "project_id", projectID, "error", err)
				return next(c)
			}

			if !result.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "Too many surgeries for this project. Try again shortly.",
					"retry_after": result.RetryAfterSeconds,
				})
			}

			return next(c)
		}
	}
}
