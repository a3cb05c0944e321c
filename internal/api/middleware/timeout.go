package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// TimeoutConfig returns timeout middleware configuration
func TimeoutConfig(timeout time.Duration) echo.MiddlewareFunc {
	return middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: timeout,
	})
}

// SelectiveTimeoutConfig applies analysisTimeout to synchronous profile
// analysis, which waits on remote scrape jobs, and defaultTimeout elsewhere
func SelectiveTimeoutConfig(defaultTimeout, analysisTimeout time.Duration) echo.MiddlewareFunc {
	short := middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Skipper: isSyncAnalysis,
		Timeout: defaultTimeout,
	})
	long := middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Skipper: func(c echo.Context) bool { return !isSyncAnalysis(c) },
		Timeout: analysisTimeout,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return short(long(next))
	}
}

func isSyncAnalysis(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasSuffix(path, "/profiles/analyze")
}
