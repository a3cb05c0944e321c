package middleware

import (
	"time"

	"socialprobe/internal/logging"

	"github.com/labstack/echo/v4"
)

// RequestLogger logs one line per request through the application logger
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := map[string]interface{}{
				"request_id": RequestID(c),
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     c.Response().Status,
				"latency":    time.Since(start).String(),
				"remote_ip":  c.RealIP(),
			}

			logger := logging.GetGlobalLogger()
			switch {
			case c.Response().Status >= 500:
				logger.Error("HTTP request", fields)
			case c.Response().Status >= 400:
				logger.Warn("HTTP request", fields)
			default:
				logger.Info("HTTP request", fields)
			}
			return nil
		}
	}
}
