package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"BondPanel/pkg/logger"
)

// RequestLogging logs each request at debug level, and 5xx responses as errors.
func RequestLogging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", routeLabel(c)),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency_ms", time.Since(start)),
				logger.String("remote", c.RealIP()),
			}
			if c.Response().Status >= 500 {
				if err != nil {
					fields = append(fields, logger.Error(err))
				}
				log.Error("http request failed", fields...)
				return nil
			}
			log.Debug("http request", fields...)
			return nil
		}
	}
}
