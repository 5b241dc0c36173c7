package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"StockML/pkg/logger"
)

// RequestLogging logs every request at debug level. Server errors are
// logged as errors and requests slower than slow as warnings.
func RequestLogging(log *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", c.Path()),
				logger.String("remote", c.RealIP()),
				logger.Int("status", status),
				logger.Int64("bytes", c.Response().Size),
				logger.Duration("latency", time.Since(start)),
			}

			switch {
			case status >= 500:
				log.Error("http request failed", fields...)
			case slow > 0 && time.Since(start) >= slow:
				log.Warn("http request slow", fields...)
			default:
				log.Debug("http request", fields...)
			}
			return nil
		}
	}
}
