package middleware

import (
	"time"

	applogger "StockSense/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every request at debug level. A nil logger disables it.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req, res := c.Request(), c.Response()
			l.Debug("http request",
				applogger.String("request_id", requestID(c)),
				applogger.String("method", req.Method),
				applogger.String("route", c.Path()),
				applogger.String("query", req.URL.RawQuery),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Int64("bytes", res.Size),
				applogger.Duration("duration_ms", time.Since(start)),
			)
			return err
		}
	}
}
