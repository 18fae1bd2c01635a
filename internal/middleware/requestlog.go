package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/metrics"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestLogger tags each request with an id, stores a request-scoped
// logger in its context, logs the outcome and records the latency.
func RequestLogger(base *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	base = logger.OrNop(base)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = logger.NewRequestID()
			}
			c.Response().Header().Set(HeaderRequestID, rid)

			l := base.With(zap.String("request_id", rid))
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), l)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			elapsed := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(req.Method, route, status, elapsed)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
				zap.String("user", userID(c)),
			}
			switch {
			case status >= 500:
				l.Error("request", fields...)
			case status >= 400:
				l.Info("request", fields...)
			default:
				l.Debug("request", fields...)
			}
			return nil
		}
	}
}
