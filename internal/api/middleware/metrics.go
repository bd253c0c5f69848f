package middleware

import (
	"time"

	"github.com/LRZ-BADW/avina/internal/metrics"
	"github.com/labstack/echo/v4"
)

// Metrics returns a middleware that records the duration of every request
// under its route pattern
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, c.Request().Method, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
