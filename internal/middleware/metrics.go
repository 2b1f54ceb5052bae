package middleware

import (
	"time"

	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records every request in Prometheus.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

func NewMetricsMiddleware(m *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

// Observe records method, route template, final status and latency. Requests
// that matched no route are grouped under "unmatched".
func (mm *MetricsMiddleware) Observe() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			mm.metrics.ObserveRequest(c.Request().Method, route, responseStatus(c, err), time.Since(start))
			return err
		}
	}
}

// responseStatus is the status the client will see. When the handler failed
// the global error handler has not written yet, so the status comes from
// classifying the error.
func responseStatus(c echo.Context, err error) int {
	if err != nil && !c.Response().Committed {
		return errs.Classify(err, errs.Options{}).StatusCode
	}
	return c.Response().Status
}
