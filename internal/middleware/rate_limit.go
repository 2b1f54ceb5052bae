package middleware

import (
	"net/http"

	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware throttles clients by IP with an in-memory token bucket.
type RateLimitMiddleware struct {
	cfg     config.RateLimitConfig
	metrics *metrics.Metrics
}

func NewRateLimitMiddleware(cfg config.RateLimitConfig, m *metrics.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{cfg: cfg, metrics: m}
}

// Limit returns the limiter, or a pass-through when no rate is configured.
// Rejected requests end in the global error handler as 429.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	if !r.cfg.Enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(r.cfg.RequestsPerSecond),
		Burst:     r.cfg.Burst,
		ExpiresIn: r.cfg.ExpiresIn(),
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errs.NewForbiddenError("Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(c.Path())
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}

// RecordRateLimitHit counts a rejected request against its route.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	r.metrics.ObserveRateLimited(endpoint)
}
