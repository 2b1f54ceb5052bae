package middleware

import (
	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/rs/zerolog"
)

// Middlewares groups all middleware components used by the HTTP server.
type Middlewares struct {
	// Global holds CORS, request logging, recovery, secure headers and the
	// global error handler.
	Global *GlobalMiddlewares

	// ContextEnhancer attaches a request-scoped logger.
	ContextEnhancer *ContextEnhancer

	// Metrics records request counts and latencies.
	Metrics *MetricsMiddleware

	// RateLimit throttles clients by IP when configured.
	RateLimit *RateLimitMiddleware
}

// NewMiddlewares constructs all middleware components once.
func NewMiddlewares(cfg *config.Config, logger *zerolog.Logger, m *metrics.Metrics) *Middlewares {
	return &Middlewares{
		Global:          NewGlobalMiddlewares(cfg, m),
		ContextEnhancer: NewContextEnhancer(logger),
		Metrics:         NewMetricsMiddleware(m),
		RateLimit:       NewRateLimitMiddleware(cfg.Server.RateLimit, m),
	}
}
