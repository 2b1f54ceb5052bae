package router

import (
	"github.com/deppfellow/servicekit/internal/handler"
	"github.com/deppfellow/servicekit/internal/server"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers endpoints that are not part of the API:
// the health check and the Prometheus scrape endpoint.
func registerSystemRoutes(s *server.Server, h *handler.Handlers) {
	s.Echo.GET("/status", h.Health.CheckHealth)
	s.Echo.HEAD("/status", h.Health.CheckHealth)

	s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
}
