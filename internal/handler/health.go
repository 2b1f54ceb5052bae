package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/servicekit/internal/middleware"
	"github.com/labstack/echo/v4"
)

// checkTimeout bounds each dependency check.
const checkTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name     string
	pinger   pinger
	required bool
}

// HealthHandler reports whether the service and its dependencies are
// reachable, for load balancers and uptime monitors.
type HealthHandler struct {
	env  string
	deps []dependency
	now  func() time.Time
}

// NewHealthHandler checks the database (required) and Redis (optional: an
// unreachable cache only degrades to misses).
func NewHealthHandler(ext *Extensions) *HealthHandler {
	h := &HealthHandler{now: time.Now}
	if ext.Config != nil {
		h.env = ext.Config.Primary.Env
	}
	if ext.DB != nil {
		h.deps = append(h.deps, dependency{name: "database", pinger: ext.DB, required: true})
	}
	if ext.Cache != nil {
		h.deps = append(h.deps, dependency{name: "redis", pinger: ext.Cache})
	}
	return h
}

// Check is the result of one dependency probe.
type Check struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /status.
type HealthResponse struct {
	Status      string           `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	Environment string           `json:"environment"`
	Checks      map[string]Check `json:"checks"`
}

// CheckHealth answers 200 when every required dependency is reachable and
// 503 otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := h.now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := HealthResponse{
		Status:      "healthy",
		Timestamp:   start.UTC(),
		Environment: h.env,
		Checks:      make(map[string]Check, len(h.deps)),
	}

	for _, dep := range h.deps {
		check := probe(c.Request().Context(), dep.pinger)
		response.Checks[dep.name] = check
		if check.Error == "" {
			continue
		}

		event := logger.Warn()
		if dep.required {
			response.Status = "unhealthy"
			event = logger.Error()
		}
		event.
			Str("check", dep.name).
			Str("error", check.Error).
			Str("response_time", check.ResponseTime).
			Msg("health check failed")
	}

	if response.Status != "healthy" {
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().Dur("total_duration", time.Since(start)).Msg("health check passed")
	return c.JSON(http.StatusOK, response)
}

func probe(ctx context.Context, p pinger) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	check := Check{Status: "healthy", ResponseTime: time.Since(start).String()}
	if err != nil {
		check.Status = "unhealthy"
		check.Error = err.Error()
	}
	return check
}
