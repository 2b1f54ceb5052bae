package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	t.Parallel()

	m := metrics.New("test")
	cfg := config.Default()
	cfg.Primary.Env = config.EnvProduction
	rl := NewRateLimitMiddleware(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}, m)

	e := echo.New()
	e.HTTPErrorHandler = NewGlobalMiddlewares(cfg, m).GlobalErrorHandler
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, rl.Limit())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	rl := NewRateLimitMiddleware(config.RateLimitConfig{}, nil)

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, rl.Limit())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
