package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/deppfellow/servicekit/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(t *testing.T, env string) (*echo.Echo, *Middlewares, *metrics.Metrics) {
	t.Helper()

	cfg := config.Default()
	cfg.Primary.Env = env
	log := zerolog.Nop()
	m := metrics.New("test")
	mw := NewMiddlewares(cfg, &log, m)

	e := echo.New()
	e.HTTPErrorHandler = mw.Global.GlobalErrorHandler
	e.Use(RequestID(), mw.ContextEnhancer.EnhanceContext(), mw.Global.Recover(), mw.Metrics.Observe())
	return e, mw, m
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGlobalErrorHandler_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		status    int
		errorName string
	}{
		{name: "explicit status", err: errs.NewNotFoundError("User not found"), status: http.StatusNotFound, errorName: "Not Found"},
		{name: "missing field", err: errs.NewMissingFieldError("email"), status: http.StatusUnprocessableEntity, errorName: "Validation Error"},
		{name: "unknown", err: errors.New("disk on fire"), status: http.StatusInternalServerError, errorName: "Internal Server Error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, _, _ := newTestEcho(t, config.EnvProduction)
			e.GET("/boom", func(c echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.errorName, body["error"])
			assert.NotContains(t, body, "stack")
		})
	}
}

func TestGlobalErrorHandler_UnknownRoute(t *testing.T) {
	t.Parallel()

	e, _, m := newTestEcho(t, config.EnvProduction)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeBody(t, rec)["error"])
	assert.Equal(t, 1, testutil.CollectAndCount(m.Registry, "test_http_errors_total"))
}

func TestGlobalErrorHandler_DevelopmentStack(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEcho(t, config.EnvDevelopment)
	e.GET("/boom", func(c echo.Context) error { return errors.New("kaput") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	body := decodeBody(t, rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["stack"], "kaput")
}

func TestGlobalErrorHandler_Panic(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEcho(t, config.EnvProduction)
	e.GET("/panic", func(c echo.Context) error { panic("unexpected") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeBody(t, rec)["error"])
}

func TestGlobalErrorHandler_HeadHasNoBody(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEcho(t, config.EnvProduction)
	e.HEAD("/gone", func(c echo.Context) error { return errs.NewNotFoundError("gone") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/gone", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGlobalErrorHandler_CommittedResponse(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEcho(t, config.EnvProduction)
	e.GET("/partial", func(c echo.Context) error {
		_ = c.String(http.StatusOK, "partial")
		return errors.New("late failure")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestGlobalErrorHandler_ConflictLogsColumn(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	cfg := config.Default()
	cfg.Primary.Env = config.EnvProduction
	log := zerolog.New(&logs)
	mw := NewMiddlewares(cfg, &log, metrics.New("test"))

	e := echo.New()
	e.HTTPErrorHandler = mw.Global.GlobalErrorHandler
	e.Use(mw.ContextEnhancer.EnhanceContext())
	e.POST("/users", func(c echo.Context) error {
		return sqlerr.HandleError(&pgconn.PgError{Code: "23505", TableName: "users", ConstraintName: "users_email_key"})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Resource already exists"}`, rec.Body.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "conflict", entry["error_kind"])
	assert.Equal(t, "email", entry["column"])
}
