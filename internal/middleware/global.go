package middleware

import (
	"net/http"

	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/deppfellow/servicekit/internal/sqlerr"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// GlobalMiddlewares groups global middleware and the global error handler.
type GlobalMiddlewares struct {
	cfg     *config.Config
	metrics *metrics.Metrics
}

func NewGlobalMiddlewares(cfg *config.Config, m *metrics.Metrics) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		cfg:     cfg,
		metrics: m,
	}
}

// CORS allows browser clients from the configured origins.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  global.cfg.Server.CORSAllowedOrigins,
		ExposeHeaders: []string{RequestIDHeader},
	})
}

// RequestLogger writes one "API" line per request, with severity based on
// the final status.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := v.Status

			// The global error handler has not written the reply yet when a
			// handler returns an error; derive the status the same way it will.
			// See https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
			if v.Error != nil {
				statusCode = errs.Classify(v.Error, errs.Options{}).StatusCode
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

// Recover turns handler panics into errors for GlobalErrorHandler and logs
// the stack with the request logger.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			GetLogger(c).Error().
				Err(err).
				Bytes("panic_stack", stack).
				Msg("recovered from panic")
			return err
		},
	})
}

// Secure adds standard security headers.
func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler is the final error funnel for the entire HTTP server:
// route handlers, upstream validation, binding, routing 404/405 and
// recovered panics all end here. Every error is classified, logged once and
// answered with a JSON body.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	classified := errs.Classify(err, errs.Options{Development: global.cfg.IsDevelopment()})

	logger := GetLogger(c)
	var e *zerolog.Event
	if classified.StatusCode >= 500 {
		e = logger.Error().Stack()
	} else {
		e = logger.Warn()
	}
	e = e.Err(err).
		Int("status", classified.StatusCode).
		Str("error_kind", classified.Kind.String())
	if classified.Kind == errs.KindConflict {
		if column := sqlerr.ConflictColumn(err); column != "" {
			e = e.Str("column", column)
		}
	}
	e.Msg(classified.Body.Error)

	global.metrics.ObserveError(classified.Kind.String(), classified.StatusCode)

	if c.Response().Committed {
		return
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(classified.StatusCode)
	} else {
		writeErr = c.JSON(classified.StatusCode, classified.Body)
	}
	if writeErr != nil {
		logger.Error().Err(writeErr).Msg("failed to write error response")
	}
}
