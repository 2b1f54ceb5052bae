package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// LoggerKey stores the request-scoped logger in the echo context.
const LoggerKey = "logger"

// ContextEnhancer builds a request-scoped logger carrying request_id, method,
// path and ip.
type ContextEnhancer struct {
	logger *zerolog.Logger
}

// NewContextEnhancer creates a ContextEnhancer around the application logger.
func NewContextEnhancer(logger *zerolog.Logger) *ContextEnhancer {
	return &ContextEnhancer{logger: logger}
}

// EnhanceContext stores the logger in the echo context and in the request's
// context.Context, where zerolog.Ctx finds it for code that never sees echo.
func (ce *ContextEnhancer) EnhanceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			contextLogger := ce.logger.With().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Path()). // route template, e.g. "/users/:id"
				Str("ip", c.RealIP()).
				Logger()

			c.Set(LoggerKey, &contextLogger)
			c.SetRequest(c.Request().WithContext(contextLogger.WithContext(c.Request().Context())))

			return next(c)
		}
	}
}

// GetLogger retrieves the request-scoped logger. Without EnhanceContext it
// returns a no-op logger.
func GetLogger(c echo.Context) *zerolog.Logger {
	if logger, ok := c.Get(LoggerKey).(*zerolog.Logger); ok {
		return logger
	}
	logger := zerolog.Nop()
	return &logger
}
