package handler

import (
	"time"

	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/deppfellow/servicekit/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handle composes Adapt, Invoke and Resolve into an echo handler for route.
// route.Schema should already be normalized. Errors from any stage are
// returned for the global error handler to classify.
func Handle(route Route, ext *Extensions, m *metrics.Metrics) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		logger := middleware.GetLogger(c).With().
			Str("operation", "handler").
			Str("route", route.Path).
			Logger()

		logger.Debug().Msg("handling request")

		req := &Request{
			RequestData: Adapt(c, route.Schema),
			Raw:         c.Request(),
		}

		handlerStart := time.Now()
		result, err := Invoke(c.Request().Context(), route, req, ext)
		handlerDuration := time.Since(handlerStart)

		if err != nil {
			m.ObserveHandler(route.Path, "error", handlerDuration)
			logger.Debug().
				Err(err).
				Dur("handler_duration", handlerDuration).
				Dur("total_duration", time.Since(start)).
				Msg("handler execution failed")
			return err
		}
		m.ObserveHandler(route.Path, "success", handlerDuration)

		reply, err := Resolve(c.Request().Method, result, route.Schema, nil)
		if err != nil {
			logger.Debug().
				Err(err).
				Dur("handler_duration", handlerDuration).
				Msg("response does not match its schema")
			return err
		}

		logger.Info().
			Int("status", reply.Status).
			Dur("handler_duration", handlerDuration).
			Dur("total_duration", time.Since(start)).
			Msg("request completed successfully")

		if reply.Empty {
			return c.NoContent(reply.Status)
		}
		return c.JSON(reply.Status, reply.Body)
	}
}
