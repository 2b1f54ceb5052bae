// Package handler is the first layer after the router.
//
// Every route runs the same pipeline: the bound request sections are
// projected into RequestData (Adapt), the route's function is called
// (Invoke), and its result is turned into a status and body (Resolve).
// Errors at any stage are returned to echo, whose global error handler
// classifies them.
package handler

import (
	"context"
	"net/http"

	"github.com/deppfellow/servicekit/internal/cache"
	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/database"
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// HandlerFunc is the application code behind a route. A nil result means
// "nothing to send".
type HandlerFunc func(ctx context.Context, req *Request, ext *Extensions) (any, error)

// Route is defined once at startup and never modified afterwards.
type Route struct {
	Method  string
	Path    string
	Schema  *schema.Schema
	Config  RouteConfig
	Handler HandlerFunc
}

// RouteConfig carries documentation and per-route middleware.
type RouteConfig struct {
	Summary     string
	Description string
	Tags        []string
	OperationID string
	Deprecated  bool

	// Hidden keeps the route out of the API document.
	Hidden bool

	// Middleware runs after upstream validation, right before the pipeline.
	Middleware []echo.MiddlewareFunc
}

// RequestData holds the declared sections that the client actually sent.
// Absent sections are nil. Values are pointers to the schema prototypes'
// types, already bound and validated.
type RequestData struct {
	Body    any
	Params  any
	Query   any
	Headers any
}

// Request is what a HandlerFunc receives.
type Request struct {
	RequestData

	// Raw is the underlying request, for anything the schema does not cover.
	Raw *http.Request
}

// Extensions are resources built once at startup and handed to every
// handler call. Handlers must treat them as shared and read-only.
type Extensions struct {
	Config *config.Config
	Logger *zerolog.Logger
	DB     *database.Database
	Cache  *cache.Cache
}

// Body returns the bound body as *T, or nil when absent or of another type.
func Body[T any](req *Request) *T {
	v, _ := req.Body.(*T)
	return v
}

// Params returns the bound path params as *T, or nil.
func Params[T any](req *Request) *T {
	v, _ := req.Params.(*T)
	return v
}

// Query returns the bound query as *T, or nil.
func Query[T any](req *Request) *T {
	v, _ := req.Query.(*T)
	return v
}

// Headers returns the bound headers as *T, or nil.
func Headers[T any](req *Request) *T {
	v, _ := req.Headers.(*T)
	return v
}
