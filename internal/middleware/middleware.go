// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns
// such as request IDs, request-scoped logging, CORS, rate
// limiting, metrics and panic recovery. It also owns the
// global error handler that turns any error into a JSON reply.
package middleware
