package handler

import "context"

// Invoke calls the route's handler exactly once. Its error is returned
// unchanged; panics are left to the Recover middleware.
func Invoke(ctx context.Context, route Route, req *Request, ext *Extensions) (any, error) {
	return route.Handler(ctx, req, ext)
}
