// Package errs defines the error types shared by the request pipeline and
// the classifier that turns any error into an HTTP status and JSON body.
//
// Handlers return plain Go errors. The classifier recognizes a fixed, ordered
// set of shapes (missing field, response validation, request validation,
// explicit status, unique-constraint conflict) and falls back to a 500 for
// everything else, so clients always receive the same envelope:
//
//	{ "error": "...", "reason": "...", "details": { ... } }
package errs
