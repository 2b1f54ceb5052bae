// Package validation binds and validates request data against route schemas,
// and checks handler results against response schemas.
//
// It uses the `validator` library to enforce rules (like
// required fields or email formats) defined in struct tags
// and extracts validation errors into a format the client can
// understand: a list of {instancePath, message} failures.
package validation
