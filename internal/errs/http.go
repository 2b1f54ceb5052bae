package errs

import (
	"net/http"
	"strings"
)

// FieldFailure is a single validation failure.
//
// InstancePath is a JSON pointer into the validated value (e.g. "/email",
// "/items/0/name"). Keyword is the rule that failed (e.g. "required", "email").
type FieldFailure struct {
	InstancePath string `json:"instancePath"`
	Message      string `json:"message"`
	Keyword      string `json:"keyword,omitempty"`
}

// Field returns the failing field name: the instance path with one leading
// separator removed, or "field" when the path is empty.
func (f FieldFailure) Field() string {
	field := strings.TrimPrefix(f.InstancePath, "/")
	if field == "" {
		return "field"
	}
	return field
}

// HTTPError is an error that carries its own status code.
//
// Handlers return it when they already know the HTTP outcome (not found,
// forbidden, ...). The classifier copies Status, Name, Message and Details
// straight into the response.
type HTTPError struct {
	Status  int    `json:"status"`
	Name    string `json:"error"`
	Message string `json:"reason"`

	// Details is optional structured context for the client.
	Details any `json:"details,omitempty"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// StatusCode reports the HTTP status the error should be answered with.
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// ErrorName reports the short error title ("Not Found", "Forbidden", ...).
func (e *HTTPError) ErrorName() string {
	return e.Name
}

// ErrorDetails reports the optional details payload.
func (e *HTTPError) ErrorDetails() any {
	return e.Details
}

// Is reports whether target is also an *HTTPError. Status and message are
// not compared, so errors.Is(err, &HTTPError{}) answers "is this any HTTP error".
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithDetails returns a copy of e with Details replaced.
func (e *HTTPError) WithDetails(details any) *HTTPError {
	return &HTTPError{
		Status:  e.Status,
		Name:    e.Name,
		Message: e.Message,
		Details: details,
	}
}

// newHTTPError builds an HTTPError whose Name is the standard status text.
func newHTTPError(status int, message string) *HTTPError {
	return &HTTPError{
		Status:  status,
		Name:    http.StatusText(status),
		Message: message,
	}
}
