package errs

import (
	"fmt"
	"net/http"
	"regexp"
)

// NewBadRequestError creates a 400 Bad Request HTTPError.
func NewBadRequestError(message string) *HTTPError {
	return newHTTPError(http.StatusBadRequest, message)
}

// NewForbiddenError creates a 403 Forbidden HTTPError.
func NewForbiddenError(message string) *HTTPError {
	return newHTTPError(http.StatusForbidden, message)
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string) *HTTPError {
	return newHTTPError(http.StatusNotFound, message)
}

// missingFieldPattern matches the message produced when a serialized value
// lacks a property its response schema requires.
var missingFieldPattern = regexp.MustCompile(`"([^"]+)" is required!`)

// MissingFieldError reports that a required property is absent from a value
// that is about to be serialized.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf(`"%s" is required!`, e.Field)
}

// NewMissingFieldError creates a MissingFieldError for field.
func NewMissingFieldError(field string) *MissingFieldError {
	return &MissingFieldError{Field: field}
}

// ResponseValidationError reports that a handler result does not satisfy the
// response schema declared for the resolved status code.
type ResponseValidationError struct {
	// Status is the status the reply would have had.
	Status int
	Errors []FieldFailure
}

func (e *ResponseValidationError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("response for status %d does not match its schema", e.Status)
	}
	first := e.Errors[0]
	return fmt.Sprintf("response for status %d does not match its schema: %s: %s", e.Status, first.Field(), first.Message)
}
