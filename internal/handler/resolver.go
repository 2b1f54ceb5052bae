package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/deppfellow/servicekit/internal/validation"
)

// Reply is a resolved success response.
type Reply struct {
	Status int
	Body   any

	// Empty replies carry no body at all.
	Empty bool
}

// ValidateFunc checks a value against a response prototype.
type ValidateFunc func(proto, v any) error

// Resolve picks the status for a handler result and checks the result
// against the response schema declared for that status.
//
// Status policy: POST with a result is 201, DELETE is always 204 without a
// body, everything else is 200. A nil result is sent as an empty body; a
// typed nil (nil pointer, map or slice) counts as nil.
//
// A nil validate uses validation.Value.
func Resolve(method string, result any, s *schema.Schema, validate ValidateFunc) (Reply, error) {
	if validate == nil {
		validate = validation.Value
	}

	absent := isAbsent(result)

	switch {
	case method == http.MethodDelete:
		return Reply{Status: http.StatusNoContent, Empty: true}, nil
	case method == http.MethodPost && !absent:
		return checked(http.StatusCreated, result, s, validate)
	case absent:
		return Reply{Status: http.StatusOK, Empty: true}, nil
	default:
		return checked(http.StatusOK, result, s, validate)
	}
}

func isAbsent(result any) bool {
	if result == nil {
		return true
	}
	rv := reflect.ValueOf(result)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func checked(status int, result any, s *schema.Schema, validate ValidateFunc) (Reply, error) {
	proto, ok := s.ResponseFor(status)
	if !ok {
		return Reply{Status: status, Body: result}, nil
	}

	if err := validate(proto, result); err != nil {
		return Reply{}, serializationError(status, err)
	}
	return Reply{Status: status, Body: result}, nil
}

// serializationError maps a response validation failure: a missing required
// property becomes a missing-field error, anything else a
// ResponseValidationError with the full list.
func serializationError(status int, err error) error {
	var failures validation.Errors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return err
	}

	if first := failures[0]; first.Keyword == "required" {
		return errs.NewMissingFieldError(lastSegment(first.InstancePath))
	}

	return &errs.ResponseValidationError{Status: status, Errors: failures}
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "field"
	}
	return path
}
