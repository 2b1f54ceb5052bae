package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"
)

// Kind enumerates the error shapes the classifier recognizes, in priority order.
type Kind int

const (
	KindMissingField Kind = iota
	KindResponseValidation
	KindRequestValidation
	KindStatus
	KindConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "missing_field"
	case KindResponseValidation:
		return "response_validation"
	case KindRequestValidation:
		return "validation"
	case KindStatus:
		return "status"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Details "type" values carried in validation-class error bodies.
const (
	DetailsTypeMissingField       = "missing_field"
	DetailsTypeValidation         = "validation"
	DetailsTypeResponseValidation = "response_validation"
)

// UniqueViolationCode is the Postgres SQLSTATE for unique_violation.
const UniqueViolationCode = "23505"

// Body is the JSON envelope of every error reply.
type Body struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Details any    `json:"details,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// MissingFieldDetails is the details payload for KindMissingField.
type MissingFieldDetails struct {
	Type  string `json:"type"`
	Field string `json:"field"`
}

// ValidationDetails is the details payload for request and response validation.
type ValidationDetails struct {
	Type   string         `json:"type"`
	Errors []FieldFailure `json:"errors"`
}

// Classified is the outcome of Classify.
type Classified struct {
	Kind       Kind
	StatusCode int
	Body       Body
}

// Options tune classification.
type Options struct {
	// Development attaches the error's stack trace to the body.
	Development bool
}

// Optional interfaces looked up along the error chain.
type (
	failureLister interface{ Failures() []FieldFailure }
	statusCoder   interface{ StatusCode() int }
	errorNamer    interface{ ErrorName() string }
	detailer      interface{ ErrorDetails() any }
	sqlStater     interface{ SQLState() string }
	stackTracer   interface{ StackTrace() pkgerrors.StackTrace }
)

// Classify maps err to a status code and response body.
//
// The result depends only on err and opts; the same error always yields the
// same reply.
func Classify(err error, opts Options) Classified {
	if err == nil {
		err = errors.New("")
	}

	c := classify(err)
	if opts.Development {
		c.Body.Stack = stackOf(err)
	}
	return c
}

func classify(err error) Classified {
	switch kind, target := kindOf(err); kind {
	case KindMissingField:
		field := target.(string)
		return Classified{
			Kind:       kind,
			StatusCode: http.StatusUnprocessableEntity,
			Body: Body{
				Error:   "Validation Error",
				Reason:  fmt.Sprintf(`Field "%s" is required`, field),
				Details: MissingFieldDetails{Type: DetailsTypeMissingField, Field: field},
			},
		}

	case KindResponseValidation:
		rv := target.(*ResponseValidationError)
		reason := "Response does not match its schema"
		if len(rv.Errors) > 0 {
			reason = rv.Errors[0].Field() + ": " + rv.Errors[0].Message
		}
		return Classified{
			Kind:       kind,
			StatusCode: http.StatusUnprocessableEntity,
			Body: Body{
				Error:   "Serialization Error",
				Reason:  reason,
				Details: ValidationDetails{Type: DetailsTypeResponseValidation, Errors: rv.Errors},
			},
		}

	case KindRequestValidation:
		failures := target.([]FieldFailure)
		return Classified{
			Kind:       kind,
			StatusCode: http.StatusBadRequest,
			Body: Body{
				Error:   "Validation Error",
				Reason:  failures[0].Field() + ": " + failures[0].Message,
				Details: ValidationDetails{Type: DetailsTypeValidation, Errors: failures},
			},
		}

	case KindStatus:
		return target.(Classified)

	case KindConflict:
		return Classified{
			Kind:       kind,
			StatusCode: http.StatusConflict,
			Body:       Body{Error: "Resource already exists"},
		}

	default:
		reason := err.Error()
		if reason == "" {
			reason = "Something went wrong"
		}
		return Classified{
			Kind:       KindInternal,
			StatusCode: http.StatusInternalServerError,
			Body:       Body{Error: "Internal Server Error", Reason: reason},
		}
	}
}

// kindOf finds the first matching shape and returns the value the body is
// built from.
func kindOf(err error) (Kind, any) {
	if m := missingFieldPattern.FindStringSubmatch(err.Error()); m != nil {
		return KindMissingField, m[1]
	}

	var rv *ResponseValidationError
	if errors.As(err, &rv) {
		return KindResponseValidation, rv
	}

	var fl failureLister
	if errors.As(err, &fl) {
		if failures := fl.Failures(); len(failures) > 0 {
			return KindRequestValidation, failures
		}
	}

	if c, ok := statusOf(err); ok {
		return KindStatus, c
	}

	var ss sqlStater
	if errors.As(err, &ss) && ss.SQLState() == UniqueViolationCode {
		return KindConflict, nil
	}

	return KindInternal, nil
}

// statusOf handles errors that carry their own status: our HTTPError (or any
// StatusCode() implementation) and echo's HTTPError raised by routing and binding.
func statusOf(err error) (Classified, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		name := "Error"
		var n errorNamer
		if errors.As(err, &n) && n.ErrorName() != "" {
			name = n.ErrorName()
		}
		var details any
		var d detailer
		if errors.As(err, &d) {
			details = d.ErrorDetails()
		}
		return Classified{
			Kind:       KindStatus,
			StatusCode: sc.StatusCode(),
			Body:       Body{Error: name, Reason: err.Error(), Details: details},
		}, true
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		message, ok := echoErr.Message.(string)
		if !ok {
			message = http.StatusText(echoErr.Code)
		}
		name := http.StatusText(echoErr.Code)
		if name == "" {
			name = "Error"
		}
		return Classified{
			Kind:       KindStatus,
			StatusCode: echoErr.Code,
			Body:       Body{Error: name, Reason: message},
		}, true
	}

	return Classified{}, false
}

// stackOf renders the innermost pkg/errors stack trace in the chain, or the
// verbose form of err when nothing in the chain recorded one.
func stackOf(err error) string {
	var st pkgerrors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(stackTracer); ok {
			st = t.StackTrace()
		}
	}
	if st == nil {
		return fmt.Sprintf("%+v", err)
	}
	return err.Error() + fmt.Sprintf("%+v", st)
}
