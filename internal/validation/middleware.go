package validation

import (
	"errors"
	"net/http"

	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/labstack/echo/v4"
)

const boundKey = "validation.bound"

// Bound holds the section instances produced by Middleware, keyed by section.
// Only declared sections appear.
type Bound map[schema.Section]any

// Middleware binds every section s declares into a fresh prototype instance
// and validates it. Failures from all sections are reported together as
// Errors, type mismatches from the binder included. Only input the binder
// cannot read at all (malformed JSON) is an *echo.HTTPError.
//
// A declared section with no raw value is still validated (as its zero
// value), so required fields are enforced even when the client sent nothing.
func Middleware(s *schema.Schema) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bound, err := Bind(c, s)
			if err != nil {
				return err
			}
			c.Set(boundKey, bound)
			return next(c)
		}
	}
}

// Bind performs the work of Middleware without touching the context.
func Bind(c echo.Context, s *schema.Schema) (Bound, error) {
	bound := Bound{}
	var failures Errors

	for _, sec := range schema.Sections {
		proto := s.Section(sec)
		if proto == nil {
			continue
		}

		instance := schema.New(proto)
		if Present(c, sec) {
			if err := bindSection(c, sec, instance); err != nil {
				mismatches := typeFailures(c, sec, proto, err)
				if len(mismatches) == 0 {
					return nil, err
				}
				// A partly bound instance would report spurious rule failures.
				failures = append(failures, mismatches...)
				continue
			}
		}

		if err := Struct(instance); err != nil {
			var sectionFailures Errors
			if !errors.As(err, &sectionFailures) {
				return nil, err
			}
			failures = append(failures, sectionFailures...)
			continue
		}

		bound[sec] = instance
	}

	if len(failures) > 0 {
		return nil, failures
	}
	return bound, nil
}

// Sections returns what Middleware stored for this request, or nil.
func Sections(c echo.Context) Bound {
	bound, _ := c.Get(boundKey).(Bound)
	return bound
}

// Present reports whether the raw request carries a value for sec.
func Present(c echo.Context, sec schema.Section) bool {
	req := c.Request()
	switch sec {
	case schema.SectionBody:
		return req.ContentLength != 0 && req.Body != nil && req.Body != http.NoBody
	case schema.SectionParams:
		return len(c.ParamNames()) > 0
	case schema.SectionQuery:
		return req.URL.RawQuery != ""
	case schema.SectionHeaders:
		return len(req.Header) > 0
	default:
		return false
	}
}

func bindSection(c echo.Context, sec schema.Section, instance any) error {
	binder := &echo.DefaultBinder{}
	switch sec {
	case schema.SectionBody:
		return binder.BindBody(c, instance)
	case schema.SectionParams:
		return binder.BindPathParams(c, instance)
	case schema.SectionQuery:
		return binder.BindQueryParams(c, instance)
	case schema.SectionHeaders:
		return binder.BindHeaders(c, instance)
	default:
		return nil
	}
}
