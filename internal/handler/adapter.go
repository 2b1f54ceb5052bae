package handler

import (
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/deppfellow/servicekit/internal/validation"
	"github.com/labstack/echo/v4"
)

// Adapt builds RequestData for the current request. A section is included
// only if s declares it and the raw request carries a value for it; a
// declared but absent section stays nil rather than becoming an empty
// instance. Adapt never validates and never fails.
func Adapt(c echo.Context, s *schema.Schema) RequestData {
	bound := validation.Sections(c)

	pick := func(sec schema.Section) any {
		if !s.Declares(sec) || !validation.Present(c, sec) {
			return nil
		}
		return bound[sec]
	}

	return RequestData{
		Body:    pick(schema.SectionBody),
		Params:  pick(schema.SectionParams),
		Query:   pick(schema.SectionQuery),
		Headers: pick(schema.SectionHeaders),
	}
}
