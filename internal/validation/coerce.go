package validation

import (
	"encoding"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/labstack/echo/v4"
)

// sectionTags name the struct tag the binder reads for each raw section.
var sectionTags = map[schema.Section]string{
	schema.SectionParams:  "param",
	schema.SectionQuery:   "query",
	schema.SectionHeaders: "header",
}

// typeFailures turns a binder error into per-field type failures. It returns
// nil when the error is not a type mismatch (malformed JSON, unsupported
// media type) or when no field can be blamed for it.
func typeFailures(c echo.Context, sec schema.Section, proto any, bindErr error) Errors {
	if sec == schema.SectionBody {
		var typeErr *json.UnmarshalTypeError
		if errors.As(bindErr, &typeErr) && typeErr.Field != "" {
			return Errors{decodeFailure(typeErr)}
		}
		return nil
	}

	tag, ok := sectionTags[sec]
	if !ok {
		return nil
	}
	base := schema.BaseType(proto)
	if base == nil || base.Kind() != reflect.Struct {
		return nil
	}

	var failures Errors
	collectTypeFailures(base, tag, rawValues(c, sec), &failures)
	return failures
}

func rawValues(c echo.Context, sec schema.Section) map[string][]string {
	switch sec {
	case schema.SectionParams:
		names, values := c.ParamNames(), c.ParamValues()
		out := make(map[string][]string, len(names))
		for i, name := range names {
			if i < len(values) {
				out[name] = []string{values[i]}
			}
		}
		return out
	case schema.SectionQuery:
		return c.QueryParams()
	case schema.SectionHeaders:
		return c.Request().Header
	default:
		return nil
	}
}

func collectTypeFailures(t reflect.Type, tag string, values map[string][]string, out *Errors) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get(tag), ",")

		if name == "" {
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				collectTypeFailures(field.Type, tag, values, out)
			}
			continue
		}
		if name == "-" || !field.IsExported() {
			continue
		}

		raw, ok := lookup(values, name)
		if !ok || len(raw) == 0 {
			continue
		}

		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		elem, inputs := ft, raw[:1]
		if ft.Kind() == reflect.Slice && !unmarshals(ft) {
			elem, inputs = ft.Elem(), raw
		}

		for _, v := range inputs {
			if !parses(elem, v) {
				*out = append(*out, errs.FieldFailure{
					InstancePath: "/" + name,
					Message:      "must be " + ft.String(),
					Keyword:      "type",
				})
				break
			}
		}
	}
}

// lookup matches exactly first, then case-insensitively like the binder.
func lookup(values map[string][]string, name string) ([]string, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}
	for k, v := range values {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func unmarshals(t reflect.Type) bool {
	ptr := reflect.New(t).Interface()
	switch ptr.(type) {
	case echo.BindUnmarshaler, encoding.TextUnmarshaler:
		return true
	}
	return false
}

// parses reports whether the binder could store v in a value of type t.
func parses(t reflect.Type, v string) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch u := reflect.New(t).Interface().(type) {
	case echo.BindUnmarshaler:
		return u.UnmarshalParam(v) == nil
	case encoding.TextUnmarshaler:
		return u.UnmarshalText([]byte(v)) == nil
	}

	// The binder stores "" as the zero value.
	if v == "" {
		return true
	}

	var err error
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		_, err = strconv.ParseInt(v, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		_, err = strconv.ParseUint(v, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		_, err = strconv.ParseFloat(v, t.Bits())
	case reflect.Bool:
		_, err = strconv.ParseBool(v)
	}
	return err == nil
}
