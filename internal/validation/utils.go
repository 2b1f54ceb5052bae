package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/go-playground/validator/v10"
)

// Errors is a non-empty list of field failures. It satisfies error and is
// recognized by the error classifier through Failures.
type Errors []errs.FieldFailure

func (e Errors) Error() string {
	if len(e) == 0 {
		return "Validation failed"
	}
	return fmt.Sprintf("Validation failed: %s: %s", e[0].Field(), e[0].Message)
}

// Failures returns the failure list.
func (e Errors) Failures() []errs.FieldFailure {
	return e
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// tagSources are consulted in order to name a field the way the client sees it.
var tagSources = []string{"json", "param", "query", "header"}

// Validator returns the shared validator. Field names in failures come from
// the json/param/query/header tags, so paths match the wire format.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range tagSources {
				name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return ""
		})
	})
	return validate
}

// Struct validates v (a struct or pointer to struct) against its tags.
// It returns nil, Errors, or the validator's own error for invalid input.
func Struct(v any) error {
	return structAt(v, "")
}

func structAt(v any, prefix string) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	return Errors(extractValidationError(validationErrors, prefix))
}

// Value checks v against the prototype proto, the way a response body is
// checked before it is sent. A nil proto accepts anything.
//
// Values of the prototype's own type are validated directly; anything else
// (maps, other structs) goes through JSON into a fresh prototype first, so
// type mismatches surface as failures too.
func Value(proto any, v any) error {
	base := schema.BaseType(proto)
	if base == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Errors{{Message: "must not be null", Keyword: "type"}}
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return Errors{{Message: "must not be null", Keyword: "type"}}
	}

	if rv.Type() != base {
		converted, err := convert(base, v)
		if err != nil {
			return err
		}
		rv = converted
	}

	return check(rv, "")
}

// convert re-decodes v into a new value of type t.
func convert(t reflect.Type, v any) (reflect.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return reflect.Value{}, Errors{{Message: "must be serializable: " + err.Error(), Keyword: "type"}}
	}

	target := reflect.New(t)
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(target.Interface()); err != nil {
		return reflect.Value{}, Errors{decodeFailure(err)}
	}
	return target.Elem(), nil
}

func decodeFailure(err error) errs.FieldFailure {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := ""
		if typeErr.Field != "" {
			path = "/" + strings.ReplaceAll(typeErr.Field, ".", "/")
		}
		return errs.FieldFailure{
			InstancePath: path,
			Message:      "must be " + typeErr.Type.String(),
			Keyword:      "type",
		}
	}
	return errs.FieldFailure{Message: err.Error(), Keyword: "type"}
}

// check walks structs and slices of structs; scalars carry no rules.
func check(rv reflect.Value, prefix string) error {
	switch rv.Kind() {
	case reflect.Struct:
		return structAt(rv.Interface(), prefix)

	case reflect.Slice, reflect.Array:
		var all Errors
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			for elem.Kind() == reflect.Pointer || elem.Kind() == reflect.Interface {
				if elem.IsNil() {
					break
				}
				elem = elem.Elem()
			}
			if elem.Kind() != reflect.Struct {
				continue
			}
			err := check(elem, prefix+"/"+strconv.Itoa(i))
			if err == nil {
				continue
			}
			var failures Errors
			if !errors.As(err, &failures) {
				return err
			}
			all = append(all, failures...)
		}
		if len(all) > 0 {
			return all
		}
		return nil

	default:
		return nil
	}
}

// instancePath turns a validator namespace ("CreateUser.address.lines[0]")
// into a JSON pointer ("/address/lines/0"). The root type name is dropped.
func instancePath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return ""
	}
	rest = strings.ReplaceAll(rest, "]", "")
	rest = strings.ReplaceAll(rest, "[", ".")
	return "/" + strings.ReplaceAll(rest, ".", "/")
}

func extractValidationError(validationErrors validator.ValidationErrors, prefix string) []errs.FieldFailure {
	failures := make([]errs.FieldFailure, 0, len(validationErrors))

	// Convert validator.ValidationErrors into user-friendly messages.
	for _, err := range validationErrors {
		var msg string

		switch err.Tag() {
		case "required":
			msg = "is required"

		case "min":
			// strings: length, numbers: value
			if err.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("must be at least %s characters", err.Param())
			} else {
				msg = fmt.Sprintf("must be at least %s", err.Param())
			}

		case "max":
			if err.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("must not exceed %s characters", err.Param())
			} else {
				msg = fmt.Sprintf("must not exceed %s", err.Param())
			}

		case "gte":
			msg = fmt.Sprintf("must be greater than or equal to %s", err.Param())

		case "lte":
			msg = fmt.Sprintf("must be less than or equal to %s", err.Param())

		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", err.Param())

		case "email":
			msg = "must be a valid email address"

		case "e164":
			msg = "must be a valid phone number with country code"

		case "uuid", "uuid4":
			msg = "must be a valid UUID"

		case "dive":
			msg = "some items are invalid"

		default:
			if err.Param() != "" {
				msg = fmt.Sprintf("must satisfy %s=%s", err.Tag(), err.Param())
			} else {
				msg = fmt.Sprintf("must satisfy %s", err.Tag())
			}
		}

		failures = append(failures, errs.FieldFailure{
			InstancePath: prefix + instancePath(err.Namespace()),
			Message:      msg,
			Keyword:      err.Tag(),
		})
	}

	return failures
}
