package docs

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// formats maps validator tags to JSON Schema formats.
var formats = map[string]string{
	"email":    "email",
	"uuid":     "uuid",
	"uuid4":    "uuid",
	"url":      "uri",
	"uri":      "uri",
	"datetime": "date-time",
	"ipv4":     "ipv4",
	"ipv6":     "ipv6",
}

// applyValidateTags copies the rules in t's `validate` tags onto s, the
// schema reflected from t. Nested structs and slices of structs are walked.
func applyValidateTags(t reflect.Type, s *jsonschema.Schema, nameTag string) {
	for t != nil && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		if t.Kind() != reflect.Pointer && s != nil {
			s = s.Items
		}
		t = t.Elem()
	}
	if t == nil || s == nil || t.Kind() != reflect.Struct || s.Properties == nil {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		if f.Anonymous && f.Tag.Get(nameTag) == "" {
			applyValidateTags(f.Type, s, nameTag)
			continue
		}
		if !f.IsExported() {
			continue
		}

		name := fieldName(f, nameTag)
		if name == "" {
			continue
		}
		prop, ok := s.Properties.Get(name)
		if !ok || prop == nil {
			continue
		}

		for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
			key, param, _ := strings.Cut(rule, "=")
			if key == "dive" {
				break
			}
			if key == "required" {
				s.Required = appendUnique(s.Required, name)
				continue
			}
			applyRule(prop, key, param)
		}

		applyValidateTags(f.Type, prop, nameTag)
	}
}

func applyRule(prop *jsonschema.Schema, key, param string) {
	if format, ok := formats[key]; ok {
		prop.Format = format
		return
	}

	switch key {
	case "min", "gte":
		setBound(prop, param, true)
	case "max", "lte":
		setBound(prop, param, false)
	case "len":
		setBound(prop, param, true)
		setBound(prop, param, false)
	case "oneof":
		for _, v := range strings.Fields(param) {
			prop.Enum = append(prop.Enum, enumValue(prop.Type, v))
		}
	}
}

// setBound sets a length, item-count or numeric bound depending on the
// property type.
func setBound(prop *jsonschema.Schema, param string, lower bool) {
	switch prop.Type {
	case "string", "array":
		n, err := strconv.ParseUint(param, 10, 64)
		if err != nil {
			return
		}
		switch {
		case prop.Type == "string" && lower:
			prop.MinLength = &n
		case prop.Type == "string":
			prop.MaxLength = &n
		case lower:
			prop.MinItems = &n
		default:
			prop.MaxItems = &n
		}
	case "integer", "number":
		if _, err := strconv.ParseFloat(param, 64); err != nil {
			return
		}
		if lower {
			prop.Minimum = json.Number(param)
		} else {
			prop.Maximum = json.Number(param)
		}
	}
}

func enumValue(typ, v string) any {
	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "number":
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return v
}

func fieldName(f reflect.StructField, nameTag string) string {
	name, _, _ := strings.Cut(f.Tag.Get(nameTag), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
