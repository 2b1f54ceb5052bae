// Package docs generates an OpenAPI 3.1 document from the registered routes.
//
// Schema prototypes are reflected into JSON Schema with invopop/jsonschema;
// their `validate` tags are translated into the matching keywords
// (required, format, length and range bounds, enum) so the document
// describes what the validator actually enforces.
package docs

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/deppfellow/servicekit/internal/handler"
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/invopop/jsonschema"
)

// OpenAPIVersion is the version string written into every document.
const OpenAPIVersion = "3.1.0"

// Info describes the API as a whole.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Document is the subset of OpenAPI 3.1 this service produces.
type Document struct {
	OpenAPI string              `json:"openapi"`
	Info    Info                `json:"info"`
	Paths   map[string]PathItem `json:"paths"`
}

// PathItem maps a lower-case method to its operation.
type PathItem map[string]*Operation

type Operation struct {
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Deprecated  bool                `json:"deprecated,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

type Parameter struct {
	Name     string             `json:"name"`
	In       string             `json:"in"`
	Required bool               `json:"required,omitempty"`
	Schema   *jsonschema.Schema `json:"schema,omitempty"`
}

type RequestBody struct {
	Required bool                 `json:"required,omitempty"`
	Content  map[string]MediaType `json:"content"`
}

type MediaType struct {
	Schema *jsonschema.Schema `json:"schema,omitempty"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// parameterLocations maps request sections to OpenAPI "in" values and the
// struct tag naming their fields.
var parameterLocations = []struct {
	section schema.Section
	in      string
	tag     string
}{
	{schema.SectionParams, "path", "param"},
	{schema.SectionQuery, "query", "query"},
	{schema.SectionHeaders, "header", "header"},
}

var pathParam = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

// Build reflects every non-hidden route into a document. Prototypes that
// cannot be reflected make Build fail; the caller decides whether that is
// fatal.
func Build(info Info, routes []handler.Route) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("reflecting route schemas: %v", r)
		}
	}()

	doc = &Document{
		OpenAPI: OpenAPIVersion,
		Info:    info,
		Paths:   map[string]PathItem{},
	}

	for _, route := range routes {
		if route.Config.Hidden {
			continue
		}

		path := OpenAPIPath(route.Path)
		item, ok := doc.Paths[path]
		if !ok {
			item = PathItem{}
			doc.Paths[path] = item
		}

		method := strings.ToLower(route.Method)
		if _, dup := item[method]; dup {
			return nil, fmt.Errorf("duplicate operation %s %s", route.Method, route.Path)
		}
		item[method] = operation(route)
	}

	return doc, nil
}

// OpenAPIPath turns "/users/:id" into "/users/{id}".
func OpenAPIPath(path string) string {
	return pathParam.ReplaceAllString(path, "{$1}")
}

func operation(route handler.Route) *Operation {
	op := &Operation{
		Summary:     route.Config.Summary,
		Description: route.Config.Description,
		OperationID: route.Config.OperationID,
		Tags:        route.Config.Tags,
		Deprecated:  route.Config.Deprecated,
		Responses:   map[string]Response{},
	}

	s := route.Schema

	for _, loc := range parameterLocations {
		proto := s.Section(loc.section)
		if proto == nil {
			continue
		}
		op.Parameters = append(op.Parameters, parameters(proto, loc.in, loc.tag)...)
	}

	if proto := s.Section(schema.SectionBody); proto != nil {
		body := reflectSchema(proto, "json")
		op.RequestBody = &RequestBody{
			Required: len(body.Required) > 0,
			Content:  jsonContent(body),
		}
	}

	statuses := make([]int, 0)
	if s != nil {
		for status := range s.Response {
			statuses = append(statuses, status)
		}
	}
	sort.Ints(statuses)

	for _, status := range statuses {
		resp := Response{Description: http.StatusText(status)}
		if proto := s.Response[status]; proto != nil {
			resp.Content = jsonContent(reflectSchema(proto, "json"))
		}
		op.Responses[strconv.Itoa(status)] = resp
	}

	if len(op.Responses) == 0 {
		op.Responses["default"] = Response{Description: "Default response"}
	}

	return op
}

// parameters flattens a params/query/headers prototype into one parameter
// per property. Path parameters are always required.
func parameters(proto any, in, tag string) []Parameter {
	reflected := reflectSchema(proto, tag)
	if reflected.Properties == nil {
		return nil
	}

	required := map[string]bool{}
	for _, name := range reflected.Required {
		required[name] = true
	}

	var params []Parameter
	for pair := reflected.Properties.Oldest(); pair != nil; pair = pair.Next() {
		params = append(params, Parameter{
			Name:     pair.Key,
			In:       in,
			Required: in == "path" || required[pair.Key],
			Schema:   pair.Value,
		})
	}
	return params
}

func jsonContent(s *jsonschema.Schema) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: s}}
}

// reflectSchema produces an inline JSON Schema for proto, naming fields by tag.
func reflectSchema(proto any, tag string) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		FieldNameTag:               tag,
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}

	s := r.Reflect(proto)
	s.Version = ""
	s.ID = ""
	applyValidateTags(schema.BaseType(proto), s, tag)
	return s
}
