// Package schema describes what a route accepts and returns.
//
// A Schema holds prototype values, not JSON documents: each declared section
// is a struct (or pointer to struct) whose `json`, `param`, `query` and
// `header` tags drive binding and whose `validate` tags drive validation.
// The same prototypes feed the OpenAPI document.
package schema

import (
	"net/http"
	"reflect"
)

// Section names one part of an inbound request.
type Section int

const (
	SectionBody Section = iota
	SectionParams
	SectionQuery
	SectionHeaders
)

// Sections lists every request section in binding order.
var Sections = []Section{SectionBody, SectionParams, SectionQuery, SectionHeaders}

func (s Section) String() string {
	switch s {
	case SectionBody:
		return "body"
	case SectionParams:
		return "params"
	case SectionQuery:
		return "query"
	case SectionHeaders:
		return "headers"
	default:
		return "unknown"
	}
}

// Schema is the declared contract of a route. A nil section is "not declared".
type Schema struct {
	Body    any
	Params  any
	Query   any
	Headers any

	// Response maps a status code to the prototype a reply body must satisfy.
	// Prototypes may be structs, pointers to structs, or slices of those.
	Response map[int]any
}

// Section returns the prototype declared for sec, or nil.
func (s *Schema) Section(sec Section) any {
	if s == nil {
		return nil
	}
	switch sec {
	case SectionBody:
		return s.Body
	case SectionParams:
		return s.Params
	case SectionQuery:
		return s.Query
	case SectionHeaders:
		return s.Headers
	default:
		return nil
	}
}

// Declares reports whether sec has a prototype.
func (s *Schema) Declares(sec Section) bool {
	return s.Section(sec) != nil
}

// ResponseFor returns the response prototype declared for status.
func (s *Schema) ResponseFor(status int) (any, bool) {
	if s == nil || s.Response == nil {
		return nil, false
	}
	proto, ok := s.Response[status]
	return proto, ok && proto != nil
}

// ErrorResponse is the default shape documented for 400 and 500 replies.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details []any  `json:"details"`
}

// defaultResponses are added by Normalize when the caller did not declare them.
var defaultResponses = []int{http.StatusBadRequest, http.StatusInternalServerError}

// Normalize returns a copy of s that documents default 400 and 500 error
// shapes. Entries the caller declared are kept. s is never modified, and a
// nil s yields a schema that only carries the defaults.
func Normalize(s *Schema) *Schema {
	out := &Schema{}
	if s != nil {
		*out = *s
	}

	response := make(map[int]any, len(out.Response)+len(defaultResponses))
	for status, proto := range out.Response {
		response[status] = proto
	}
	for _, status := range defaultResponses {
		if _, ok := response[status]; !ok {
			response[status] = ErrorResponse{}
		}
	}
	out.Response = response

	return out
}

// BaseType returns the type behind proto with pointers removed, or nil.
func BaseType(proto any) reflect.Type {
	if proto == nil {
		return nil
	}
	t := reflect.TypeOf(proto)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// New allocates a fresh zero value of proto's base type and returns a pointer
// to it, ready for binding.
func New(proto any) any {
	t := BaseType(proto)
	if t == nil {
		return nil
	}
	return reflect.New(t).Interface()
}
