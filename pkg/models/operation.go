package models

import (
	"strings"
)

// Method is an HTTP method supported as a tool operation.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// Methods lists the supported methods in canonical order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions}

// ParseMethod normalizes s (any case, surrounding spaces) to a Method.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// SupportsBody reports whether requests with this method may carry a payload.
func (m Method) SupportsBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// ReadOnly reports whether the method is safe by HTTP semantics.
func (m Method) ReadOnly() bool {
	return m == MethodGet || m == MethodHead || m == MethodOptions
}

func (m Method) Lower() string { return strings.ToLower(string(m)) }

// Location is where a parameter travels in the request.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
)

// ParamType is the semantic type of a parameter or value.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// ParseParamType maps a JSON schema type name to a ParamType, defaulting to string.
func ParseParamType(s string) ParamType {
	switch ParamType(s) {
	case TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return ParamType(s)
	}
	return TypeString
}

// Parameter is one path, query or header input of an operation.
type Parameter struct {
	Name        string
	In          Location
	Required    bool
	Type        ParamType
	Items       ParamType // element type when Type is array
	Description string
	Deprecated  bool
	Schema      map[string]any // JSON schema fragment for the input schema
}

// RequestBody describes the JSON payload accepted by an operation.
type RequestBody struct {
	Required    bool
	Description string
	ContentType string
	Schema      map[string]any
}

// Operation is one method+path pair of the API. It is immutable once parsed.
type Operation struct {
	Method             Method
	Path               string
	OperationID        string
	Tags               []string
	Summary            string
	Description        string
	Deprecated         bool
	Parameters         []Parameter
	RequestBody        *RequestBody
	ReturnsDescription string
}

// Key identifies the operation as "METHOD /path".
func (o Operation) Key() string {
	return string(o.Method) + " " + o.Path
}

// ParametersIn returns the parameters at loc in declaration order.
func (o Operation) ParametersIn(loc Location) []Parameter {
	var out []Parameter
	for _, p := range o.Parameters {
		if p.In == loc {
			out = append(out, p)
		}
	}
	return out
}

// HasTag reports whether the operation carries any of tags.
func (o Operation) HasTag(tags map[string]struct{}) bool {
	for _, t := range o.Tags {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}
