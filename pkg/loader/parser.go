// Package loader fetches OpenAPI 3 and Swagger 2 documents and normalizes
// them into the operation model used by the tool generator.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// Spec is a parsed API description.
type Spec struct {
	Source      string
	Dialect     string // "openapi3" or "swagger2"
	Title       string
	Version     string
	Description string

	// DefaultBaseURL is derived from servers (OpenAPI 3) or schemes+host
	// (Swagger 2). Empty when the document does not say.
	DefaultBaseURL string
	// BasePath is the Swagger 2 basePath, prepended to every operation path.
	BasePath string

	Operations []models.Operation
}

// pathItemKeys are path item fields that are not operations.
var pathItemKeys = map[string]bool{
	"parameters":  true,
	"summary":     true,
	"description": true,
	"servers":     true,
	"$ref":        true,
}

// Parse loads source (file path, http(s) URL or "store:<name>") and
// converts it into a Spec.
func Parse(ctx context.Context, source string, opts ...Option) (*Spec, error) {
	o := buildOptions(opts)
	data, location, err := fetch(ctx, source, o)
	if err != nil {
		return nil, err
	}
	spec, err := parse(data, location, o)
	if err != nil {
		if apperrors.GetType(err) == apperrors.ErrorTypeLoad {
			if e, ok := err.(*apperrors.Error); ok && e.Details == "" {
				e.Details = source
			}
		}
		return nil, err
	}
	spec.Source = source
	o.Logger.Info().
		Str("source", source).
		Str("title", spec.Title).
		Int("operations", len(spec.Operations)).
		Msg("specification loaded")
	return spec, nil
}

// ParseData converts an in-memory document into a Spec.
func ParseData(data []byte, opts ...Option) (*Spec, error) {
	return parse(data, nil, buildOptions(opts))
}

func parse(data []byte, location *url.URL, o *Options) (*Spec, error) {
	raw, err := decodeDocument(data)
	if err != nil {
		return nil, apperrors.Load("", err)
	}

	spec := &Spec{}
	switch {
	case stringField(raw.root, "swagger") != "":
		spec.Dialect = "swagger2"
	case stringField(raw.root, "openapi") != "":
		spec.Dialect = "openapi3"
	default:
		return nil, apperrors.Load("", fmt.Errorf("document has neither an \"openapi\" nor a \"swagger\" version field"))
	}

	if err := checkRefs(raw.root); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(raw.root)
	if err != nil {
		return nil, apperrors.Load("", err)
	}

	var doc *openapi3.T
	if spec.Dialect == "swagger2" {
		var doc2 openapi2.T
		if err := json.Unmarshal(encoded, &doc2); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeSchema, "invalid Swagger 2.0 document")
		}
		doc, err = openapi2conv.ToV3(&doc2)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeSchema, "cannot convert Swagger 2.0 document")
		}
		spec.DefaultBaseURL = swaggerBaseURL(raw.root)
		spec.BasePath = strings.TrimRight(stringField(raw.root, "basePath"), "/")
	} else {
		loader := openapi3.NewLoader()
		loader.IsExternalRefsAllowed = false
		doc, err = loader.LoadFromData(encoded)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeSchema, "invalid OpenAPI document")
		}
		spec.DefaultBaseURL = serverBaseURL(doc.Servers, location)
	}

	if doc.Info != nil {
		spec.Title = doc.Info.Title
		spec.Version = doc.Info.Version
		spec.Description = doc.Info.Description
	}

	p := &operationParser{logger: o.Logger}
	spec.Operations = p.operations(doc, raw.order)
	return spec, nil
}

func swaggerBaseURL(root map[string]any) string {
	host := stringField(root, "host")
	if host == "" {
		return ""
	}
	scheme := "http"
	if schemes, ok := root["schemes"].([]any); ok && len(schemes) > 0 {
		if s, ok := schemes[0].(string); ok && s != "" {
			scheme = s
		}
	}
	return scheme + "://" + host
}

func serverBaseURL(servers openapi3.Servers, location *url.URL) string {
	if len(servers) == 0 || servers[0] == nil {
		return ""
	}
	server := servers[0]
	u := server.URL
	for name, v := range server.Variables {
		if v != nil {
			u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
		}
	}
	u = strings.TrimRight(u, "/")

	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	if parsed.IsAbs() {
		return u
	}
	if location != nil {
		return strings.TrimRight(location.ResolveReference(parsed).String(), "/")
	}
	return u
}

type operationParser struct {
	logger *logging.Logger
}

func (p *operationParser) operations(doc *openapi3.T, order docOrder) []models.Operation {
	if doc.Paths == nil {
		return nil
	}

	paths := order.paths
	seen := map[string]bool{}
	for _, path := range paths {
		seen[path] = true
	}
	// paths reachable only through kin-openapi (e.g. produced by conversion)
	var extra []string
	for path := range doc.Paths.Map() {
		if !seen[path] {
			extra = append(extra, path)
		}
	}
	sort.Strings(extra)
	paths = append(append([]string{}, paths...), extra...)

	var ops []models.Operation
	for _, path := range paths {
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		for _, method := range p.methodOrder(path, item, order.methods[path]) {
			op := item.GetOperation(string(method))
			if op == nil {
				continue
			}
			ops = append(ops, p.operation(method, path, item, op))
		}
	}
	return ops
}

// methodOrder returns the supported methods of item in document order,
// warning about keys that name unsupported methods.
func (p *operationParser) methodOrder(path string, item *openapi3.PathItem, keys []string) []models.Method {
	var out []models.Method
	listed := map[models.Method]bool{}
	for _, key := range keys {
		if pathItemKeys[key] || strings.HasPrefix(key, "x-") {
			continue
		}
		m, ok := models.ParseMethod(key)
		if !ok {
			p.logger.Warn().Str("path", path).Str("method", key).Msg("skipping unsupported method")
			continue
		}
		if !listed[m] {
			listed[m] = true
			out = append(out, m)
		}
	}
	for _, m := range models.Methods {
		if !listed[m] && item.GetOperation(string(m)) != nil {
			out = append(out, m)
		}
	}
	return out
}

func (p *operationParser) operation(method models.Method, path string, item *openapi3.PathItem, op *openapi3.Operation) models.Operation {
	schemas := newSchemaConverter(func(msg string) {
		p.logger.Debug().Str("operation", string(method)+" "+path).Msg(msg)
	})

	out := models.Operation{
		Method:      method,
		Path:        path,
		OperationID: op.OperationID,
		Tags:        append([]string{}, op.Tags...),
		Summary:     op.Summary,
		Description: op.Description,
		Deprecated:  op.Deprecated,
	}

	for _, param := range mergeParameters(item.Parameters, op.Parameters) {
		if mp, ok := p.parameter(out.Key(), param, schemas); ok {
			out.Parameters = append(out.Parameters, mp)
		}
	}
	for _, name := range undeclaredPathParameters(path, out.Parameters) {
		p.logger.Warn().Str("operation", out.Key()).Str("parameter", name).
			Msg("path placeholder has no parameter declaration, assuming string")
		out.Parameters = append(out.Parameters, models.Parameter{
			Name:     name,
			In:       models.InPath,
			Required: true,
			Type:     models.TypeString,
			Schema:   map[string]any{"type": "string"},
		})
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if method.SupportsBody() {
			out.RequestBody = p.requestBody(out.Key(), op.RequestBody.Value, schemas)
		} else {
			p.logger.Warn().Str("operation", out.Key()).Msg("ignoring request body on a method without a body")
		}
	}

	out.ReturnsDescription = returnsDescription(op.Responses)
	return out
}

// undeclaredPathParameters lists the {name} placeholders of path that have
// no matching path parameter, in order of appearance.
func undeclaredPathParameters(path string, params []models.Parameter) []string {
	declared := map[string]bool{}
	for _, param := range params {
		if param.In == models.InPath {
			declared[param.Name] = true
		}
	}
	var missing []string
	for rest := path; ; {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			break
		}
		name := rest[start+1 : start+end]
		rest = rest[start+end+1:]
		if name == "" || declared[name] {
			continue
		}
		declared[name] = true
		missing = append(missing, name)
	}
	return missing
}

// mergeParameters returns operation-level parameters followed by path-level
// ones not overridden by an operation parameter with the same name and location.
func mergeParameters(pathLevel, opLevel openapi3.Parameters) []*openapi3.Parameter {
	type key struct{ name, in string }
	var out []*openapi3.Parameter
	overridden := map[key]bool{}
	for _, ref := range opLevel {
		if ref == nil || ref.Value == nil {
			continue
		}
		overridden[key{ref.Value.Name, ref.Value.In}] = true
		out = append(out, ref.Value)
	}
	for _, ref := range pathLevel {
		if ref == nil || ref.Value == nil {
			continue
		}
		if overridden[key{ref.Value.Name, ref.Value.In}] {
			continue
		}
		out = append(out, ref.Value)
	}
	return out
}

func (p *operationParser) parameter(opKey string, param *openapi3.Parameter, schemas *schemaConverter) (models.Parameter, bool) {
	var loc models.Location
	switch param.In {
	case openapi3.ParameterInPath:
		loc = models.InPath
	case openapi3.ParameterInQuery:
		loc = models.InQuery
	case openapi3.ParameterInHeader:
		loc = models.InHeader
	default:
		p.logger.Warn().Str("operation", opKey).Str("parameter", param.Name).Str("in", param.In).
			Msg("skipping parameter with unsupported location")
		return models.Parameter{}, false
	}

	schemaRef := param.Schema
	if schemaRef == nil {
		for _, mt := range param.Content {
			if mt != nil && mt.Schema != nil {
				schemaRef = mt.Schema
				break
			}
		}
	}
	schema := schemas.convert(schemaRef)

	out := models.Parameter{
		Name:        param.Name,
		In:          loc,
		Required:    param.Required || loc == models.InPath,
		Type:        schemaType(schema),
		Description: param.Description,
		Deprecated:  param.Deprecated,
		Schema:      schema,
	}
	if out.Type == models.TypeArray {
		if items, ok := schema["items"].(map[string]any); ok {
			out.Items = schemaType(items)
		} else {
			out.Items = models.TypeString
		}
	}
	return out, true
}

func (p *operationParser) requestBody(opKey string, body *openapi3.RequestBody, schemas *schemaConverter) *models.RequestBody {
	contentType, mt := jsonMediaType(body.Content)
	if mt == nil {
		for name := range body.Content {
			p.logger.Warn().Str("operation", opKey).Str("content_type", name).
				Msg("request body media type is not supported, body will not be exposed")
			break
		}
		return nil
	}
	return &models.RequestBody{
		Required:    body.Required,
		Description: body.Description,
		ContentType: contentType,
		Schema:      schemas.convert(mt.Schema),
	}
}

// jsonMediaType prefers application/json, then any other JSON media type.
func jsonMediaType(content openapi3.Content) (string, *openapi3.MediaType) {
	if mt := content.Get("application/json"); mt != nil {
		return "application/json", mt
	}
	names := make([]string, 0, len(content))
	for name := range content {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		base := strings.TrimSpace(strings.SplitN(name, ";", 2)[0])
		if strings.HasSuffix(base, "+json") || base == "*/*" || base == "application/*" {
			return base, content[name]
		}
	}
	return "", nil
}

func returnsDescription(responses *openapi3.Responses) string {
	if responses == nil {
		return ""
	}
	for _, status := range []int{200, 201} {
		if ref := responses.Status(status); ref != nil && ref.Value != nil && ref.Value.Description != nil {
			return *ref.Value.Description
		}
	}
	return ""
}

func schemaType(schema map[string]any) models.ParamType {
	switch t := schema["type"].(type) {
	case string:
		return models.ParseParamType(t)
	case []string:
		for _, s := range t {
			if s != "null" {
				return models.ParseParamType(s)
			}
		}
	}
	if _, ok := schema["properties"]; ok {
		return models.TypeObject
	}
	return models.TypeString
}
