package openapi2mcp

import (
	"fmt"

	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// argument binds an input schema property to the parameter it feeds.
type argument struct {
	key   string
	param models.Parameter
}

// BuildInputSchema converts the parameters and request body of op into a
// single JSON Schema object. Path parameters are always required; the body
// is exposed as the "body" property.
func BuildInputSchema(op models.Operation) (map[string]any, error) {
	schema, _, err := buildInputSchema(op)
	return schema, err
}

// argumentKeys returns the input schema property of each parameter, in
// parameter order. Path parameters claim their escaped names first. A name
// already taken by another location or by the body gets the location as a
// prefix ("query_id"), then a numeric suffix if that is taken too.
func argumentKeys(op models.Operation) []string {
	keys := make([]string, len(op.Parameters))
	taken := map[string]bool{}
	if op.RequestBody != nil {
		taken[BodyField] = true
	}
	claim := func(i int) {
		p := op.Parameters[i]
		key := escapeParameterName(p.Name)
		if taken[key] {
			base := string(p.In) + "_" + key
			key = base
			for n := 2; taken[key]; n++ {
				key = fmt.Sprintf("%s_%d", base, n)
			}
		}
		taken[key] = true
		keys[i] = key
	}
	for i, p := range op.Parameters {
		if p.In == models.InPath {
			claim(i)
		}
	}
	for i, p := range op.Parameters {
		if p.In != models.InPath {
			claim(i)
		}
	}
	return keys
}

func buildInputSchema(op models.Operation) (map[string]any, []argument, error) {
	properties := map[string]any{}
	required := []string{}
	keys := argumentKeys(op)
	args := make([]argument, 0, len(op.Parameters))

	for i, p := range op.Parameters {
		key := keys[i]
		prop := copySchema(p.Schema)
		if _, ok := prop["type"]; !ok {
			prop["type"] = string(p.Type)
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[key] = prop
		if p.Required || p.In == models.InPath {
			required = append(required, key)
		}
		args = append(args, argument{key: key, param: p})
	}

	if rb := op.RequestBody; rb != nil {
		prop := copySchema(rb.Schema)
		if len(prop) == 0 {
			prop["type"] = "object"
		}
		if rb.Description != "" {
			prop["description"] = rb.Description
		} else if _, ok := prop["description"]; !ok {
			prop["description"] = "The JSON request body."
		}
		properties[BodyField] = prop
		if rb.Required {
			required = append(required, BodyField)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema, args, nil
}

// copySchema shallow-copies the top level so per-tool edits never touch
// the parsed operation.
func copySchema(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
