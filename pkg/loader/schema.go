package loader

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// schemaConverter turns resolved kin-openapi schemas into plain JSON schema
// maps. Recursive schemas are cut at the first repeat on the current branch.
type schemaConverter struct {
	visiting map[*openapi3.Schema]bool
	warn     func(msg string)
}

func newSchemaConverter(warn func(string)) *schemaConverter {
	return &schemaConverter{visiting: map[*openapi3.Schema]bool{}, warn: warn}
}

func (c *schemaConverter) convert(ref *openapi3.SchemaRef) map[string]any {
	if ref == nil || ref.Value == nil {
		return map[string]any{}
	}
	val := ref.Value
	if c.visiting[val] {
		name := refName(ref.Ref)
		if name == "" {
			name = "schema"
		}
		return map[string]any{
			"type":        "object",
			"description": fmt.Sprintf("Recursive reference to %s", name),
		}
	}
	c.visiting[val] = true
	defer delete(c.visiting, val)

	prop := map[string]any{}

	// allOf: merge all subschemas, unioning properties and required fields
	for _, sub := range val.AllOf {
		mergeInto(prop, c.convert(sub))
	}

	if len(val.OneOf) > 0 {
		mergeInto(prop, c.union(val.OneOf, "oneOf"))
	}
	if len(val.AnyOf) > 0 {
		mergeInto(prop, c.union(val.AnyOf, "anyOf"))
	}

	if val.Type != nil {
		types := val.Type.Slice()
		if val.Nullable && len(types) > 0 {
			types = append(append([]string{}, types...), "null")
		}
		switch len(types) {
		case 0:
		case 1:
			prop["type"] = types[0]
		default:
			prop["type"] = types
		}
	}
	if val.Format != "" {
		prop["format"] = val.Format
	}
	if val.Description != "" {
		prop["description"] = val.Description
	}
	if len(val.Enum) > 0 {
		prop["enum"] = val.Enum
	}
	if val.Default != nil {
		prop["default"] = val.Default
	}
	if val.Example != nil {
		prop["example"] = val.Example
	}
	if val.Min != nil {
		prop["minimum"] = *val.Min
	}
	if val.Max != nil {
		prop["maximum"] = *val.Max
	}
	if val.MinLength > 0 {
		prop["minLength"] = val.MinLength
	}
	if val.MaxLength != nil {
		prop["maxLength"] = *val.MaxLength
	}
	if val.Pattern != "" {
		prop["pattern"] = val.Pattern
	}
	if val.MinItems > 0 {
		prop["minItems"] = val.MinItems
	}
	if val.MaxItems != nil {
		prop["maxItems"] = *val.MaxItems
	}

	if len(val.Properties) > 0 {
		props, _ := prop["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
		for name, sub := range val.Properties {
			props[name] = c.convert(sub)
		}
		prop["properties"] = props
		if _, ok := prop["type"]; !ok {
			prop["type"] = "object"
		}
	}
	if len(val.Required) > 0 {
		prop["required"] = unionStrings(prop["required"], val.Required)
	}

	if val.Items != nil {
		prop["items"] = c.convert(val.Items)
	}

	if ap := val.AdditionalProperties; ap.Schema != nil {
		prop["additionalProperties"] = c.convert(ap.Schema)
	} else if ap.Has != nil {
		prop["additionalProperties"] = *ap.Has
	}

	return prop
}

// union handles oneOf/anyOf. Object variants are merged into a single object
// schema whose required fields are those required by every variant; mixed
// variants are kept as anyOf.
func (c *schemaConverter) union(variants openapi3.SchemaRefs, keyword string) map[string]any {
	converted := make([]map[string]any, 0, len(variants))
	allObjects := true
	for _, v := range variants {
		s := c.convert(v)
		converted = append(converted, s)
		if t, _ := s["type"].(string); t != "object" {
			allObjects = false
		}
	}

	if !allObjects {
		if c.warn != nil && keyword == "oneOf" {
			c.warn("oneOf with non-object variants is exposed as anyOf")
		}
		list := make([]any, len(converted))
		for i, s := range converted {
			list[i] = s
		}
		return map[string]any{"anyOf": list}
	}

	merged := map[string]any{"type": "object"}
	props := map[string]any{}
	requiredCount := map[string]int{}
	for _, s := range converted {
		if p, ok := s["properties"].(map[string]any); ok {
			for name, sub := range p {
				props[name] = sub
			}
		}
		for _, r := range toStrings(s["required"]) {
			requiredCount[r]++
		}
	}
	if len(props) > 0 {
		merged["properties"] = props
	}
	var required []string
	for _, s := range converted {
		for _, r := range toStrings(s["required"]) {
			if requiredCount[r] == len(converted) && !contains(required, r) {
				required = append(required, r)
			}
		}
	}
	if len(required) > 0 {
		merged["required"] = required
	}
	merged["description"] = fmt.Sprintf("Accepts any of %d possible schema variants (%s)", len(converted), keyword)
	return merged
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		switch k {
		case "properties":
			props, _ := dst["properties"].(map[string]any)
			if props == nil {
				props = map[string]any{}
			}
			if sp, ok := v.(map[string]any); ok {
				for name, sub := range sp {
					props[name] = sub
				}
			}
			dst["properties"] = props
		case "required":
			dst["required"] = unionStrings(dst["required"], toStrings(v))
		default:
			dst[k] = v
		}
	}
}

func unionStrings(existing any, add []string) []string {
	out := toStrings(existing)
	for _, s := range add {
		if !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func toStrings(v any) []string {
	switch s := v.(type) {
	case []string:
		return append([]string{}, s...)
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
