package openapi2mcp

import (
	"fmt"
	"strings"

	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// Describe builds the tool description: summary and description (or a
// generic line), a parameter reference block and the success response.
func Describe(op models.Operation) string {
	var b strings.Builder
	if op.Deprecated {
		b.WriteString("DEPRECATED: ")
	}
	switch {
	case op.Summary != "" && op.Description != "":
		b.WriteString(op.Summary + "\n\n" + op.Description)
	case op.Summary != "":
		b.WriteString(op.Summary)
	case op.Description != "":
		b.WriteString(op.Description)
	default:
		fmt.Fprintf(&b, "Execute %s request to %s", op.Method, op.Path)
	}

	if len(op.Parameters) > 0 || op.RequestBody != nil {
		b.WriteString("\n\nParameters:")
		keys := argumentKeys(op)
		for i, p := range op.Parameters {
			typ := string(p.Type)
			if p.Type == models.TypeArray && p.Items != "" {
				typ = "array of " + string(p.Items)
			}
			fmt.Fprintf(&b, "\n- %s: %s [%s in %s] %s", keys[i], p.Description, typ, p.In, requiredLabel(p.Required))
		}
		if rb := op.RequestBody; rb != nil {
			fmt.Fprintf(&b, "\n- %s: %s [%s request body] %s", BodyField, rb.Description, rb.ContentType, requiredLabel(rb.Required))
		}
	}

	if op.ReturnsDescription != "" {
		b.WriteString("\n\nReturns: " + op.ReturnsDescription)
	}
	return b.String()
}

func requiredLabel(required bool) string {
	if required {
		return "(required)"
	}
	return "(optional)"
}
