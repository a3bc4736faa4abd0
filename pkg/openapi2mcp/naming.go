package openapi2mcp

import (
	"strings"

	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// ToolName returns the tool name for op: its operation id when present,
// otherwise "{method}_{segments}" with placeholders reduced to their bare
// names and dashes turned into underscores ("GET /documents/{doc_id}"
// becomes "get_documents_doc_id").
func ToolName(op models.Operation, prefix string) string {
	name := op.OperationID
	if name == "" {
		name = synthesizeName(op.Method, op.Path)
	}
	return prefix + sanitizeName(name)
}

func synthesizeName(method models.Method, path string) string {
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		seg = strings.TrimSuffix(strings.TrimPrefix(seg, "{"), "}")
		seg = strings.Trim(sanitizeName(strings.ReplaceAll(seg, "-", "_")), "_")
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return method.Lower() + "_root"
	}
	return method.Lower() + "_" + strings.Join(parts, "_")
}

// sanitizeName maps characters outside [A-Za-z0-9_-] to '_' and collapses
// runs of underscores.
func sanitizeName(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		ok := r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeParameterName converts parameter names with brackets to MCP-compatible names.
// For example: "filter[created_at]" becomes "filter_created_at_"
// The trailing underscore distinguishes escaped names from naturally occurring names.
func escapeParameterName(name string) string {
	if !strings.ContainsAny(name, "[]") {
		return name
	}
	escaped := strings.NewReplacer("[", "_", "]", "_").Replace(name)
	if !strings.HasSuffix(escaped, "_") {
		escaped += "_"
	}
	return escaped
}
