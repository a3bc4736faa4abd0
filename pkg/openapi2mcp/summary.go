package openapi2mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrintToolSummary writes one line per tool followed by the tag breakdown.
//
// Output example:
//
//	GET    /pets        -> listPets
//	POST   /pets        -> createPet
//	Total tools: 2
//	Tags:
//	  pets: 2
func PrintToolSummary(w io.Writer, tools []*Tool) {
	tagCount := map[string]int{}
	for _, t := range tools {
		op := t.Operation
		summary := firstLine(op.Summary)
		if summary == "" {
			summary = firstLine(op.Description)
		}
		line := fmt.Sprintf("%-7s %s -> %s", op.Method, op.Path, t.Name)
		if summary != "" {
			line += "  (" + summary + ")"
		}
		fmt.Fprintln(w, line)
		for _, tag := range op.Tags {
			tagCount[tag]++
		}
	}
	fmt.Fprintf(w, "Total tools: %d\n", len(tools))
	if len(tagCount) > 0 {
		tags := make([]string, 0, len(tagCount))
		for tag := range tagCount {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		fmt.Fprintln(w, "Tags:")
		for _, tag := range tags {
			fmt.Fprintf(w, "  %s: %d\n", tag, tagCount[tag])
		}
	}
}

// ToolInfo is the JSON form of a tool used by dry runs.
type ToolInfo struct {
	Name        string         `json:"name"`
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	OperationID string         `json:"operation_id,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// WriteToolsJSON writes the tools as an indented JSON array.
func WriteToolsJSON(w io.Writer, tools []*Tool) error {
	infos := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, ToolInfo{
			Name:        t.Name,
			Method:      string(t.Operation.Method),
			Path:        t.Operation.Path,
			OperationID: t.Operation.OperationID,
			Tags:        t.Operation.Tags,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(infos)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
