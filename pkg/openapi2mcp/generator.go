package openapi2mcp

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/yosida95/uritemplate/v3"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/client"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// Tool is one generated tool. It is immutable and safe for concurrent Invoke calls.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Operation   models.Operation

	api      client.Doer
	args     []argument
	template *uritemplate.Template
	body     *gojsonschema.Schema
	exclude  [][]string
	logger   *logging.Logger
}

// Generator builds tools bound to one API client.
type Generator struct {
	api    client.Doer
	opts   ToolGenOptions
	logger *logging.Logger
}

// NewGenerator returns a Generator. opts may be nil.
func NewGenerator(api client.Doer, opts *ToolGenOptions) *Generator {
	g := &Generator{api: api, logger: opts.logger().WithComponent("generator")}
	if opts != nil {
		g.opts = *opts
	}
	return g
}

// Generate builds one tool per operation, in order. A duplicate tool name is
// a GenerationError naming both operations; nothing is returned in that case.
func (g *Generator) Generate(ops []models.Operation) ([]*Tool, error) {
	exclude := splitAttributePaths(g.opts.ExcludeAttributes)
	owners := make(map[string]string, len(ops))
	tools := make([]*Tool, 0, len(ops))

	for _, op := range ops {
		name := ToolName(op, g.opts.NamePrefix)
		if prev, ok := owners[name]; ok {
			return nil, apperrors.Generation(
				fmt.Sprintf("duplicate tool name %q", name),
				fmt.Sprintf("%s and %s", prev, op.Key()))
		}
		owners[name] = op.Key()

		tool, err := g.tool(name, op)
		if err != nil {
			return nil, err
		}
		tool.exclude = exclude
		tools = append(tools, tool)
	}

	g.logger.Info().Int("tools", len(tools)).Msg("tools generated")
	return tools, nil
}

func (g *Generator) tool(name string, op models.Operation) (*Tool, error) {
	schema, args, err := buildInputSchema(op)
	if err != nil {
		return nil, err
	}
	t := &Tool{
		Name:        name,
		Description: Describe(op),
		InputSchema: schema,
		Operation:   op,
		api:         g.api,
		args:        args,
		logger:      g.logger.WithComponent("tool"),
	}

	// names that are not RFC 6570 varnames (e.g. "doc-id") fall back to
	// plain placeholder replacement at invocation time
	if tmpl, err := uritemplate.New(op.Path); err == nil {
		t.template = tmpl
	} else {
		g.logger.Debug().Str("tool", name).Str("path", op.Path).Err(err).
			Msg("path is not a URI template, using placeholder replacement")
	}

	if op.RequestBody != nil && len(op.RequestBody.Schema) > 0 {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(op.RequestBody.Schema))
		if err != nil {
			g.logger.Warn().Str("tool", name).Err(err).Msg("request body schema cannot be compiled, body will not be validated")
		} else {
			t.body = compiled
		}
	}
	return t, nil
}

func splitAttributePaths(paths []string) [][]string {
	var out [][]string
	for _, p := range paths {
		p = strings.Trim(strings.TrimSpace(p), ".")
		if p != "" {
			out = append(out, strings.Split(p, "."))
		}
	}
	return out
}
