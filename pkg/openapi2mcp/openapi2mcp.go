// Package openapi2mcp turns parsed API operations into MCP tools.
//
// Each surviving operation becomes one Tool: a unique name, a description
// for the model, a JSON input schema, and an Invoke method bound to the
// operation and the shared API client.
//
//	spec, _ := loader.Parse(ctx, "petstore.yaml")
//	cfg, _ := filter.NewConfig(filter.Options{Methods: []string{"GET"}})
//	api, _ := client.New(client.Config{BaseURL: spec.DefaultBaseURL, BasePath: spec.BasePath})
//	tools, _ := openapi2mcp.NewGenerator(api, nil).Generate(filter.Select(spec.Operations, cfg))
//	srv := openapi2mcp.NewServer("petstore", spec.Version, tools, nil)
//	server.ServeStdio(srv)
package openapi2mcp

import (
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
)

// BodyField is the input schema property carrying the request body.
const BodyField = "body"

// ToolGenOptions controls tool generation.
//
// NamePrefix: prepended to every tool name
// ExcludeAttributes: dot paths removed from successful JSON responses
// Logger: defaults to a silent logger
type ToolGenOptions struct {
	NamePrefix        string
	ExcludeAttributes []string
	Logger            *logging.Logger
}

func (o *ToolGenOptions) logger() *logging.Logger {
	if o == nil || o.Logger == nil {
		return logging.NewSilent()
	}
	return o.Logger
}
