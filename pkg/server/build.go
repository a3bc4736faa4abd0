// Package server wires configuration, the generation pipeline and the MCP
// transports together.
package server

import (
	"context"
	"net/http"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/client"
	"github.com/ubermorgenland/swagger-mcp/pkg/filter"
	"github.com/ubermorgenland/swagger-mcp/pkg/loader"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/openapi2mcp"
)

// Toolset is the output of one generation pass.
type Toolset struct {
	Spec    *loader.Spec
	BaseURL string
	Tools   []*openapi2mcp.Tool
}

// BuildOptions carries the dependencies of Build that do not come from Config.
type BuildOptions struct {
	Store     loader.Store
	Transport http.RoundTripper
}

// Build parses the configured spec, filters its operations and generates
// tools bound to an API client. Any failure aborts startup.
func Build(ctx context.Context, cfg *Config, logger *logging.Logger, opts *BuildOptions) (*Toolset, error) {
	if opts == nil {
		opts = &BuildOptions{}
	}

	loadOpts := []loader.Option{loader.WithLogger(logger)}
	if opts.Store != nil {
		loadOpts = append(loadOpts, loader.WithStore(opts.Store))
	}
	spec, err := loader.Parse(ctx, cfg.Spec, loadOpts...)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("title", spec.Title).
		Str("dialect", spec.Dialect).
		Int("operations", len(spec.Operations)).
		Msg("specification parsed")

	fc, err := filter.NewConfig(cfg.Filter)
	if err != nil {
		return nil, err
	}
	selected := filter.Select(spec.Operations, fc)
	if len(selected) == 0 {
		return nil, apperrors.Config("no operations match the configured filters",
			"methods default to GET; use --methods to expose others")
	}

	baseURL := ResolveBaseURL(cfg.BaseURL, spec)
	api, err := client.New(client.Config{
		BaseURL:   baseURL,
		BasePath:  spec.BasePath,
		Token:     cfg.APIToken,
		Timeout:   cfg.Timeout,
		Transport: opts.Transport,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	gen := openapi2mcp.NewGenerator(api, &openapi2mcp.ToolGenOptions{
		ExcludeAttributes: cfg.ExcludeAttributes,
		Logger:            logger,
	})
	tools, err := gen.Generate(selected)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("selected", len(selected)).
		Int("tools", len(tools)).
		Str("base_url", baseURL).
		Msg("tool set ready")

	return &Toolset{Spec: spec, BaseURL: baseURL, Tools: tools}, nil
}

// ResolveBaseURL picks the operator's base URL, then the document's, then
// DefaultBaseURL.
func ResolveBaseURL(configured string, spec *loader.Spec) string {
	if configured != "" {
		return configured
	}
	if spec != nil && spec.DefaultBaseURL != "" {
		// a relative server URL ("/v1") from a local file has nothing to resolve against
		if strings.HasPrefix(spec.DefaultBaseURL, "/") {
			return DefaultBaseURL + spec.DefaultBaseURL
		}
		return spec.DefaultBaseURL
	}
	return DefaultBaseURL
}

// NewMCPServer registers the toolset on a new MCP server.
func NewMCPServer(cfg *Config, ts *Toolset, logger *logging.Logger) *mcpserver.MCPServer {
	version := ts.Spec.Version
	if version == "" {
		version = "1.0.0"
	}
	instructions := cfg.Instructions
	if instructions == "" && ts.Spec.Description != "" {
		instructions = ts.Spec.Description
	}
	return openapi2mcp.NewServer(cfg.ServerName, version, ts.Tools, &openapi2mcp.ServerOptions{
		Instructions: instructions,
		Logger:       logger.WithComponent("mcp"),
	})
}
