package openapi2mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// ServerOptions configures NewServer. The zero value is usable.
type ServerOptions struct {
	Instructions string
	Logger       *logging.Logger
}

// NewServer creates an MCP server and registers tools on it.
// Example usage:
//
//	srv := openapi2mcp.NewServer("petstore", "1.0.0", tools, &openapi2mcp.ServerOptions{Logger: logger})
//	mcpserver.ServeStdio(srv)
func NewServer(name, version string, tools []*Tool, opts *ServerOptions) *mcpserver.MCPServer {
	if opts == nil {
		opts = &ServerOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewSilent()
	}

	serverOpts := []mcpserver.ServerOption{
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	}
	if opts.Instructions != "" {
		serverOpts = append(serverOpts, mcpserver.WithInstructions(opts.Instructions))
	}
	srv := mcpserver.NewMCPServer(name, version, serverOpts...)
	RegisterTools(srv, tools, logger)
	logger.Info().Str("server", name).Int("tools", len(tools)).Msg("tools registered")
	return srv
}

// RegisterTools adds every tool to srv.
func RegisterTools(srv *mcpserver.MCPServer, tools []*Tool, logger *logging.Logger) {
	for _, t := range tools {
		def, err := t.MCPTool()
		if err != nil {
			// schemas are built from plain maps, so this only fires on a programming error
			logger.Error().Str("tool", t.Name).Err(err).Msg("cannot encode input schema")
			continue
		}
		srv.AddTool(def, t.Handler(logger))
	}
}

// MCPTool returns the protocol definition of t.
func (t *Tool) MCPTool() (mcp.Tool, error) {
	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return mcp.Tool{}, err
	}
	def := mcp.NewToolWithRawSchema(t.Name, t.Description, raw)
	m := t.Operation.Method
	def.Annotations = mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(m.ReadOnly()),
		DestructiveHint: mcp.ToBoolPtr(m == models.MethodDelete),
		IdempotentHint:  mcp.ToBoolPtr(m != models.MethodPost && m != models.MethodPatch),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}
	return def, nil
}

// Handler adapts Invoke to mcp-go. Argument errors and upstream failures
// both come back as error results; the protocol call itself succeeds.
func (t *Tool) Handler(logger *logging.Logger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := t.Invoke(ctx, request.GetArguments())
		if err != nil {
			var invErr *apperrors.InvocationError
			if errors.As(err, &invErr) {
				logger.Warn().Str("tool", t.Name).Str("kind", string(invErr.Kind)).Str("parameter", invErr.Parameter).
					Msg("invalid tool call")
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res.IsError() {
			return mcp.NewToolResultError(res.Text()), nil
		}
		return mcp.NewToolResultText(res.Text()), nil
	}
}
