package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ubermorgenland/swagger-mcp/pkg/auth"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
)

// Endpoint paths of the HTTP transports.
const (
	StreamableEndpoint = "/mcp"
	SSEEndpoint        = "/sse"
	MessageEndpoint    = "/message"
	HealthEndpoint     = "/health"
)

// ShutdownTimeout bounds how long in-flight requests may take after a signal.
const ShutdownTimeout = 25 * time.Second

// Serve runs srv on the configured transport until the client disconnects
// (stdio) or the process is signalled (HTTP transports).
func Serve(ctx context.Context, cfg *Config, srv *mcpserver.MCPServer, logger *logging.Logger) error {
	if cfg.Transport == TransportStdio {
		logger.Info().Msg("serving MCP over stdio")
		return mcpserver.ServeStdio(srv)
	}

	handler, err := NewHTTPHandler(cfg, srv, logger)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}
	return startServerWithGracefulShutdown(ctx, httpSrv, logger)
}

// NewHTTPHandler mounts the configured HTTP transport and the health check
// on one mux. Bearer tokens on incoming requests are forwarded upstream.
func NewHTTPHandler(cfg *Config, srv *mcpserver.MCPServer, logger *logging.Logger) (http.Handler, error) {
	mux := http.NewServeMux()
	mux.Handle(HealthEndpoint, HandleHealth(cfg.ServerName))

	switch cfg.Transport {
	case TransportStreamableHTTP:
		streamable := mcpserver.NewStreamableHTTPServer(srv,
			mcpserver.WithEndpointPath(StreamableEndpoint),
			mcpserver.WithHTTPContextFunc(auth.FromRequest),
		)
		mux.Handle(StreamableEndpoint, streamable)
		logger.Info().Str("endpoint", StreamableEndpoint).Msg("streamable HTTP transport mounted")
	case TransportSSE:
		sse := mcpserver.NewSSEServer(srv,
			mcpserver.WithSSEEndpoint(SSEEndpoint),
			mcpserver.WithMessageEndpoint(MessageEndpoint),
			mcpserver.WithSSEContextFunc(auth.FromRequest),
		)
		mux.Handle(SSEEndpoint, sse.SSEHandler())
		mux.Handle(MessageEndpoint, sse.MessageHandler())
		logger.Info().Str("sse", SSEEndpoint).Str("message", MessageEndpoint).Msg("SSE transport mounted")
	default:
		return nil, fmt.Errorf("transport %q is not served over HTTP", cfg.Transport)
	}
	return mux, nil
}

// startServerWithGracefulShutdown serves until ctx ends, SIGINT/SIGTERM
// arrives or the listener fails.
func startServerWithGracefulShutdown(ctx context.Context, srv *http.Server, logger *logging.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	case <-ctx.Done():
		logger.Info().Msg("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	logger.Info().Msg("server shut down gracefully")
	return nil
}
