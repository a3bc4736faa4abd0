package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/console"
	"github.com/ubermorgenland/swagger-mcp/pkg/database"
	"github.com/ubermorgenland/swagger-mcp/pkg/loader"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/openapi2mcp"
	"github.com/ubermorgenland/swagger-mcp/pkg/repository"
	"github.com/ubermorgenland/swagger-mcp/pkg/server"
	"github.com/ubermorgenland/swagger-mcp/pkg/services"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "swagger-mcp [flags] <spec>",
	Short: "Serve an OpenAPI or Swagger API as MCP tools",
	Long: `swagger-mcp reads an OpenAPI 3 or Swagger 2 document (file, http(s) URL
or store:<name>), turns the selected operations into MCP tools and serves
them over stdio, streamable HTTP or SSE. Only GET operations are exposed
unless --methods says otherwise.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
	RunE:          runServe,
}

var consoleCmd = &cobra.Command{
	Use:   "console <spec>",
	Short: "Try the generated tools in an interactive shell",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConsole,
}

func init() {
	server.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(consoleCmd)
}

// setup loads the configuration and generates the tool set. The returned
// cleanup closes the spec store connection, if one was opened.
func setup(ctx context.Context, cmd *cobra.Command, args []string) (*server.Config, *logging.Logger, *server.Toolset, func(), error) {
	cleanup := func() {}
	cfg, err := server.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, nil, cleanup, err
	}
	if len(args) == 1 {
		cfg.Spec = args[0]
	}
	if cfg.Spec == "" {
		return nil, nil, nil, cleanup, apperrors.Config("no specification given", "pass a file, URL or store:<name>")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, cleanup, err
	}

	logger := cfg.NewLogger()
	cfg.LogConfiguration(logger)

	opts := &server.BuildOptions{}
	if strings.HasPrefix(cfg.Spec, loader.StorePrefix) && cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL, logger.WithComponent("database"))
		if err != nil {
			return nil, nil, nil, cleanup, err
		}
		cleanup = func() { closeDB(db, logger) }
		opts.Store = services.NewSpecStore(repository.NewSpecRepository(db), logger)
	}

	ts, err := server.Build(ctx, cfg, logger, opts)
	if err != nil {
		return nil, nil, nil, cleanup, err
	}
	return cfg, logger, ts, cleanup, nil
}

func closeDB(db *sql.DB, logger *logging.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close database")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, ts, cleanup, err := setup(ctx, cmd, args)
	defer cleanup()
	if err != nil {
		return err
	}

	if cfg.DryRun {
		out := cmd.OutOrStdout()
		if cfg.Output == "json" {
			return openapi2mcp.WriteToolsJSON(out, ts.Tools)
		}
		openapi2mcp.PrintToolSummary(out, ts.Tools)
		return nil
	}

	return server.Serve(ctx, cfg, server.NewMCPServer(cfg, ts, logger), logger)
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	_, logger, ts, cleanup, err := setup(ctx, cmd, args)
	defer cleanup()
	if err != nil {
		return err
	}

	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".swagger_mcp_history")
	}
	return console.New(ts.Tools, cmd.OutOrStdout(), logger).Run(ctx, history)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.NewDefault().Error().
			Str("type", string(apperrors.GetType(err))).
			Err(err).
			Msg("swagger-mcp failed")
		os.Exit(1)
	}
}
