// Command spec-manager maintains the Postgres spec store that swagger-mcp
// reads "store:<name>" sources from.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/database"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
	"github.com/ubermorgenland/swagger-mcp/pkg/repository"
	"github.com/ubermorgenland/swagger-mcp/pkg/services"
)

var (
	databaseURL string
	logLevel    string
	resetTable  bool
)

var rootCmd = &cobra.Command{
	Use:           "spec-manager",
	Short:         "Manage the OpenAPI specs stored in Postgres",
	Long:          "spec-manager imports, lists and toggles the API descriptions swagger-mcp serves as store:<name>.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: `  spec-manager migrate
  spec-manager import weather.yaml weather
  spec-manager import-dir ./specs
  spec-manager seed seed.yaml
  spec-manager list
  spec-manager activate 1`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (env DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the openapi_specs table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *sql.DB, logger *logging.Logger) error {
				if resetTable {
					if err := database.DropSpecsTable(ctx, db, logger); err != nil {
						return err
					}
				}
				if err := database.RunMigrations(ctx, db, logger); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}
	migrateCmd.Flags().BoolVar(&resetTable, "reset", false, "drop the table first (deletes every stored spec)")

	rootCmd.AddCommand(
		migrateCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List all stored specs",
			Args:  cobra.NoArgs,
			RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *services.SpecStore, _ []string) error {
				specs, err := store.List(ctx)
				if err != nil {
					return err
				}
				printSpecs(cmd.OutOrStdout(), specs, "No specs found in the database.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "active",
			Short: "List active specs",
			Args:  cobra.NoArgs,
			RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *services.SpecStore, _ []string) error {
				specs, err := store.Active(ctx)
				if err != nil {
					return err
				}
				printSpecs(cmd.OutOrStdout(), specs, "No active specs found in the database.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "import <file> [name]",
			Short: "Validate and store a spec file (name defaults to the file name)",
			Args:  cobra.RangeArgs(1, 2),
			RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *services.SpecStore, args []string) error {
				name := ""
				if len(args) == 2 {
					name = args[1]
				}
				rec, err := store.ImportFile(ctx, args[0], name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported spec '%s' (id %d) from '%s'\n", rec.Name, rec.ID, args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "import-dir <dir>",
			Short: "Import every .yaml, .yml and .json file of a directory",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *services.SpecStore, args []string) error {
				imported, failed, err := store.ImportDir(ctx, args[0])
				if err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), imported, failed)
			}),
		},
		&cobra.Command{
			Use:   "seed <config>",
			Short: "Import the specs listed in a YAML or JSON seed file",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *services.SpecStore, args []string) error {
				cfg, err := services.LoadSeedConfig(args[0])
				if err != nil {
					return err
				}
				imported, failed := store.Seed(ctx, cfg)
				return report(cmd.OutOrStdout(), imported, failed)
			}),
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Print a stored spec",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *services.SpecStore, args []string) error {
				rec, err := store.Show(ctx, args[0])
				if err != nil {
					return err
				}
				printSpec(cmd.OutOrStdout(), rec)
				return nil
			}),
		},
		idCommand("activate", "Activate a spec by ID", (*services.SpecStore).Activate, "activated"),
		idCommand("deactivate", "Deactivate a spec by ID", (*services.SpecStore).Deactivate, "deactivated"),
		idCommand("delete", "Delete a spec by ID", (*services.SpecStore).Delete, "deleted"),
	)
}

func newLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logLevel})
}

func resolveDatabaseURL() (string, error) {
	url := databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return "", apperrors.Config("no database configured", "set --database-url or DATABASE_URL")
	}
	return url, nil
}

func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *sql.DB, logger *logging.Logger) error) error {
	url, err := resolveDatabaseURL()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := newLogger()
	db, err := database.Connect(ctx, url, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db, logger)
}

type storeFunc func(ctx context.Context, cmd *cobra.Command, store *services.SpecStore, args []string) error

// withStore opens the database, applies migrations and hands the command a SpecStore.
func withStore(fn storeFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		url, err := resolveDatabaseURL()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		logger := newLogger()
		db, err := database.Open(ctx, url, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		store := services.NewSpecStore(repository.NewSpecRepository(db), logger)
		return fn(ctx, cmd, store, args)
	}
}

func idCommand(use, short string, op func(*services.SpecStore, context.Context, int) error, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *services.SpecStore, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return apperrors.Config("invalid ID", args[0])
			}
			if err := op(store, ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully %s spec with ID %d\n", done, id)
			return nil
		}),
	}
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func printSpecs(w io.Writer, specs []*models.SpecRecord, empty string) {
	if len(specs) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	fmt.Fprintf(w, "%-4s %-20s %-30s %-10s %-8s %-6s %s\n", "ID", "Name", "Title", "Version", "Active", "Format", "Size")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, s := range specs {
		fmt.Fprintf(w, "%-4d %-20s %-30s %-10s %-8t %-6s %d\n",
			s.ID,
			truncate(s.Name, 17),
			truncate(deref(s.Title), 27),
			truncate(deref(s.Version), 7),
			s.IsActive,
			s.FileFormat,
			s.FileSize)
	}
}

func printSpec(w io.Writer, s *models.SpecRecord) {
	fmt.Fprintf(w, "ID:      %d\n", s.ID)
	fmt.Fprintf(w, "Name:    %s\n", s.Name)
	fmt.Fprintf(w, "Title:   %s\n", deref(s.Title))
	fmt.Fprintf(w, "Version: %s\n", deref(s.Version))
	fmt.Fprintf(w, "Active:  %t\n", s.IsActive)
	fmt.Fprintf(w, "Format:  %s (%d bytes)\n", s.FileFormat, s.FileSize)
	if s.UpdatedAt != nil {
		fmt.Fprintf(w, "Updated: %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "\n%s\n", strings.TrimRight(s.SpecContent, "\n"))
}

func report(w io.Writer, imported []*models.SpecRecord, failed map[string]error) error {
	for _, rec := range imported {
		fmt.Fprintf(w, "Imported %s (id %d, active %t)\n", rec.Name, rec.ID, rec.IsActive)
	}
	files := make([]string, 0, len(failed))
	for f := range failed {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		fmt.Fprintf(w, "Failed   %s: %v\n", f, failed[f])
	}
	fmt.Fprintf(w, "%d imported, %d failed\n", len(imported), len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("%d specs failed to import", len(failed))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
