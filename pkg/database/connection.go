// Package database opens the Postgres spec store and manages its schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
)

const (
	maxOpenConns = 25
	pingTimeout  = 10 * time.Second
)

// ValidateURL checks that databaseURL is a PostgreSQL connection URL.
func ValidateURL(databaseURL string) error {
	if databaseURL == "" {
		return apperrors.Config("database URL is not set", "DATABASE_URL")
	}
	if !strings.HasPrefix(databaseURL, "postgresql://") && !strings.HasPrefix(databaseURL, "postgres://") {
		return apperrors.Config("database URL must start with postgres:// or postgresql://", RedactURL(databaseURL))
	}
	return nil
}

// RedactURL hides everything before the host part of databaseURL.
func RedactURL(databaseURL string) string {
	if i := strings.LastIndex(databaseURL, "@"); i >= 0 {
		scheme := ""
		if j := strings.Index(databaseURL, "://"); j >= 0 && j < i {
			scheme = databaseURL[:j+3]
		}
		return scheme + "[HIDDEN]" + databaseURL[i:]
	}
	return databaseURL
}

// Connect opens and pings the database.
func Connect(ctx context.Context, databaseURL string, logger *logging.Logger) (*sql.DB, error) {
	if err := ValidateURL(databaseURL); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to open database connection")
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to ping database")
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	logger.Info().Str("database", RedactURL(databaseURL)).Msg("database connected")
	return db, nil
}

// Open connects and runs migrations.
func Open(ctx context.Context, databaseURL string, logger *logging.Logger) (*sql.DB, error) {
	db, err := Connect(ctx, databaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
