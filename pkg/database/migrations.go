package database

import (
	"context"
	"database/sql"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
)

const createSpecsTable = `
CREATE TABLE IF NOT EXISTS openapi_specs (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) UNIQUE NOT NULL,
	title VARCHAR(500),
	version VARCHAR(100),
	spec_content TEXT NOT NULL,
	file_format VARCHAR(10) DEFAULT 'yaml',
	file_size INTEGER,
	is_active BOOLEAN DEFAULT true,
	created_at TIMESTAMP(6) DEFAULT NOW(),
	updated_at TIMESTAMP(6) DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_openapi_specs_is_active ON openapi_specs(is_active);
CREATE INDEX IF NOT EXISTS idx_openapi_specs_name ON openapi_specs(name);

CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
	NEW.updated_at = NOW();
	RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_openapi_specs_updated_at ON openapi_specs;
CREATE TRIGGER update_openapi_specs_updated_at
	BEFORE UPDATE ON openapi_specs
	FOR EACH ROW
	EXECUTE FUNCTION update_updated_at_column();
`

const dropSpecsTable = `
DROP TRIGGER IF EXISTS update_openapi_specs_updated_at ON openapi_specs;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS openapi_specs CASCADE;
`

// RunMigrations creates the openapi_specs table, its indexes and the
// updated_at trigger. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB, logger *logging.Logger) error {
	if _, err := db.ExecContext(ctx, createSpecsTable); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to create openapi_specs table")
	}
	logger.Info().Msg("migrations completed")
	return nil
}

// DropSpecsTable removes the table and trigger.
func DropSpecsTable(ctx context.Context, db *sql.DB, logger *logging.Logger) error {
	if _, err := db.ExecContext(ctx, dropSpecsTable); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to drop openapi_specs table")
	}
	logger.Warn().Msg("openapi_specs table dropped")
	return nil
}
