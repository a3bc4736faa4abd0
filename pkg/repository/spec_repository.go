// Package repository persists spec documents in the openapi_specs table.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// ErrNotFound is returned (wrapped) when no row matches.
var ErrNotFound = errors.New("spec not found")

const selectColumns = `SELECT id, name, title, version, spec_content, file_format, file_size, is_active, created_at, updated_at
	FROM openapi_specs`

// SpecRepository handles database operations for spec records
type SpecRepository struct {
	db *sql.DB
}

// NewSpecRepository creates a new repository instance
func NewSpecRepository(db *sql.DB) *SpecRepository {
	return &SpecRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.SpecRecord, error) {
	rec := &models.SpecRecord{}
	var format sql.NullString
	var size sql.NullInt64
	var active sql.NullBool
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Title,
		&rec.Version,
		&rec.SpecContent,
		&format,
		&size,
		&active,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.FileFormat = format.String
	rec.FileSize = int(size.Int64)
	rec.IsActive = !active.Valid || active.Bool
	return rec, nil
}

// Create inserts rec and fills in its id and timestamps.
func (r *SpecRepository) Create(ctx context.Context, rec *models.SpecRecord) (*models.SpecRecord, error) {
	query := `
		INSERT INTO openapi_specs (name, title, version, spec_content, file_format, file_size, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.Name,
		rec.Title,
		rec.Version,
		rec.SpecContent,
		rec.FileFormat,
		rec.FileSize,
		rec.IsActive,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create spec %q: %w", rec.Name, err)
	}
	return rec, nil
}

// GetByID retrieves a spec by its ID
func (r *SpecRepository) GetByID(ctx context.Context, id int) (*models.SpecRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spec with id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spec %d: %w", id, err)
	}
	return rec, nil
}

// GetByName retrieves a spec by its name
func (r *SpecRepository) GetByName(ctx context.Context, name string) (*models.SpecRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, selectColumns+` WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spec %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spec %q: %w", name, err)
	}
	return rec, nil
}

// GetAll retrieves every spec, newest first.
func (r *SpecRepository) GetAll(ctx context.Context) ([]*models.SpecRecord, error) {
	return r.list(ctx, selectColumns+` ORDER BY created_at DESC`)
}

// GetActive retrieves the active specs, newest first.
func (r *SpecRepository) GetActive(ctx context.Context) ([]*models.SpecRecord, error) {
	return r.list(ctx, selectColumns+` WHERE is_active = true ORDER BY created_at DESC`)
}

func (r *SpecRepository) list(ctx context.Context, query string) ([]*models.SpecRecord, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list specs: %w", err)
	}
	defer rows.Close()

	var recs []*models.SpecRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spec: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Update rewrites every mutable column of rec.
func (r *SpecRepository) Update(ctx context.Context, rec *models.SpecRecord) (*models.SpecRecord, error) {
	query := `
		UPDATE openapi_specs
		SET name = $2, title = $3, version = $4, spec_content = $5,
		    file_format = $6, file_size = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Title,
		rec.Version,
		rec.SpecContent,
		rec.FileFormat,
		rec.FileSize,
		rec.IsActive,
	).Scan(&rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spec with id %d: %w", rec.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update spec %d: %w", rec.ID, err)
	}
	return rec, nil
}

// Delete removes a spec.
func (r *SpecRepository) Delete(ctx context.Context, id int) error {
	return r.execOne(ctx, id, `DELETE FROM openapi_specs WHERE id = $1`, id)
}

// SetActive sets the is_active status of a spec
func (r *SpecRepository) SetActive(ctx context.Context, id int, active bool) error {
	return r.execOne(ctx, id, `UPDATE openapi_specs SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

func (r *SpecRepository) execOne(ctx context.Context, id int, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to modify spec %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("spec with id %d: %w", id, ErrNotFound)
	}
	return nil
}
