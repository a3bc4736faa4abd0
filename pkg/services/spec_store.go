// Package services implements the spec store on top of the repository:
// validated imports, activation and content lookup for "store:<name>" sources.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/loader"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
	"github.com/ubermorgenland/swagger-mcp/pkg/repository"
)

// Repository is the persistence the store needs; *repository.SpecRepository implements it.
type Repository interface {
	Create(ctx context.Context, rec *models.SpecRecord) (*models.SpecRecord, error)
	GetByID(ctx context.Context, id int) (*models.SpecRecord, error)
	GetByName(ctx context.Context, name string) (*models.SpecRecord, error)
	GetAll(ctx context.Context) ([]*models.SpecRecord, error)
	GetActive(ctx context.Context) ([]*models.SpecRecord, error)
	Update(ctx context.Context, rec *models.SpecRecord) (*models.SpecRecord, error)
	Delete(ctx context.Context, id int) error
	SetActive(ctx context.Context, id int, active bool) error
}

// SpecStore manages stored spec documents.
type SpecStore struct {
	repo   Repository
	logger *logging.Logger
}

var _ loader.Store = (*SpecStore)(nil)

// NewSpecStore creates a store over repo.
func NewSpecStore(repo Repository, logger *logging.Logger) *SpecStore {
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &SpecStore{repo: repo, logger: logger.WithComponent("spec-store")}
}

// SpecContent returns the document stored under name. Inactive specs are
// not served.
func (s *SpecStore) SpecContent(ctx context.Context, name string) ([]byte, error) {
	rec, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return nil, fmt.Errorf("spec %q is not active", name)
	}
	return []byte(rec.SpecContent), nil
}

// Import validates content as an API description and stores it under name.
// An existing spec with the same name is replaced, keeping its active flag.
func (s *SpecStore) Import(ctx context.Context, name string, content []byte) (*models.SpecRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Config("spec name is required", "")
	}
	spec, err := loader.ParseData(content)
	if err != nil {
		return nil, err
	}

	rec := models.NewSpecRecord(name, content)
	if spec.Title != "" {
		rec.Title = &spec.Title
	}
	if spec.Version != "" {
		rec.Version = &spec.Version
	}

	existing, err := s.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		rec.ID = existing.ID
		rec.IsActive = existing.IsActive
		rec.CreatedAt = existing.CreatedAt
		if rec, err = s.repo.Update(ctx, rec); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to update spec")
		}
		s.logger.Info().Str("name", name).Int("operations", len(spec.Operations)).Msg("spec updated")
	case errors.Is(err, repository.ErrNotFound):
		if rec, err = s.repo.Create(ctx, rec); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to save spec")
		}
		s.logger.Info().Str("name", name).Int("operations", len(spec.Operations)).Msg("spec imported")
	default:
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to look up spec")
	}
	return rec, nil
}

// ImportFile imports the file at path. An empty name uses NameFromFile.
func (s *SpecStore) ImportFile(ctx context.Context, path, name string) (*models.SpecRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Load(path, err)
	}
	if name == "" {
		name = NameFromFile(path)
	}
	return s.Import(ctx, name, content)
}

// ImportDir imports every .yaml, .yml and .json file in dir. Files that
// fail are reported in the returned map and do not stop the import.
func (s *SpecStore) ImportDir(ctx context.Context, dir string) ([]*models.SpecRecord, map[string]error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, apperrors.Load(dir, err)
	}
	var imported []*models.SpecRecord
	failed := map[string]error{}
	for _, entry := range entries {
		if entry.IsDir() || !isSpecFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		rec, err := s.ImportFile(ctx, path, "")
		if err != nil {
			s.logger.Warn().Str("file", path).Err(err).Msg("import failed")
			failed[path] = err
			continue
		}
		imported = append(imported, rec)
	}
	return imported, failed, nil
}

// SeedEntry is one spec of a seed file.
type SeedEntry struct {
	File   string `json:"file" yaml:"file"`
	Name   string `json:"name" yaml:"name"`
	Active *bool  `json:"active" yaml:"active"`
}

// SeedConfig is the seed file format (YAML or JSON).
type SeedConfig struct {
	Specs []SeedEntry `json:"specs" yaml:"specs"`
}

// LoadSeedConfig reads a seed file. Relative spec paths are resolved
// against the seed file's directory.
func LoadSeedConfig(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Load(path, err)
	}
	var cfg SeedConfig
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeConfig, "invalid seed file")
	}
	base := filepath.Dir(path)
	for i, e := range cfg.Specs {
		if e.File == "" {
			return nil, apperrors.Config("seed entry has no file", fmt.Sprintf("entry %d", i))
		}
		if !filepath.IsAbs(e.File) {
			cfg.Specs[i].File = filepath.Join(base, e.File)
		}
	}
	return &cfg, nil
}

// Seed imports every entry of cfg and applies its active flag (default true).
func (s *SpecStore) Seed(ctx context.Context, cfg *SeedConfig) ([]*models.SpecRecord, map[string]error) {
	var imported []*models.SpecRecord
	failed := map[string]error{}
	for _, e := range cfg.Specs {
		rec, err := s.ImportFile(ctx, e.File, e.Name)
		if err != nil {
			failed[e.File] = err
			continue
		}
		active := e.Active == nil || *e.Active
		if rec.IsActive != active {
			if err := s.repo.SetActive(ctx, rec.ID, active); err != nil {
				failed[e.File] = err
				continue
			}
			rec.IsActive = active
		}
		imported = append(imported, rec)
	}
	return imported, failed
}

// List returns every stored spec.
func (s *SpecStore) List(ctx context.Context) ([]*models.SpecRecord, error) {
	return s.repo.GetAll(ctx)
}

// Active returns the active specs.
func (s *SpecStore) Active(ctx context.Context) ([]*models.SpecRecord, error) {
	return s.repo.GetActive(ctx)
}

// Show returns the spec stored under name.
func (s *SpecStore) Show(ctx context.Context, name string) (*models.SpecRecord, error) {
	return s.repo.GetByName(ctx, name)
}

// Activate marks a spec active.
func (s *SpecStore) Activate(ctx context.Context, id int) error {
	return s.repo.SetActive(ctx, id, true)
}

// Deactivate marks a spec inactive.
func (s *SpecStore) Deactivate(ctx context.Context, id int) error {
	return s.repo.SetActive(ctx, id, false)
}

// Delete removes a spec.
func (s *SpecStore) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// NameFromFile derives a spec name from a file name: "google_finance.yml"
// becomes "google-finance".
func NameFromFile(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

func isSpecFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
