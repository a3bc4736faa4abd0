package models

import (
	"time"
)

// SpecRecord represents a row of the openapi_specs table
type SpecRecord struct {
	ID          int        `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Title       *string    `json:"title,omitempty" db:"title"`
	Version     *string    `json:"version,omitempty" db:"version"`
	SpecContent string     `json:"spec_content" db:"spec_content"`
	FileFormat  string     `json:"file_format" db:"file_format"`
	FileSize    int        `json:"file_size" db:"file_size"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// NewSpecRecord creates an active record for content, detecting its format.
func NewSpecRecord(name string, content []byte) *SpecRecord {
	return &SpecRecord{
		Name:        name,
		SpecContent: string(content),
		FileFormat:  DetectFormat(content),
		FileSize:    len(content),
		IsActive:    true,
	}
}

// DetectFormat returns "json" when content looks like a JSON document, else "yaml".
func DetectFormat(content []byte) string {
	for _, c := range content {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return "json"
		default:
			return "yaml"
		}
	}
	return "yaml"
}
