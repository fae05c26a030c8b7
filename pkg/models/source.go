package models

import "time"

// SourceType enumerates where a Recording's bytes originate.
type SourceType string

const (
	SourceTypeConferencing SourceType = "conferencing"
	SourceTypeCloudDrive   SourceType = "cloud_drive"
	SourceTypeLocalFile    SourceType = "local_file"
)

// Source is a configured ingestion endpoint for a tenant.
type Source struct {
	ID           string     `json:"id" db:"id"`
	TenantID     string     `json:"tenant_id" db:"tenant_id"`
	Type         SourceType `json:"type" db:"type"`
	Name         string     `json:"name" db:"name"`
	CredentialID *string    `json:"credential_id,omitempty" db:"credential_id"`
	Settings     JSONB      `json:"settings" db:"settings"` // folder path, URL, sync cadence
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// OutputPreset is a named reusable bundle of (target_platform, credential,
// default platform metadata).
type OutputPreset struct {
	ID              string     `json:"id" db:"id"`
	TenantID        string     `json:"tenant_id" db:"tenant_id"`
	Name            string     `json:"name" db:"name"`
	TargetPlatform  Platform   `json:"target_platform" db:"target_platform"`
	CredentialID    string     `json:"credential_id" db:"credential_id"`
	DefaultMetadata JSONB      `json:"default_metadata" db:"default_metadata"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
