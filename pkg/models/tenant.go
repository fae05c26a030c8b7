package models

import "time"

// Role is a Tenant's role; admin bypasses tenant filtering only through a
// distinct API surface, never from pipeline code.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Permission is one flag in a Tenant's enumerated permission set.
type Permission string

const (
	PermCanTranscribe          Permission = "can_transcribe"
	PermCanProcessVideo        Permission = "can_process_video"
	PermCanUpload              Permission = "can_upload"
	PermCanCreateTemplates     Permission = "can_create_templates"
	PermCanDeleteRecordings    Permission = "can_delete_recordings"
	PermCanUpdateUploadedVideos Permission = "can_update_uploaded_videos"
	PermCanManageCredentials   Permission = "can_manage_credentials"
	PermCanExportData          Permission = "can_export_data"
)

// Limits are a tenant's per-resource caps, enforced by the Quota Service.
type Limits struct {
	MaxConcurrentProcesses int   `json:"max_concurrent_processes" db:"max_concurrent_processes"`
	MaxRecordingsPerMonth  int   `json:"max_recordings_per_month" db:"max_recordings_per_month"`
	QuotaDiskBytes         int64 `json:"quota_disk_bytes" db:"quota_disk_bytes"`
	MaxFileBytes           int64 `json:"max_file_bytes" db:"max_file_bytes"`
	RateLimitPerMinute     int   `json:"rate_limit_per_minute" db:"rate_limit_per_minute"`
}

// Tenant is the principal of isolation; owner of all derived entities.
type Tenant struct {
	ID        string              `json:"id" db:"id"`
	Role      Role                `json:"role" db:"role"`
	Permissions map[Permission]bool `json:"permissions" db:"-"`
	Limits    Limits              `json:"limits" db:"-"`
	Timezone  string              `json:"timezone" db:"timezone"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
}

// Has reports whether the tenant carries the given permission flag.
func (t Tenant) Has(p Permission) bool {
	return t.Permissions[p]
}
