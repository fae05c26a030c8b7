package repo

import (
	"context"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// TenantRepo implements scheduler.TenantRepo over Postgres.
type TenantRepo struct{ DB }

func NewTenantRepo(db DB) *TenantRepo { return &TenantRepo{DB: db} }

func (r *TenantRepo) Get(ctx context.Context, tenantID string) (models.Tenant, error) {
	var t models.Tenant
	var permsJSON []byte
	row := r.Conn.QueryRowContext(ctx, `
		SELECT id, role, permissions, max_concurrent_processes, max_recordings_per_month,
			quota_disk_bytes, max_file_bytes, rate_limit_per_minute, timezone, created_at, updated_at
		FROM tenants WHERE id = $1`, tenantID)
	err := row.Scan(&t.ID, &t.Role, &permsJSON, &t.Limits.MaxConcurrentProcesses, &t.Limits.MaxRecordingsPerMonth,
		&t.Limits.QuotaDiskBytes, &t.Limits.MaxFileBytes, &t.Limits.RateLimitPerMinute, &t.Timezone, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Tenant{}, mapErr(err)
	}
	if len(permsJSON) > 0 {
		var perms map[string]bool
		if err := unmarshalInto(permsJSON, &perms); err != nil {
			return models.Tenant{}, err
		}
		t.Permissions = make(map[models.Permission]bool, len(perms))
		for k, v := range perms {
			t.Permissions[models.Permission(k)] = v
		}
	}
	return t, nil
}

// TenantDefaultsRepo implements configresolver.TenantDefaultsRepo
// separately from TenantRepo: the two interfaces both want a method
// named Get with different signatures, so they need distinct concrete
// types over the same tenants table.
type TenantDefaultsRepo struct{ DB }

func NewTenantDefaultsRepo(db DB) *TenantDefaultsRepo { return &TenantDefaultsRepo{DB: db} }

// Get returns the tenant-wide default config document (processing,
// transcription, and metadata layers merged under the tenant's defaults
// key), the base layer of the Config Resolver's three-way merge.
func (r *TenantDefaultsRepo) Get(ctx context.Context, tc tenantctx.Context) (models.JSONB, error) {
	var raw []byte
	err := r.Conn.QueryRowContext(ctx, `SELECT default_config FROM tenants WHERE id = $1`, tc.TenantID).Scan(&raw)
	if err != nil {
		return nil, mapErr(err)
	}
	return unmarshalJSONB(raw)
}
