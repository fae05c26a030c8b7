package repo

import (
	"context"

	"github.com/google/uuid"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// SourceRepo implements scheduler.SourceRepo plus the §6 UpsertSource and
// output-preset operations over Postgres.
type SourceRepo struct{ DB }

func NewSourceRepo(db DB) *SourceRepo { return &SourceRepo{DB: db} }

func (r *SourceRepo) ListByTenant(ctx context.Context, tc tenantctx.Context) ([]models.Source, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT id, tenant_id, type, name, credential_id, settings, created_at, updated_at
		FROM sources WHERE tenant_id = $1`, tc.TenantID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var s models.Source
		var settings []byte
		var credentialID *string
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Type, &s.Name, &credentialID, &settings, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		s.CredentialID = credentialID
		s.Settings, err = unmarshalJSONB(settings)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

func (r *SourceRepo) Upsert(ctx context.Context, tc tenantctx.Context, src models.Source) (models.Source, error) {
	settings, err := marshalJSONB(src.Settings)
	if err != nil {
		return models.Source{}, err
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
		src.TenantID = tc.TenantID
		_, err = r.Conn.ExecContext(ctx, `
			INSERT INTO sources (id, tenant_id, type, name, credential_id, settings, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
			src.ID, src.TenantID, src.Type, src.Name, src.CredentialID, settings)
	} else {
		_, err = r.Conn.ExecContext(ctx, `
			UPDATE sources SET type = $1, name = $2, credential_id = $3, settings = $4, updated_at = now()
			WHERE tenant_id = $5 AND id = $6`,
			src.Type, src.Name, src.CredentialID, settings, tc.TenantID, src.ID)
	}
	if err != nil {
		return models.Source{}, mapErr(err)
	}
	return src, nil
}

func (r *SourceRepo) UpsertPreset(ctx context.Context, tc tenantctx.Context, preset models.OutputPreset) (models.OutputPreset, error) {
	meta, err := marshalJSONB(preset.DefaultMetadata)
	if err != nil {
		return models.OutputPreset{}, err
	}
	if preset.ID == "" {
		preset.ID = uuid.NewString()
		preset.TenantID = tc.TenantID
		_, err = r.Conn.ExecContext(ctx, `
			INSERT INTO output_presets (id, tenant_id, name, target_platform, credential_id, default_metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
			preset.ID, preset.TenantID, preset.Name, preset.TargetPlatform, preset.CredentialID, meta)
	} else {
		_, err = r.Conn.ExecContext(ctx, `
			UPDATE output_presets SET name = $1, target_platform = $2, credential_id = $3, default_metadata = $4, updated_at = now()
			WHERE tenant_id = $5 AND id = $6`,
			preset.Name, preset.TargetPlatform, preset.CredentialID, meta, tc.TenantID, preset.ID)
	}
	if err != nil {
		return models.OutputPreset{}, mapErr(err)
	}
	return preset, nil
}
