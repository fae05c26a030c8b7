package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// VaultRepo implements vault.Repo over Postgres.
type VaultRepo struct{ DB }

func NewVaultRepo(db DB) *VaultRepo { return &VaultRepo{DB: db} }

func (r *VaultRepo) Insert(ctx context.Context, tc tenantctx.Context, cred models.Credential) (string, error) {
	id := uuid.NewString()
	meta, err := marshalJSONB(cred.Metadata)
	if err != nil {
		return "", mapErr(err)
	}
	_, err = r.Conn.ExecContext(ctx, `
		INSERT INTO credentials (id, tenant_id, platform, account_key, ciphertext, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
		id, tc.TenantID, cred.Platform, cred.AccountKey, cred.Ciphertext, meta)
	if err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (r *VaultRepo) scanCredential(row *sql.Row) (models.Credential, error) {
	var c models.Credential
	var meta []byte
	var lastUsed sql.NullTime
	err := row.Scan(&c.ID, &c.TenantID, &c.Platform, &c.AccountKey, &c.Ciphertext, &meta, &lastUsed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Credential{}, mapErr(err)
	}
	if lastUsed.Valid {
		c.LastUsedAt = &lastUsed.Time
	}
	c.Metadata, err = unmarshalJSONB(meta)
	if err != nil {
		return models.Credential{}, err
	}
	return c, nil
}

func (r *VaultRepo) Get(ctx context.Context, tc tenantctx.Context, platform models.Platform, accountKey string) (models.Credential, error) {
	row := r.Conn.QueryRowContext(ctx, `
		SELECT id, tenant_id, platform, account_key, ciphertext, metadata, last_used_at, created_at, updated_at
		FROM credentials WHERE tenant_id = $1 AND platform = $2 AND account_key = $3`,
		tc.TenantID, platform, accountKey)
	return r.scanCredential(row)
}

func (r *VaultRepo) GetByID(ctx context.Context, tc tenantctx.Context, id string) (models.Credential, error) {
	row := r.Conn.QueryRowContext(ctx, `
		SELECT id, tenant_id, platform, account_key, ciphertext, metadata, last_used_at, created_at, updated_at
		FROM credentials WHERE tenant_id = $1 AND id = $2`,
		tc.TenantID, id)
	return r.scanCredential(row)
}

func (r *VaultRepo) List(ctx context.Context, tc tenantctx.Context) ([]models.Credential, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT id, tenant_id, platform, account_key, ciphertext, metadata, last_used_at, created_at, updated_at
		FROM credentials WHERE tenant_id = $1 ORDER BY created_at`, tc.TenantID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Credential
	for rows.Next() {
		var c models.Credential
		var meta []byte
		var lastUsed sql.NullTime
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Platform, &c.AccountKey, &c.Ciphertext, &meta, &lastUsed, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		if lastUsed.Valid {
			c.LastUsedAt = &lastUsed.Time
		}
		c.Metadata, err = unmarshalJSONB(meta)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}

func (r *VaultRepo) Delete(ctx context.Context, tc tenantctx.Context, id string) error {
	_, err := r.Conn.ExecContext(ctx, `DELETE FROM credentials WHERE tenant_id = $1 AND id = $2`, tc.TenantID, id)
	return mapErr(err)
}

func (r *VaultRepo) UpdateCiphertext(ctx context.Context, tc tenantctx.Context, id string, ciphertext string) error {
	_, err := r.Conn.ExecContext(ctx, `
		UPDATE credentials SET ciphertext = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`,
		ciphertext, tc.TenantID, id)
	return mapErr(err)
}

func (r *VaultRepo) TouchLastUsed(ctx context.Context, tc tenantctx.Context, id string) error {
	_, err := r.Conn.ExecContext(ctx, `
		UPDATE credentials SET last_used_at = $1 WHERE tenant_id = $2 AND id = $3`,
		time.Now(), tc.TenantID, id)
	return mapErr(err)
}
