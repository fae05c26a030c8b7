package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// TargetRepo implements pipeline.TargetRepo over Postgres.
type TargetRepo struct{ DB }

func NewTargetRepo(db DB) *TargetRepo { return &TargetRepo{DB: db} }

func (r *TargetRepo) ListByRecording(ctx context.Context, tc tenantctx.Context, recordingID string) ([]models.OutputTarget, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT ot.id, ot.recording_id, ot.target_platform, ot.preset_id, ot.status, ot.failed,
			ot.retry_count, ot.target_meta, ot.uploaded_at, ot.last_updated_at
		FROM output_targets ot
		JOIN recordings rec ON rec.id = ot.recording_id
		WHERE rec.tenant_id = $1 AND ot.recording_id = $2
		ORDER BY ot.target_platform`, tc.TenantID, recordingID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.OutputTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, mapErr(rows.Err())
}

func scanTarget(row interface{ Scan(...interface{}) error }) (models.OutputTarget, error) {
	var t models.OutputTarget
	var meta []byte
	var uploadedAt, lastUpdatedAt sql.NullTime
	err := row.Scan(&t.ID, &t.RecordingID, &t.TargetPlatform, &t.PresetID, &t.Status, &t.Failed,
		&t.RetryCount, &meta, &uploadedAt, &lastUpdatedAt)
	if err != nil {
		return models.OutputTarget{}, mapErr(err)
	}
	if uploadedAt.Valid {
		t.UploadedAt = &uploadedAt.Time
	}
	if lastUpdatedAt.Valid {
		t.LastUpdatedAt = &lastUpdatedAt.Time
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.TargetMeta); err != nil {
			return models.OutputTarget{}, mapErr(err)
		}
	}
	return t, nil
}

func (r *TargetRepo) Save(ctx context.Context, tc tenantctx.Context, target models.OutputTarget) error {
	meta, err := json.Marshal(target.TargetMeta)
	if err != nil {
		return mapErr(err)
	}
	now := time.Now()
	_, err = r.Conn.ExecContext(ctx, `
		UPDATE output_targets SET status = $1, failed = $2, retry_count = $3, target_meta = $4,
			uploaded_at = $5, last_updated_at = $6
		WHERE id = $7 AND recording_id IN (SELECT id FROM recordings WHERE tenant_id = $8)`,
		target.Status, target.Failed, target.RetryCount, meta, target.UploadedAt, now, target.ID, tc.TenantID)
	return mapErr(err)
}

// Create inserts a new Output Target row for recordingID, one per output
// config bound by the recording's matched template.
func (r *TargetRepo) Create(ctx context.Context, tc tenantctx.Context, recordingID string, platform models.Platform, presetID string) (models.OutputTarget, error) {
	t := models.OutputTarget{
		ID:             uuid.NewString(),
		RecordingID:    recordingID,
		TargetPlatform: platform,
		PresetID:       presetID,
		Status:         models.TargetNotUploaded,
	}
	_, err := r.Conn.ExecContext(ctx, `
		INSERT INTO output_targets (id, recording_id, target_platform, preset_id, status, failed, retry_count, target_meta)
		VALUES ($1, $2, $3, $4, $5, false, 0, '{}')`,
		t.ID, t.RecordingID, t.TargetPlatform, t.PresetID, t.Status)
	if err != nil {
		return models.OutputTarget{}, mapErr(err)
	}
	return t, nil
}
