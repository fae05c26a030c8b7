package repo

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// RecordingRepo backs every Recording-shaped persistence boundary in the
// core packages: configresolver.RecordingRepo, pipeline.RecordingRepo,
// scheduler.RecordingRepo, and the recording-facing half of
// template.Repo. One concrete type satisfies all four interfaces.
type RecordingRepo struct{ DB }

func NewRecordingRepo(db DB) *RecordingRepo { return &RecordingRepo{DB: db} }

func (r *RecordingRepo) scanRow(row interface{ Scan(...interface{}) error }) (models.Recording, error) {
	var rec models.Recording
	var templateID sql.NullString
	var failedAtStage sql.NullString
	var failedAt sql.NullTime
	var expireAt sql.NullTime
	var effectiveConfig, override []byte

	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.SourceID, &rec.SourceType, &templateID, &rec.IsMapped,
		&rec.DisplayName, &rec.StartTime, &rec.DurationSeconds, &rec.SizeBytes,
		&rec.Status, &rec.Failed, &failedAtStage, &rec.FailedReason, &failedAt, &rec.RetryCount,
		&rec.BlankRecord, &rec.TopicsVersion, &effectiveConfig, &override, &expireAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return models.Recording{}, mapErr(err)
	}
	if templateID.Valid {
		rec.TemplateID = &templateID.String
	}
	if failedAtStage.Valid {
		stage := models.Stage(failedAtStage.String)
		rec.FailedAtStage = &stage
	}
	if failedAt.Valid {
		rec.FailedAt = &failedAt.Time
	}
	if expireAt.Valid {
		rec.ExpireAt = &expireAt.Time
	}
	rec.EffectiveConfig, err = unmarshalJSONB(effectiveConfig)
	if err != nil {
		return models.Recording{}, err
	}
	rec.PerRecordingOverride, err = unmarshalJSONB(override)
	if err != nil {
		return models.Recording{}, err
	}
	return rec, nil
}

const recordingColumns = `
	id, tenant_id, source_id, source_type, template_id, is_mapped,
	display_name, start_time, duration_seconds, size_bytes,
	status, failed, failed_at_stage, failed_reason, failed_at, retry_count,
	blank_record, topics_version, effective_config, per_recording_override, expire_at,
	created_at, updated_at`

func (r *RecordingRepo) Get(ctx context.Context, tc tenantctx.Context, id string) (models.Recording, error) {
	row := r.Conn.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE tenant_id = $1 AND id = $2`, tc.TenantID, id)
	return r.scanRow(row)
}

func (r *RecordingRepo) Save(ctx context.Context, tc tenantctx.Context, rec models.Recording) error {
	effectiveConfig, err := marshalJSONB(rec.EffectiveConfig)
	if err != nil {
		return err
	}
	override, err := marshalJSONB(rec.PerRecordingOverride)
	if err != nil {
		return err
	}
	_, err = r.Conn.ExecContext(ctx, `
		UPDATE recordings SET
			template_id = $1, is_mapped = $2, status = $3, failed = $4, failed_at_stage = $5,
			failed_reason = $6, failed_at = $7, retry_count = $8, blank_record = $9,
			topics_version = $10, effective_config = $11, per_recording_override = $12,
			expire_at = $13, updated_at = now()
		WHERE tenant_id = $14 AND id = $15`,
		rec.TemplateID, rec.IsMapped, rec.Status, rec.Failed, rec.FailedAtStage,
		rec.FailedReason, rec.FailedAt, rec.RetryCount, rec.BlankRecord,
		rec.TopicsVersion, effectiveConfig, override, rec.ExpireAt, tc.TenantID, rec.ID)
	return mapErr(err)
}

func (r *RecordingRepo) SetOverride(ctx context.Context, tc tenantctx.Context, recordingID string, override models.JSONB) error {
	raw, err := marshalJSONB(override)
	if err != nil {
		return err
	}
	_, err = r.Conn.ExecContext(ctx, `
		UPDATE recordings SET per_recording_override = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`,
		raw, tc.TenantID, recordingID)
	return mapErr(err)
}

func (r *RecordingRepo) SetSnapshot(ctx context.Context, tc tenantctx.Context, recordingID string, snapshot models.JSONB) error {
	raw, err := marshalJSONB(snapshot)
	if err != nil {
		return err
	}
	_, err = r.Conn.ExecContext(ctx, `
		UPDATE recordings SET effective_config = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`,
		raw, tc.TenantID, recordingID)
	return mapErr(err)
}

func (r *RecordingRepo) ExistsBySourceKey(ctx context.Context, tc tenantctx.Context, sourceID, sourceKey string) (bool, error) {
	var exists bool
	err := r.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM source_metadata sm JOIN recordings rec ON rec.id = sm.recording_id
			WHERE rec.tenant_id = $1 AND sm.source_key = $2 AND rec.source_id = $3)`,
		tc.TenantID, sourceKey, sourceID).Scan(&exists)
	return exists, mapErr(err)
}

func (r *RecordingRepo) Create(ctx context.Context, tc tenantctx.Context, rec models.Recording) (models.Recording, error) {
	rec.ID = uuid.NewString()
	rec.TenantID = tc.TenantID
	if rec.Status == "" {
		rec.Status = models.StatusInitialized
	}
	_, err := r.Conn.ExecContext(ctx, `
		INSERT INTO recordings (id, tenant_id, source_id, source_type, display_name, start_time,
			duration_seconds, size_bytes, status, blank_record, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`,
		rec.ID, rec.TenantID, rec.SourceID, rec.SourceType, rec.DisplayName, rec.StartTime,
		rec.DurationSeconds, rec.SizeBytes, rec.Status, rec.BlankRecord)
	if err != nil {
		return models.Recording{}, mapErr(err)
	}
	return rec, nil
}

func (r *RecordingRepo) queryList(ctx context.Context, query string, args ...interface{}) ([]models.Recording, error) {
	rows, err := r.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []models.Recording
	for rows.Next() {
		rec, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, mapErr(rows.Err())
}

func (r *RecordingRepo) ListUnmapped(ctx context.Context, tc tenantctx.Context) ([]models.Recording, error) {
	return r.queryList(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE tenant_id = $1 AND is_mapped = false ORDER BY created_at`, tc.TenantID)
}

func (r *RecordingRepo) ListBoundTo(ctx context.Context, tc tenantctx.Context, templateID string) ([]models.Recording, error) {
	return r.queryList(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE tenant_id = $1 AND template_id = $2 ORDER BY created_at`, tc.TenantID, templateID)
}

func (r *RecordingRepo) ListAll(ctx context.Context, tc tenantctx.Context) ([]models.Recording, error) {
	return r.queryList(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE tenant_id = $1 ORDER BY created_at`, tc.TenantID)
}

func (r *RecordingRepo) BindTemplate(ctx context.Context, tc tenantctx.Context, recordingID, templateID string) error {
	_, err := r.Conn.ExecContext(ctx, `
		UPDATE recordings SET template_id = $1, is_mapped = true, updated_at = now() WHERE tenant_id = $2 AND id = $3`,
		templateID, tc.TenantID, recordingID)
	return mapErr(err)
}

func (r *RecordingRepo) Unbind(ctx context.Context, tc tenantctx.Context, recordingID string) error {
	_, err := r.Conn.ExecContext(ctx, `
		UPDATE recordings SET template_id = NULL, is_mapped = false, updated_at = now() WHERE tenant_id = $1 AND id = $2`,
		tc.TenantID, recordingID)
	return mapErr(err)
}

// Filters narrows ListRecordings per spec §6's filter shape. Zero values
// mean "don't filter on this field" except Statuses, which is matched
// with ANY() and so is simply empty when unset.
type Filters struct {
	Statuses       []models.Status
	Failed         *bool
	BlankRecord    *bool
	TemplateID     string
	SourceID       string
	IsMapped       *bool
	FromDate       time.Time
	ToDate         time.Time
	DisplayNameLike string
}

// List applies cursor pagination plus Filters for the §6 ListRecordings
// operation. Conditions are appended one at a time rather than built with
// a query-builder library, matching the hand-rolled SQL the rest of this
// package (and the teacher) writes.
func (r *RecordingRepo) List(ctx context.Context, tc tenantctx.Context, f Filters, afterCreatedAt time.Time, afterID string, limit int) ([]models.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE tenant_id = $1 AND (created_at, id) > ($2, $3)`
	args := []interface{}{tc.TenantID, afterCreatedAt, afterID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		query += " AND status = ANY(" + arg(pq.Array(statuses)) + ")"
	}
	if f.Failed != nil {
		query += " AND failed = " + arg(*f.Failed)
	}
	if f.BlankRecord != nil {
		query += " AND blank_record = " + arg(*f.BlankRecord)
	}
	if f.TemplateID != "" {
		query += " AND template_id = " + arg(f.TemplateID)
	}
	if f.SourceID != "" {
		query += " AND source_id = " + arg(f.SourceID)
	}
	if f.IsMapped != nil {
		query += " AND is_mapped = " + arg(*f.IsMapped)
	}
	if !f.FromDate.IsZero() {
		query += " AND start_time >= " + arg(f.FromDate)
	}
	if !f.ToDate.IsZero() {
		query += " AND start_time < " + arg(f.ToDate)
	}
	if f.DisplayNameLike != "" {
		query += " AND display_name ILIKE " + arg("%"+f.DisplayNameLike+"%")
	}

	query += " ORDER BY created_at, id LIMIT " + arg(limit)
	return r.queryList(ctx, query, args...)
}

func (r *RecordingRepo) Delete(ctx context.Context, tc tenantctx.Context, id string) error {
	_, err := r.Conn.ExecContext(ctx, `DELETE FROM recordings WHERE tenant_id = $1 AND id = $2`, tc.TenantID, id)
	return mapErr(err)
}
