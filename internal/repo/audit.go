package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// AuditRepo implements audit.Repo over an append-only Postgres table pair,
// matching the teacher's write-only analytics ingestion style: rows are
// inserted and read, never updated or deleted.
type AuditRepo struct{ DB }

func NewAuditRepo(db DB) *AuditRepo { return &AuditRepo{DB: db} }

func (r *AuditRepo) AppendStage(ctx context.Context, tc tenantctx.Context, row models.ProcessingStage) error {
	row.ID = uuid.NewString()
	row.TenantID = tc.TenantID
	_, err := r.Conn.ExecContext(ctx, `
		INSERT INTO processing_stages (id, tenant_id, recording_id, stage, started_at, completed_at, duration_ms, progress, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.ID, row.TenantID, row.RecordingID, row.Stage, row.StartedAt, row.CompletedAt, row.DurationMS, row.Progress, row.Error)
	return mapErr(err)
}

func (r *AuditRepo) AppendRun(ctx context.Context, tc tenantctx.Context, row models.AutomationRun) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := r.Conn.ExecContext(ctx, `
		INSERT INTO automation_runs (id, job_id, started_at, completed_at, synced, processed, uploaded,
			error, retry_attempt, status, dry_run)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		row.ID, row.JobID, row.StartedAt, row.CompletedAt, row.Counts.Synced, row.Counts.Processed,
		row.Counts.Uploaded, row.Error, row.RetryAttempt, row.Status, row.DryRun)
	return mapErr(err)
}

func (r *AuditRepo) ListByRecording(ctx context.Context, tc tenantctx.Context, recordingID string) ([]models.ProcessingStage, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT ps.id, ps.tenant_id, ps.recording_id, ps.stage, ps.started_at, ps.completed_at,
			ps.duration_ms, ps.progress, ps.error
		FROM processing_stages ps WHERE ps.tenant_id = $1 AND ps.recording_id = $2 ORDER BY ps.started_at`,
		tc.TenantID, recordingID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return scanStages(rows)
}

func (r *AuditRepo) ListByTenant(ctx context.Context, tc tenantctx.Context, from, to time.Time) ([]models.ProcessingStage, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT id, tenant_id, recording_id, stage, started_at, completed_at, duration_ms, progress, error
		FROM processing_stages WHERE tenant_id = $1 AND started_at >= $2 AND started_at < $3 ORDER BY started_at`,
		tc.TenantID, from, to)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return scanStages(rows)
}

func scanStages(rows *sql.Rows) ([]models.ProcessingStage, error) {
	var out []models.ProcessingStage
	for rows.Next() {
		var s models.ProcessingStage
		var completedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.TenantID, &s.RecordingID, &s.Stage, &s.StartedAt, &completedAt, &s.DurationMS, &s.Progress, &s.Error); err != nil {
			return nil, mapErr(err)
		}
		if completedAt.Valid {
			s.CompletedAt = &completedAt.Time
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

func (r *AuditRepo) ListRunsByJob(ctx context.Context, tc tenantctx.Context, jobID string) ([]models.AutomationRun, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT ar.id, ar.job_id, ar.started_at, ar.completed_at, ar.synced, ar.processed, ar.uploaded,
			ar.error, ar.retry_attempt, ar.status, ar.dry_run
		FROM automation_runs ar
		JOIN automation_jobs aj ON aj.id = ar.job_id
		WHERE aj.tenant_id = $1 AND ar.job_id = $2 ORDER BY ar.started_at`, tc.TenantID, jobID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.AutomationRun
	for rows.Next() {
		var run models.AutomationRun
		var completedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.JobID, &run.StartedAt, &completedAt, &run.Counts.Synced,
			&run.Counts.Processed, &run.Counts.Uploaded, &run.Error, &run.RetryAttempt, &run.Status, &run.DryRun); err != nil {
			return nil, mapErr(err)
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		out = append(out, run)
	}
	return out, mapErr(rows.Err())
}
