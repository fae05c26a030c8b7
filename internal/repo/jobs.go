package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"mediahub/pkg/models"
)

// JobRepo implements scheduler.JobRepo over Postgres.
type JobRepo struct{ DB }

func NewJobRepo(db DB) *JobRepo { return &JobRepo{DB: db} }

func (r *JobRepo) ListEnabledDue(ctx context.Context, before time.Time) ([]models.AutomationJob, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT id, tenant_id, template_id, schedule, enabled, last_run, next_run, last_status
		FROM automation_jobs WHERE enabled = true AND next_run <= $1`, before)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.AutomationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, mapErr(rows.Err())
}

func scanJob(row interface{ Scan(...interface{}) error }) (models.AutomationJob, error) {
	var job models.AutomationJob
	var schedule []byte
	var lastRun sql.NullTime
	err := row.Scan(&job.ID, &job.TenantID, &job.TemplateID, &schedule, &job.Enabled, &lastRun, &job.NextRun, &job.LastStatus)
	if err != nil {
		return models.AutomationJob{}, mapErr(err)
	}
	if lastRun.Valid {
		job.LastRun = &lastRun.Time
	}
	if len(schedule) > 0 {
		if err := unmarshalInto(schedule, &job.Schedule); err != nil {
			return models.AutomationJob{}, err
		}
	}
	return job, nil
}

func (r *JobRepo) Save(ctx context.Context, job models.AutomationJob) error {
	schedule, err := marshalAny(job.Schedule)
	if err != nil {
		return err
	}
	_, err = r.Conn.ExecContext(ctx, `
		UPDATE automation_jobs SET template_id = $1, schedule = $2, enabled = $3, last_run = $4,
			next_run = $5, last_status = $6 WHERE id = $7`,
		job.TemplateID, schedule, job.Enabled, job.LastRun, job.NextRun, job.LastStatus, job.ID)
	return mapErr(err)
}

// Create inserts a new Automation Job, used by the §6 UpsertAutomationJob
// operation when no id is supplied.
func (r *JobRepo) Create(ctx context.Context, tenantID string, job models.AutomationJob) (models.AutomationJob, error) {
	job.ID = uuid.NewString()
	job.TenantID = tenantID
	schedule, err := marshalAny(job.Schedule)
	if err != nil {
		return models.AutomationJob{}, err
	}
	_, err = r.Conn.ExecContext(ctx, `
		INSERT INTO automation_jobs (id, tenant_id, template_id, schedule, enabled, next_run, last_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.TenantID, job.TemplateID, schedule, job.Enabled, job.NextRun, job.LastStatus)
	if err != nil {
		return models.AutomationJob{}, mapErr(err)
	}
	return job, nil
}

func (r *JobRepo) Get(ctx context.Context, tenantID, id string) (models.AutomationJob, error) {
	row := r.Conn.QueryRowContext(ctx, `
		SELECT id, tenant_id, template_id, schedule, enabled, last_run, next_run, last_status
		FROM automation_jobs WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanJob(row)
}

func (r *JobRepo) ListByTenant(ctx context.Context, tenantID string) ([]models.AutomationJob, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT id, tenant_id, template_id, schedule, enabled, last_run, next_run, last_status
		FROM automation_jobs WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []models.AutomationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, mapErr(rows.Err())
}
