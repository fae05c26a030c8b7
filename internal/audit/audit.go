// Package audit implements the append-only Audit/Run Log (spec §4.12).
// It is not a source of truth for FSM state; it exists for observability
// and support, queryable by tenant, recording, and time window.
package audit

import (
	"context"
	"time"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// Repo is the persistence boundary for append-only rows. Implementations
// must never update or delete a row once written.
type Repo interface {
	AppendStage(ctx context.Context, tc tenantctx.Context, row models.ProcessingStage) error
	AppendRun(ctx context.Context, tc tenantctx.Context, row models.AutomationRun) error
	ListByRecording(ctx context.Context, tc tenantctx.Context, recordingID string) ([]models.ProcessingStage, error)
	ListByTenant(ctx context.Context, tc tenantctx.Context, from, to time.Time) ([]models.ProcessingStage, error)
	ListRunsByJob(ctx context.Context, tc tenantctx.Context, jobID string) ([]models.AutomationRun, error)
}

// Log is the Audit/Run Log.
type Log struct {
	repo Repo
}

func New(repo Repo) *Log { return &Log{repo: repo} }

// RecordStage appends one pipeline-stage attempt row.
func (l *Log) RecordStage(ctx context.Context, tc tenantctx.Context, recordingID string, stage models.Stage, startedAt, completedAt time.Time, progress int, stageErr error) error {
	row := models.ProcessingStage{
		TenantID:    tc.TenantID,
		RecordingID: recordingID,
		Stage:       stage,
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
		DurationMS:  completedAt.Sub(startedAt).Milliseconds(),
		Progress:    progress,
	}
	if stageErr != nil {
		row.Error = stageErr.Error()
	}
	return l.repo.AppendStage(ctx, tc, row)
}

// RecordRun appends one Automation Run summary row.
func (l *Log) RecordRun(ctx context.Context, tc tenantctx.Context, run models.AutomationRun) error {
	return l.repo.AppendRun(ctx, tc, run)
}

// ForRecording returns every stage attempt recorded for one recording,
// in the order they were written.
func (l *Log) ForRecording(ctx context.Context, tc tenantctx.Context, recordingID string) ([]models.ProcessingStage, error) {
	return l.repo.ListByRecording(ctx, tc, recordingID)
}

// ForTenant returns every stage attempt in [from, to) for tc's tenant.
func (l *Log) ForTenant(ctx context.Context, tc tenantctx.Context, from, to time.Time) ([]models.ProcessingStage, error) {
	return l.repo.ListByTenant(ctx, tc, from, to)
}

// RunsForJob returns every Automation Run recorded for one job.
func (l *Log) RunsForJob(ctx context.Context, tc tenantctx.Context, jobID string) ([]models.AutomationRun, error) {
	return l.repo.ListRunsByJob(ctx, tc, jobID)
}
