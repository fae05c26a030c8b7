// Package scheduler implements the Scheduler (spec §4.9): it fires
// scheduled Automation Job runs, bucketed by wall-clock time, each run
// syncing new recordings, matching them to the job's template, and
// submitting matches to the Pipeline Executor.
package scheduler

import (
	"context"
	"time"

	"mediahub/internal/adapters"
	"mediahub/internal/audit"
	"mediahub/internal/errs"
	"mediahub/internal/pipeline"
	"mediahub/internal/template"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/logging"
	"mediahub/pkg/models"
)

const (
	minSyncDuration = 30 * 60
	minSyncBytes    = 40 * 1024 * 1024
)

// JobRepo is the persistence boundary for Automation Jobs.
type JobRepo interface {
	ListEnabledDue(ctx context.Context, before time.Time) ([]models.AutomationJob, error)
	Save(ctx context.Context, job models.AutomationJob) error
}

// SourceRepo lists a tenant's configured ingestion endpoints.
type SourceRepo interface {
	ListByTenant(ctx context.Context, tc tenantctx.Context) ([]models.Source, error)
}

// RecordingRepo is the persistence boundary for recordings the sync step
// discovers.
type RecordingRepo interface {
	ExistsBySourceKey(ctx context.Context, tc tenantctx.Context, sourceID, sourceKey string) (bool, error)
	Create(ctx context.Context, tc tenantctx.Context, rec models.Recording) (models.Recording, error)
}

// TenantRepo resolves the Tenant a job belongs to, for adapter calls that
// take the tenant record rather than just its id.
type TenantRepo interface {
	Get(ctx context.Context, tenantID string) (models.Tenant, error)
}

// PipelineRunner is the Pipeline Executor boundary the scheduler submits
// matched recordings to.
type PipelineRunner interface {
	Run(ctx context.Context, tc tenantctx.Context, recordingID string, progress pipeline.ProgressFunc) error
}

// Runner executes one Automation Job invocation end to end.
type Runner struct {
	Jobs       JobRepo
	Sources    SourceRepo
	Recordings RecordingRepo
	Tenants    TenantRepo
	Adapters   *adapters.Registry
	Matcher    *template.Matcher
	Pipeline   PipelineRunner
	Audit      *audit.Log
	Logger     logging.Logger
	Clock      func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

// RunOnce executes job exactly once (no retry loop): sync, match, submit.
// dryRun performs sync and matching but never creates pipeline runs or
// mutates quotas.
func (r *Runner) RunOnce(ctx context.Context, job models.AutomationJob, dryRun bool) (models.RunCounts, error) {
	tenant, err := r.Tenants.Get(ctx, job.TenantID)
	if err != nil {
		return models.RunCounts{}, err
	}
	tc := tenantctx.New(tenant)

	sources, err := r.Sources.ListByTenant(ctx, tc)
	if err != nil {
		return models.RunCounts{}, err
	}

	syncDays := job.Schedule.SyncDays
	if syncDays <= 0 {
		syncDays = 1
	}
	now := r.now()
	from := now.AddDate(0, 0, -syncDays)

	var counts models.RunCounts
	var newRecordings []models.Recording

	for _, src := range sources {
		adapter, err := r.Adapters.Source(src.Type)
		if err != nil {
			return counts, err
		}
		candidates, err := adapter.List(ctx, tenant, src, from, now)
		if err != nil {
			return counts, err
		}
		for _, cand := range candidates {
			exists, err := r.Recordings.ExistsBySourceKey(ctx, tc, src.ID, cand.SourceKey)
			if err != nil {
				return counts, err
			}
			if exists {
				continue
			}

			rec := models.Recording{
				TenantID:        tc.TenantID,
				SourceID:        src.ID,
				SourceType:      src.Type,
				DisplayName:     cand.DisplayName,
				StartTime:       cand.StartTime,
				DurationSeconds: cand.DurationSeconds,
				SizeBytes:       cand.SizeBytes,
				Status:          models.StatusInitialized,
			}
			if rec.DurationSeconds <= minSyncDuration || rec.SizeBytes <= minSyncBytes {
				rec.BlankRecord = true
			}

			created, err := r.Recordings.Create(ctx, tc, rec)
			if err != nil {
				return counts, err
			}
			counts.Synced++
			if !created.BlankRecord {
				newRecordings = append(newRecordings, created)
			}
		}
	}

	for _, rec := range newRecordings {
		tmpl, err := r.Matcher.BindRecording(ctx, tc, rec)
		if err != nil {
			return counts, err
		}
		if tmpl == nil || tmpl.ID != job.TemplateID {
			continue
		}
		counts.Processed++
		if dryRun {
			continue
		}
		if err := r.Pipeline.Run(ctx, tc, rec.ID, nil); err != nil {
			if r.Logger != nil {
				r.Logger.WithError(err).Warn("scheduled pipeline run failed")
			}
			continue
		}
		counts.Uploaded++
	}

	return counts, nil
}

// RunWithRetry runs job, retrying job-level failures up to
// schedule.retry.max_attempts times with exponential backoff
// (delay_seconds * 2^(attempt-1)), and always appends one Automation Run
// row summarizing the final outcome.
func (r *Runner) RunWithRetry(ctx context.Context, job models.AutomationJob, dryRun bool, sleep func(time.Duration)) models.AutomationRun {
	if sleep == nil {
		sleep = time.Sleep
	}
	started := r.now()
	run := models.AutomationRun{JobID: job.ID, StartedAt: started, Status: models.RunRunning, DryRun: dryRun}

	maxAttempts := job.Schedule.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	var counts models.RunCounts
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		counts, lastErr = r.RunOnce(ctx, job, dryRun)
		if lastErr == nil {
			break
		}
		if errs.Is(lastErr, errs.Cancelled) {
			break
		}
		run.RetryAttempt = attempt
		if attempt < maxAttempts && job.Schedule.Retry.DelaySeconds > 0 {
			delay := time.Duration(job.Schedule.Retry.DelaySeconds) * time.Second * (1 << uint(attempt-1))
			sleep(delay)
		}
	}

	completed := r.now()
	run.CompletedAt = &completed
	run.Counts = counts
	if lastErr != nil {
		run.Status = models.RunFailed
		run.Error = lastErr.Error()
	} else if dryRun {
		run.Status = models.RunSkipped
	} else {
		run.Status = models.RunSuccess
	}

	if r.Audit != nil {
		tc := tenantctx.Context{TenantID: job.TenantID}
		if err := r.Audit.RecordRun(ctx, tc, run); err != nil && r.Logger != nil {
			r.Logger.WithError(err).Warn("failed to record automation run")
		}
	}
	return run
}
