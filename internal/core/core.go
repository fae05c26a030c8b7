// Package core is the programmatic API surface (spec §6) every HTTP
// handler, CLI command, and scheduled job calls through. It owns no
// transport concerns; it wires the Tenant Context, Credential Vault,
// Config Resolver, Template Matcher, Pipeline Executor, Quota Service,
// Scheduler, and Audit Log into the operations a caller actually needs.
package core

import (
	"context"
	"os"
	"time"

	"mediahub/internal/adapters"
	"mediahub/internal/audit"
	"mediahub/internal/errs"
	"mediahub/internal/fsm"
	"mediahub/internal/pipeline"
	"mediahub/internal/quota"
	"mediahub/internal/repo"
	"mediahub/internal/scheduler"
	"mediahub/internal/storage"
	"mediahub/internal/template"
	"mediahub/internal/tenantctx"
	"mediahub/internal/vault"
	"mediahub/pkg/logging"
	"mediahub/pkg/models"
	"mediahub/pkg/pagination"
	"mediahub/pkg/validation"
)

// RecordingStore is the subset of recording persistence core drives
// directly, beyond what pipeline/configresolver/template already depend
// on through their own narrower interfaces.
type RecordingStore interface {
	Get(ctx context.Context, tc tenantctx.Context, id string) (models.Recording, error)
	Save(ctx context.Context, tc tenantctx.Context, rec models.Recording) error
	Create(ctx context.Context, tc tenantctx.Context, rec models.Recording) (models.Recording, error)
	Delete(ctx context.Context, tc tenantctx.Context, id string) error
	List(ctx context.Context, tc tenantctx.Context, f repo.Filters, afterCreatedAt time.Time, afterID string, limit int) ([]models.Recording, error)
}

// TargetStore is the Output Target persistence boundary carried in
// Config; no operation in this package calls it.
type TargetStore interface {
	ListByRecording(ctx context.Context, tc tenantctx.Context, recordingID string) ([]models.OutputTarget, error)
	Create(ctx context.Context, tc tenantctx.Context, recordingID string, platform models.Platform, presetID string) (models.OutputTarget, error)
}

// TemplateStore is the persistence boundary for template CRUD.
type TemplateStore interface {
	Get(ctx context.Context, tc tenantctx.Context, id string) (models.Template, error)
	Upsert(ctx context.Context, tc tenantctx.Context, tmpl models.Template) (models.Template, error)
	Delete(ctx context.Context, tc tenantctx.Context, id string) error
}

// SourceStore is the persistence boundary for sources and output presets.
type SourceStore interface {
	ListByTenant(ctx context.Context, tc tenantctx.Context) ([]models.Source, error)
	Upsert(ctx context.Context, tc tenantctx.Context, src models.Source) (models.Source, error)
	UpsertPreset(ctx context.Context, tc tenantctx.Context, preset models.OutputPreset) (models.OutputPreset, error)
}

// JobStore is the persistence boundary for Automation Jobs beyond what
// the Scheduler/Runner already use to drive ticks.
type JobStore interface {
	Create(ctx context.Context, tenantID string, job models.AutomationJob) (models.AutomationJob, error)
	Get(ctx context.Context, tenantID, id string) (models.AutomationJob, error)
	Save(ctx context.Context, job models.AutomationJob) error
}

// Config bundles every collaborator the core needs.
type Config struct {
	Recordings RecordingStore
	Targets    TargetStore
	Templates  TemplateStore
	Sources    SourceStore
	Jobs       JobStore

	Vault     *vault.Vault
	Quota     *quota.Service
	Matcher   *template.Matcher
	Pipeline  *pipeline.Executor
	Audit     *audit.Log
	Adapters  *adapters.Registry
	Storage   storage.Builder
	Runner    *scheduler.Runner
	Logger    logging.Logger
	Validator *validation.Validator
}

// Core implements the §6 programmatic API.
type Core struct {
	cfg Config
}

func New(cfg Config) *Core {
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	return &Core{cfg: cfg}
}

// CreateRecording inserts a Recording discovered outside the normal sync
// flow (e.g. a direct upload from the caller) and runs it through the
// blank-record check.
func (c *Core) CreateRecording(ctx context.Context, tc tenantctx.Context, rec models.Recording) (models.Recording, error) {
	if err := tc.Require(models.PermCanProcessVideo); err != nil {
		return models.Recording{}, err
	}
	if rec.IsBlank() {
		rec.BlankRecord = true
	}
	created, err := c.cfg.Recordings.Create(ctx, tc, rec)
	if err != nil {
		return models.Recording{}, err
	}
	if created.BlankRecord {
		created = fsm.MarkSkipped(created)
		if err := c.cfg.Recordings.Save(ctx, tc, created); err != nil {
			return models.Recording{}, err
		}
	}
	return created, nil
}

// BindTemplate binds recordingID to templateID explicitly, bypassing
// rule matching (manual override).
func (c *Core) BindTemplate(ctx context.Context, tc tenantctx.Context, recordingID, templateID string) error {
	if err := tc.Require(models.PermCanCreateTemplates); err != nil {
		return err
	}
	rec, err := c.get(ctx, tc, recordingID)
	if err != nil {
		return err
	}
	rec.TemplateID = &templateID
	rec.IsMapped = true
	return c.cfg.Recordings.Save(ctx, tc, rec)
}

// RunPipeline submits recordingID to the Pipeline Executor.
func (c *Core) RunPipeline(ctx context.Context, tc tenantctx.Context, recordingID string, progress pipeline.ProgressFunc) error {
	if err := tc.Require(models.PermCanProcessVideo); err != nil {
		return err
	}
	if _, err := c.get(ctx, tc, recordingID); err != nil {
		return err
	}
	return c.cfg.Pipeline.Run(ctx, tc, recordingID, progress)
}

// RetryRecording clears the failed flag (respecting the retry budget) and
// resubmits to the Pipeline Executor, which resumes at failed_at_stage.
func (c *Core) RetryRecording(ctx context.Context, tc tenantctx.Context, recordingID string) error {
	if err := tc.Require(models.PermCanProcessVideo); err != nil {
		return err
	}
	rec, err := c.get(ctx, tc, recordingID)
	if err != nil {
		return err
	}
	retried, err := fsm.Retry(rec)
	if err != nil {
		return err
	}
	if err := c.cfg.Recordings.Save(ctx, tc, retried); err != nil {
		return err
	}
	return c.cfg.Pipeline.Run(ctx, tc, recordingID, nil)
}

// CancelRun marks an in-flight recording cancelled at its current stage.
// The executor itself detects ctx cancellation; this path covers a
// recording whose run already returned (e.g. crashed worker) but whose
// status needs reconciling to the rollback-plus-flag model.
func (c *Core) CancelRun(ctx context.Context, tc tenantctx.Context, recordingID string, now time.Time) error {
	rec, err := c.get(ctx, tc, recordingID)
	if err != nil {
		return err
	}
	stage, ok := fsm.NextStage(rec)
	if !ok {
		return errs.New(errs.Conflict, "recording has no in-flight stage to cancel")
	}
	cancelled, err := fsm.Cancel(rec, stage, now)
	if err != nil {
		return err
	}
	return c.cfg.Recordings.Save(ctx, tc, cancelled)
}

// DeleteRecording removes a Recording, its Output Targets, and its
// storage directory, then reconciles quota. Per §4.11/§8's deletion
// completeness property, storage_bytes decreases by exactly the
// pre-deletion sum regardless of how the bytes were accounted earlier.
func (c *Core) DeleteRecording(ctx context.Context, tc tenantctx.Context, recordingID string, sizeOnDisk int64) error {
	if err := tc.Require(models.PermCanDeleteRecordings); err != nil {
		return err
	}
	if _, err := c.get(ctx, tc, recordingID); err != nil {
		return err
	}
	if err := c.cfg.Recordings.Delete(ctx, tc, recordingID); err != nil {
		return err
	}
	if err := os.RemoveAll(c.cfg.Storage.RecordingDir(tc.TenantID, recordingID)); err != nil {
		return errs.Wrap(errs.Internal, "remove recording storage directory", err)
	}
	if sizeOnDisk > 0 {
		return c.cfg.Quota.TrackStorageRemoved(ctx, tc, sizeOnDisk)
	}
	return nil
}

// GetRecording fetches one recording, enforcing tenant ownership.
func (c *Core) GetRecording(ctx context.Context, tc tenantctx.Context, id string) (models.Recording, error) {
	return c.get(ctx, tc, id)
}

func (c *Core) get(ctx context.Context, tc tenantctx.Context, id string) (models.Recording, error) {
	rec, err := c.cfg.Recordings.Get(ctx, tc, id)
	if err != nil {
		return models.Recording{}, err
	}
	if err := tenantctx.CheckOwnership(tc, rec.TenantID); err != nil {
		return models.Recording{}, err
	}
	return rec, nil
}

// ListRecordingsPage is one page of ListRecordings, carrying the cursor
// for the next call.
type ListRecordingsPage struct {
	Recordings []models.Recording
	NextCursor string
}

// ListRecordings applies §6's filter shape with cursor pagination.
func (c *Core) ListRecordings(ctx context.Context, tc tenantctx.Context, f repo.Filters, cursor string, limit int) (ListRecordingsPage, error) {
	if limit <= 0 || limit > pagination.MaxLimit {
		limit = pagination.DefaultLimit
	}
	var afterCreatedAt time.Time
	var afterID string
	if cursor != "" {
		decoded, err := pagination.DecodeCursor(cursor)
		if err != nil {
			return ListRecordingsPage{}, errs.Wrap(errs.Validation, "invalid cursor", err)
		}
		if decoded != nil {
			afterCreatedAt = decoded.Timestamp
			afterID = decoded.ID
		}
	}

	recs, err := c.cfg.Recordings.List(ctx, tc, f, afterCreatedAt, afterID, limit)
	if err != nil {
		return ListRecordingsPage{}, err
	}

	page := ListRecordingsPage{Recordings: recs}
	if len(recs) == limit {
		last := recs[len(recs)-1]
		page.NextCursor = pagination.Cursor{Timestamp: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// CreateTemplate validates and stores a new Template.
func (c *Core) CreateTemplate(ctx context.Context, tc tenantctx.Context, tmpl models.Template) (models.Template, error) {
	if err := tc.Require(models.PermCanCreateTemplates); err != nil {
		return models.Template{}, err
	}
	if err := c.cfg.Validator.ValidateTemplate(tmpl); err != nil {
		return models.Template{}, errs.Wrap(errs.Validation, "invalid template", err)
	}
	tmpl.ID = ""
	tmpl.TenantID = tc.TenantID
	return c.cfg.Templates.Upsert(ctx, tc, tmpl)
}

// UpdateTemplate replaces an existing Template's config and rules.
func (c *Core) UpdateTemplate(ctx context.Context, tc tenantctx.Context, tmpl models.Template) (models.Template, error) {
	if err := tc.Require(models.PermCanCreateTemplates); err != nil {
		return models.Template{}, err
	}
	existing, err := c.cfg.Templates.Get(ctx, tc, tmpl.ID)
	if err != nil {
		return models.Template{}, err
	}
	if err := tenantctx.CheckOwnership(tc, existing.TenantID); err != nil {
		return models.Template{}, err
	}
	if err := c.cfg.Validator.ValidateTemplate(tmpl); err != nil {
		return models.Template{}, errs.Wrap(errs.Validation, "invalid template", err)
	}
	return c.cfg.Templates.Upsert(ctx, tc, tmpl)
}

// DeleteTemplate removes a Template and unmaps every recording bound to
// it, per §4.4's deletion side effect.
func (c *Core) DeleteTemplate(ctx context.Context, tc tenantctx.Context, id string) error {
	if err := tc.Require(models.PermCanCreateTemplates); err != nil {
		return err
	}
	if err := c.cfg.Matcher.OnTemplateDeleted(ctx, tc, id); err != nil {
		return err
	}
	return c.cfg.Templates.Delete(ctx, tc, id)
}

// RematchTemplate re-evaluates recordings against the current template
// set. onlyUnmapped limits the scan to currently-unbound recordings.
func (c *Core) RematchTemplate(ctx context.Context, tc tenantctx.Context, onlyUnmapped bool) (int, error) {
	return c.cfg.Matcher.Rematch(ctx, tc, onlyUnmapped)
}

// PutCredential encrypts and stores a new credential.
func (c *Core) PutCredential(ctx context.Context, tc tenantctx.Context, platform models.Platform, accountKey, plaintext string, metadata models.JSONB) (string, error) {
	if err := tc.Require(models.PermCanManageCredentials); err != nil {
		return "", err
	}
	return c.cfg.Vault.Put(ctx, tc, platform, accountKey, plaintext, metadata)
}

// RevokeCredential deletes a stored credential.
func (c *Core) RevokeCredential(ctx context.Context, tc tenantctx.Context, id string) error {
	if err := tc.Require(models.PermCanManageCredentials); err != nil {
		return err
	}
	return c.cfg.Vault.Delete(ctx, tc, id)
}

// UpsertSource creates or updates a configured ingestion endpoint.
func (c *Core) UpsertSource(ctx context.Context, tc tenantctx.Context, src models.Source) (models.Source, error) {
	if err := c.cfg.Validator.ValidateSource(src); err != nil {
		return models.Source{}, errs.Wrap(errs.Validation, "invalid source", err)
	}
	return c.cfg.Sources.Upsert(ctx, tc, src)
}

// UpsertPreset creates or updates a reusable output preset.
func (c *Core) UpsertPreset(ctx context.Context, tc tenantctx.Context, preset models.OutputPreset) (models.OutputPreset, error) {
	if err := tc.Require(models.PermCanUpload); err != nil {
		return models.OutputPreset{}, err
	}
	if err := c.cfg.Validator.ValidatePreset(preset); err != nil {
		return models.OutputPreset{}, errs.Wrap(errs.Validation, "invalid preset", err)
	}
	return c.cfg.Sources.UpsertPreset(ctx, tc, preset)
}

// RunSync manually triggers one Automation Job's sync+match+submit cycle
// outside its normal schedule.
func (c *Core) RunSync(ctx context.Context, tc tenantctx.Context, jobID string) (models.RunCounts, error) {
	job, err := c.cfg.Jobs.Get(ctx, tc.TenantID, jobID)
	if err != nil {
		return models.RunCounts{}, err
	}
	return c.cfg.Runner.RunOnce(ctx, job, false)
}

// UpsertAutomationJob creates or updates a scheduled job, computing its
// first next_run from the schedule descriptor.
func (c *Core) UpsertAutomationJob(ctx context.Context, tc tenantctx.Context, job models.AutomationJob, now time.Time) (models.AutomationJob, error) {
	if err := c.cfg.Validator.ValidateSchedule(job.Schedule); err != nil {
		return models.AutomationJob{}, errs.Wrap(errs.Validation, "invalid schedule", err)
	}
	next, err := scheduler.NextRun(job.Schedule, now)
	if err != nil {
		return models.AutomationJob{}, err
	}
	job.NextRun = next
	if job.ID == "" {
		return c.cfg.Jobs.Create(ctx, tc.TenantID, job)
	}
	if err := c.cfg.Jobs.Save(ctx, job); err != nil {
		return models.AutomationJob{}, err
	}
	return job, nil
}

// DryRunAutomationJob runs sync+match without submitting to the Pipeline
// Executor or mutating quota, reporting what would be processed.
func (c *Core) DryRunAutomationJob(ctx context.Context, tc tenantctx.Context, jobID string) (models.RunCounts, error) {
	job, err := c.cfg.Jobs.Get(ctx, tc.TenantID, jobID)
	if err != nil {
		return models.RunCounts{}, err
	}
	return c.cfg.Runner.RunOnce(ctx, job, true)
}
