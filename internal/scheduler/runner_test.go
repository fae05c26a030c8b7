package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"mediahub/internal/adapters"
	"mediahub/internal/audit"
	"mediahub/internal/pipeline"
	"mediahub/internal/template"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

type fakeTenantRepo struct{ tenant models.Tenant }

func (f fakeTenantRepo) Get(_ context.Context, _ string) (models.Tenant, error) { return f.tenant, nil }

type fakeSourceRepo struct{ sources []models.Source }

func (f fakeSourceRepo) ListByTenant(_ context.Context, _ tenantctx.Context) ([]models.Source, error) {
	return f.sources, nil
}

type fakeRecordingRepo struct {
	mu      sync.Mutex
	created []models.Recording
	seen    map[string]bool
	nextID  int
}

func newFakeRecordingRepo() *fakeRecordingRepo {
	return &fakeRecordingRepo{seen: map[string]bool{}}
}

func (f *fakeRecordingRepo) ExistsBySourceKey(_ context.Context, _ tenantctx.Context, sourceID, sourceKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[sourceID+"/"+sourceKey], nil
}

func (f *fakeRecordingRepo) Create(_ context.Context, _ tenantctx.Context, rec models.Recording) (models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = "rec-auto"
	f.created = append(f.created, rec)
	return rec, nil
}

type fakeSource struct{ candidates []adapters.RecordingCandidate }

func (f fakeSource) List(_ context.Context, _ models.Tenant, _ models.Source, _, _ time.Time) ([]adapters.RecordingCandidate, error) {
	return f.candidates, nil
}

func (f fakeSource) Fetch(_ context.Context, _ models.Tenant, _ models.Source, _ adapters.RecordingCandidate, _ string, _ adapters.ProgressFunc) error {
	return nil
}

type fakeTemplateRepo struct {
	templates []models.Template
}

func (f fakeTemplateRepo) ListActive(_ context.Context, _ tenantctx.Context) ([]models.Template, error) {
	return f.templates, nil
}
func (f fakeTemplateRepo) BindTemplate(_ context.Context, _ tenantctx.Context, _, _ string) error {
	return nil
}
func (f fakeTemplateRepo) Unbind(_ context.Context, _ tenantctx.Context, _ string) error { return nil }
func (f fakeTemplateRepo) ListUnmapped(_ context.Context, _ tenantctx.Context) ([]models.Recording, error) {
	return nil, nil
}
func (f fakeTemplateRepo) ListBoundTo(_ context.Context, _ tenantctx.Context, _ string) ([]models.Recording, error) {
	return nil, nil
}
func (f fakeTemplateRepo) ListAll(_ context.Context, _ tenantctx.Context) ([]models.Recording, error) {
	return nil, nil
}

type fakePipelineRunner struct {
	mu   sync.Mutex
	runs []string
	err  error
}

func (f *fakePipelineRunner) Run(_ context.Context, _ tenantctx.Context, recordingID string, _ pipeline.ProgressFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, recordingID)
	return f.err
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	runs []models.AutomationRun
}

func (f *fakeAuditRepo) AppendStage(_ context.Context, _ tenantctx.Context, _ models.ProcessingStage) error {
	return nil
}
func (f *fakeAuditRepo) AppendRun(_ context.Context, _ tenantctx.Context, row models.AutomationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, row)
	return nil
}
func (f *fakeAuditRepo) ListByRecording(_ context.Context, _ tenantctx.Context, _ string) ([]models.ProcessingStage, error) {
	return nil, nil
}
func (f *fakeAuditRepo) ListByTenant(_ context.Context, _ tenantctx.Context, _, _ time.Time) ([]models.ProcessingStage, error) {
	return nil, nil
}
func (f *fakeAuditRepo) ListRunsByJob(_ context.Context, _ tenantctx.Context, _ string) ([]models.AutomationRun, error) {
	return nil, nil
}

func TestRunOnceSyncsMatchesAndSubmitsToPipeline(t *testing.T) {
	tenant := models.Tenant{ID: "tenant-1"}
	source := models.Source{ID: "src-1", TenantID: "tenant-1", Type: models.SourceTypeConferencing}
	templateID := "tmpl-1"

	registry := adapters.NewRegistry()
	registry.RegisterSource(models.SourceTypeConferencing, fakeSource{candidates: []adapters.RecordingCandidate{
		{SourceKey: "ext-1", DisplayName: "Weekly Sync", StartTime: time.Now(), DurationSeconds: 3600, SizeBytes: 100 * 1024 * 1024},
	}})

	matcher := template.New(fakeTemplateRepo{templates: []models.Template{
		{ID: templateID, Status: models.TemplateActive, Rules: []models.MatchingRule{
			{MatchType: models.MatchContains, Pattern: "weekly"},
		}},
	}})

	recordings := newFakeRecordingRepo()
	pipelineRunner := &fakePipelineRunner{}

	runner := &Runner{
		Jobs:       nil,
		Sources:    fakeSourceRepo{sources: []models.Source{source}},
		Recordings: recordings,
		Tenants:    fakeTenantRepo{tenant: tenant},
		Adapters:   registry,
		Matcher:    matcher,
		Pipeline:   pipelineRunner,
		Clock:      func() time.Time { return time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC) },
	}

	job := models.AutomationJob{ID: "job-1", TenantID: "tenant-1", TemplateID: templateID, Enabled: true}
	counts, err := runner.RunOnce(context.Background(), job, false)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if counts.Synced != 1 {
		t.Fatalf("expected 1 synced, got %d", counts.Synced)
	}
	if counts.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", counts.Processed)
	}
	if counts.Uploaded != 1 {
		t.Fatalf("expected 1 uploaded, got %d", counts.Uploaded)
	}
	if len(pipelineRunner.runs) != 1 {
		t.Fatalf("expected pipeline to be invoked once, got %d", len(pipelineRunner.runs))
	}
}

func TestRunOnceDryRunNeverSubmitsToPipeline(t *testing.T) {
	tenant := models.Tenant{ID: "tenant-1"}
	source := models.Source{ID: "src-1", TenantID: "tenant-1", Type: models.SourceTypeConferencing}
	templateID := "tmpl-1"

	registry := adapters.NewRegistry()
	registry.RegisterSource(models.SourceTypeConferencing, fakeSource{candidates: []adapters.RecordingCandidate{
		{SourceKey: "ext-2", DisplayName: "Weekly Sync", StartTime: time.Now(), DurationSeconds: 3600, SizeBytes: 100 * 1024 * 1024},
	}})
	matcher := template.New(fakeTemplateRepo{templates: []models.Template{
		{ID: templateID, Status: models.TemplateActive, Rules: []models.MatchingRule{
			{MatchType: models.MatchContains, Pattern: "weekly"},
		}},
	}})
	recordings := newFakeRecordingRepo()
	pipelineRunner := &fakePipelineRunner{}

	runner := &Runner{
		Sources:    fakeSourceRepo{sources: []models.Source{source}},
		Recordings: recordings,
		Tenants:    fakeTenantRepo{tenant: tenant},
		Adapters:   registry,
		Matcher:    matcher,
		Pipeline:   pipelineRunner,
		Clock:      func() time.Time { return time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC) },
	}

	job := models.AutomationJob{ID: "job-2", TenantID: "tenant-1", TemplateID: templateID, Enabled: true}
	counts, err := runner.RunOnce(context.Background(), job, true)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if counts.Processed != 1 || len(pipelineRunner.runs) != 0 {
		t.Fatalf("expected dry run to match but not submit, got counts=%+v runs=%v", counts, pipelineRunner.runs)
	}
}

func TestRunOnceBlankRecordingNeverMatched(t *testing.T) {
	tenant := models.Tenant{ID: "tenant-1"}
	source := models.Source{ID: "src-1", TenantID: "tenant-1", Type: models.SourceTypeConferencing}

	registry := adapters.NewRegistry()
	registry.RegisterSource(models.SourceTypeConferencing, fakeSource{candidates: []adapters.RecordingCandidate{
		{SourceKey: "ext-3", DisplayName: "Tiny clip", StartTime: time.Now(), DurationSeconds: 60, SizeBytes: 1024},
	}})
	matcher := template.New(fakeTemplateRepo{})
	recordings := newFakeRecordingRepo()
	pipelineRunner := &fakePipelineRunner{}

	runner := &Runner{
		Sources:    fakeSourceRepo{sources: []models.Source{source}},
		Recordings: recordings,
		Tenants:    fakeTenantRepo{tenant: tenant},
		Adapters:   registry,
		Matcher:    matcher,
		Pipeline:   pipelineRunner,
		Clock:      func() time.Time { return time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC) },
	}

	job := models.AutomationJob{ID: "job-3", TenantID: "tenant-1", TemplateID: "tmpl-x", Enabled: true}
	counts, err := runner.RunOnce(context.Background(), job, false)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if counts.Synced != 1 || counts.Processed != 0 {
		t.Fatalf("expected blank recording synced but never matched, got %+v", counts)
	}
	if len(recordings.created) != 1 || !recordings.created[0].BlankRecord {
		t.Fatalf("expected stored recording flagged blank, got %+v", recordings.created)
	}
}

func TestRunWithRetryRetriesUpToMaxAttemptsThenRecordsFailure(t *testing.T) {
	tenant := models.Tenant{ID: "tenant-1"}
	registry := adapters.NewRegistry()
	registry.RegisterSource(models.SourceTypeConferencing, fakeSource{})
	matcher := template.New(fakeTemplateRepo{})
	auditRepo := &fakeAuditRepo{}

	attempts := 0
	runner := &Runner{
		Sources: failingSourceRepo{fn: func() error { attempts++; return errBoom }},
		Recordings: newFakeRecordingRepo(),
		Tenants:    fakeTenantRepo{tenant: tenant},
		Adapters:   registry,
		Matcher:    matcher,
		Pipeline:   &fakePipelineRunner{},
		Audit:      audit.New(auditRepo),
		Clock:      func() time.Time { return time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC) },
	}

	job := models.AutomationJob{
		ID: "job-4", TenantID: "tenant-1", TemplateID: "tmpl-x", Enabled: true,
		Schedule: models.ScheduleDescriptor{Retry: models.RetryPolicy{MaxAttempts: 3, DelaySeconds: 1}},
	}

	var slept []time.Duration
	run := runner.RunWithRetry(context.Background(), job, false, func(d time.Duration) { slept = append(slept, d) })

	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if run.Status != models.RunFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 backoff sleeps between 3 attempts, got %d", len(slept))
	}
	if slept[0] != 1*time.Second || slept[1] != 2*time.Second {
		t.Fatalf("expected exponential backoff 1s,2s got %v", slept)
	}
	if len(auditRepo.runs) != 1 {
		t.Fatalf("expected one automation run recorded, got %d", len(auditRepo.runs))
	}
}

type failingSourceRepo struct{ fn func() error }

func (f failingSourceRepo) ListByTenant(_ context.Context, _ tenantctx.Context) ([]models.Source, error) {
	return nil, f.fn()
}

var errBoom = fakeErr("sync failed")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
