package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mediahub/internal/errs"
	"mediahub/internal/repo"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

type fakeRecordingStore struct {
	recs map[string]models.Recording
	next int
}

func newFakeRecordingStore() *fakeRecordingStore {
	return &fakeRecordingStore{recs: map[string]models.Recording{}}
}

func (f *fakeRecordingStore) Get(_ context.Context, _ tenantctx.Context, id string) (models.Recording, error) {
	rec, ok := f.recs[id]
	if !ok {
		return models.Recording{}, errs.New(errs.NotFound, "not found")
	}
	return rec, nil
}

func (f *fakeRecordingStore) Save(_ context.Context, _ tenantctx.Context, rec models.Recording) error {
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeRecordingStore) Create(_ context.Context, tc tenantctx.Context, rec models.Recording) (models.Recording, error) {
	f.next++
	rec.ID = fmt.Sprintf("rec-%d", f.next)
	rec.TenantID = tc.TenantID
	f.recs[rec.ID] = rec
	return rec, nil
}

func (f *fakeRecordingStore) Delete(_ context.Context, _ tenantctx.Context, id string) error {
	delete(f.recs, id)
	return nil
}

func (f *fakeRecordingStore) List(_ context.Context, tc tenantctx.Context, _ repo.Filters, _ time.Time, _ string, limit int) ([]models.Recording, error) {
	var out []models.Recording
	for _, r := range f.recs {
		if r.TenantID == tc.TenantID {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeTemplateStore struct {
	tmpls map[string]models.Template
}

func (f *fakeTemplateStore) Get(_ context.Context, _ tenantctx.Context, id string) (models.Template, error) {
	t, ok := f.tmpls[id]
	if !ok {
		return models.Template{}, errs.New(errs.NotFound, "not found")
	}
	return t, nil
}

func (f *fakeTemplateStore) Upsert(_ context.Context, _ tenantctx.Context, tmpl models.Template) (models.Template, error) {
	if tmpl.ID == "" {
		tmpl.ID = "tmpl-1"
	}
	if f.tmpls == nil {
		f.tmpls = map[string]models.Template{}
	}
	f.tmpls[tmpl.ID] = tmpl
	return tmpl, nil
}

func (f *fakeTemplateStore) Delete(_ context.Context, _ tenantctx.Context, id string) error {
	delete(f.tmpls, id)
	return nil
}

type fakeJobStore struct {
	jobs map[string]models.AutomationJob
}

func (f *fakeJobStore) Create(_ context.Context, tenantID string, job models.AutomationJob) (models.AutomationJob, error) {
	job.ID = "job-1"
	job.TenantID = tenantID
	if f.jobs == nil {
		f.jobs = map[string]models.AutomationJob{}
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobStore) Get(_ context.Context, _, id string) (models.AutomationJob, error) {
	j, ok := f.jobs[id]
	if !ok {
		return models.AutomationJob{}, errs.New(errs.NotFound, "not found")
	}
	return j, nil
}

func (f *fakeJobStore) Save(_ context.Context, job models.AutomationJob) error {
	f.jobs[job.ID] = job
	return nil
}

func fullPermsContext(tenantID string) tenantctx.Context {
	return tenantctx.Context{
		TenantID: tenantID,
		Permissions: map[models.Permission]bool{
			models.PermCanProcessVideo:     true,
			models.PermCanCreateTemplates:  true,
			models.PermCanDeleteRecordings: true,
			models.PermCanUpload:           true,
			models.PermCanManageCredentials: true,
		},
	}
}

func TestCreateRecordingMarksBlankSkipped(t *testing.T) {
	recordings := newFakeRecordingStore()
	c := New(Config{Recordings: recordings})
	tc := fullPermsContext("tenant-a")

	created, err := c.CreateRecording(context.Background(), tc, models.Recording{DurationSeconds: 10, SizeBytes: 100})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	if !created.BlankRecord {
		t.Fatalf("expected blank_record true for a short, small recording")
	}
	if created.Status != models.StatusSkipped {
		t.Fatalf("expected status skipped for a blank recording, got %s", created.Status)
	}
}

func TestCreateRecordingRequiresPermission(t *testing.T) {
	recordings := newFakeRecordingStore()
	c := New(Config{Recordings: recordings})
	tc := tenantctx.Context{TenantID: "tenant-a"} // no permissions granted

	_, err := c.CreateRecording(context.Background(), tc, models.Recording{})
	if errs.KindOf(err) != errs.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}

func TestGetRecordingCrossTenantReturnsNotFound(t *testing.T) {
	recordings := newFakeRecordingStore()
	recordings.recs["rec-1"] = models.Recording{ID: "rec-1", TenantID: "tenant-a"}
	c := New(Config{Recordings: recordings})

	_, err := c.GetRecording(context.Background(), fullPermsContext("tenant-b"), "rec-1")
	if errs.KindOf(err) != errs.NotFound {
		t.Fatalf("expected NotFound for cross-tenant access, got %v", err)
	}
}

func TestCreateTemplateRejectsInvalidRegexRule(t *testing.T) {
	templates := &fakeTemplateStore{tmpls: map[string]models.Template{}}
	c := New(Config{Templates: templates})
	tc := fullPermsContext("tenant-a")

	_, err := c.CreateTemplate(context.Background(), tc, models.Template{
		Name: "weekly standup",
		Rules: []models.MatchingRule{
			{MatchType: models.MatchRegex, Pattern: "("},
		},
	})
	if errs.KindOf(err) != errs.Validation {
		t.Fatalf("expected Validation error for unparsable regex, got %v", err)
	}
}

func TestCreateTemplateAcceptsValidRule(t *testing.T) {
	templates := &fakeTemplateStore{tmpls: map[string]models.Template{}}
	c := New(Config{Templates: templates})
	tc := fullPermsContext("tenant-a")

	tmpl, err := c.CreateTemplate(context.Background(), tc, models.Template{
		Name: "weekly standup",
		Rules: []models.MatchingRule{
			{MatchType: models.MatchContains, Pattern: "standup"},
		},
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if tmpl.ID == "" {
		t.Fatalf("expected an assigned template id")
	}
}

func TestUpsertAutomationJobComputesNextRun(t *testing.T) {
	jobs := &fakeJobStore{jobs: map[string]models.AutomationJob{}}
	c := New(Config{Jobs: jobs})
	tc := fullPermsContext("tenant-a")

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	job, err := c.UpsertAutomationJob(context.Background(), tc, models.AutomationJob{
		Schedule: models.ScheduleDescriptor{Kind: models.ScheduleEveryNHours, EveryNHours: 4},
	}, now)
	if err != nil {
		t.Fatalf("UpsertAutomationJob: %v", err)
	}
	if !job.NextRun.After(now) {
		t.Fatalf("expected next_run after now, got %v", job.NextRun)
	}
}

func TestUpsertAutomationJobRejectsInvalidSchedule(t *testing.T) {
	jobs := &fakeJobStore{jobs: map[string]models.AutomationJob{}}
	c := New(Config{Jobs: jobs})
	tc := fullPermsContext("tenant-a")

	_, err := c.UpsertAutomationJob(context.Background(), tc, models.AutomationJob{
		Schedule: models.ScheduleDescriptor{Kind: models.ScheduleEveryNHours, EveryNHours: 0},
	}, time.Now())
	if errs.KindOf(err) != errs.Validation {
		t.Fatalf("expected Validation error for zero every_n_hours, got %v", err)
	}
}
