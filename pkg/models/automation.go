package models

import "time"

// ScheduleKind selects how an Automation Job's next_run is computed.
type ScheduleKind string

const (
	ScheduleTimeOfDay   ScheduleKind = "time_of_day"
	ScheduleEveryNHours ScheduleKind = "every_n_hours"
	ScheduleWeekdays    ScheduleKind = "weekdays_time"
	ScheduleCron        ScheduleKind = "cron"
)

// ScheduleDescriptor configures when an Automation Job fires next.
type ScheduleDescriptor struct {
	Kind ScheduleKind `json:"kind"`

	// ScheduleTimeOfDay / ScheduleWeekdays
	TimeOfDay string `json:"time_of_day,omitempty"` // "HH:MM"
	Weekdays  []int  `json:"weekdays,omitempty"`    // 0=Sunday .. 6=Saturday
	Timezone  string `json:"timezone,omitempty"`

	// ScheduleEveryNHours
	EveryNHours int `json:"every_n_hours,omitempty"`

	// ScheduleCron
	CronExpr string `json:"cron_expr,omitempty"`

	SyncDays int `json:"sync_days,omitempty"` // default 1

	Retry RetryPolicy `json:"retry"`
}

// RetryPolicy governs job-level retry after a scheduled run fails.
type RetryPolicy struct {
	MaxAttempts  int `json:"max_attempts"`
	DelaySeconds int `json:"delay_seconds"`
}

// AutomationJob fires scheduled runs of a template.
type AutomationJob struct {
	ID         string             `json:"id" db:"id"`
	TenantID   string             `json:"tenant_id" db:"tenant_id"`
	TemplateID string             `json:"template_id" db:"template_id"`
	Schedule   ScheduleDescriptor `json:"schedule" db:"-"`
	Enabled    bool               `json:"enabled" db:"enabled"`
	LastRun    *time.Time         `json:"last_run,omitempty" db:"last_run"`
	NextRun    time.Time          `json:"next_run" db:"next_run"`
	LastStatus RunStatus          `json:"last_status" db:"last_status"`
}

// RunStatus is an Automation Run's outcome.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunSkipped RunStatus = "skipped"
)

// RunCounts summarizes one Automation Run's effect.
type RunCounts struct {
	Synced    int `json:"synced"`
	Processed int `json:"processed"`
	Uploaded  int `json:"uploaded"`
}

// AutomationRun is an append-only entry per job invocation.
type AutomationRun struct {
	ID           string     `json:"id" db:"id"`
	JobID        string     `json:"job_id" db:"job_id"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Counts       RunCounts  `json:"counts" db:"-"`
	Error        string     `json:"error,omitempty" db:"error"`
	RetryAttempt int        `json:"retry_attempt" db:"retry_attempt"`
	Status       RunStatus  `json:"status" db:"status"`
	DryRun       bool       `json:"dry_run" db:"dry_run"`
}
