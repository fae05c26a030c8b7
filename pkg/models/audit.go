package models

import "time"

// ProcessingStage is one append-only row per pipeline stage attempt,
// written by the Pipeline Executor after each stage completes (or fails).
type ProcessingStage struct {
	ID          string     `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	RecordingID string     `json:"recording_id" db:"recording_id"`
	Stage       Stage      `json:"stage" db:"stage"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	DurationMS  int64      `json:"duration_ms" db:"duration_ms"`
	Progress    int        `json:"progress" db:"progress"`
	Error       string     `json:"error,omitempty" db:"error"`
}
