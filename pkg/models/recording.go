package models

import "time"

// Status is the Recording FSM's authoritative state. There is no FAILED
// status for the main pipeline: failure is represented by rolling Status
// back to the last completed state and setting Failed/FailedAtStage.
type Status string

const (
	StatusInitialized  Status = "initialized"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusProcessing   Status = "processing"
	StatusProcessed    Status = "processed"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusUploading    Status = "uploading"
	StatusUploaded     Status = "uploaded"
	StatusSkipped      Status = "skipped"
	StatusExpired      Status = "expired"
)

// Stage names the six pipeline stages; FailedAtStage records which one
// threw, and resumption restarts exactly there.
type Stage string

const (
	StageDownload          Stage = "download"
	StageTrim              Stage = "trim"
	StageTranscribe        Stage = "transcribe"
	StageExtractTopics     Stage = "extract_topics"
	StageGenerateSubtitles Stage = "generate_subtitles"
	StageUpload            Stage = "upload"
)

// FilePaths are stored relative to the tenant root; the Storage Path
// Builder resolves them to absolute paths.
type FilePaths struct {
	Source              string `json:"source,omitempty"`
	ProcessedVideo       string `json:"processed_video,omitempty"`
	ProcessedAudio       string `json:"processed_audio,omitempty"`
	TranscriptionDir     string `json:"transcription_dir,omitempty"`
}

// TranscriptionInfo summarizes the master transcription artifact.
type TranscriptionInfo struct {
	Language   string `json:"language,omitempty"`
	DurationS  float64 `json:"duration_s,omitempty"`
	WordCount  int    `json:"word_count,omitempty"`
	MasterPath string `json:"master_path,omitempty"`
}

// Topic is one entry in a recording's extracted topic list.
type Topic struct {
	Title   string  `json:"title"`
	StartS  float64 `json:"start_s"`
	EndS    float64 `json:"end_s"`
	IsBreak bool    `json:"is_break,omitempty"`
}

// Recording is the central entity: an ingested video and its derived
// artifacts, tracked through the Recording FSM.
type Recording struct {
	ID            string   `json:"id" db:"id"`
	TenantID      string   `json:"tenant_id" db:"tenant_id"`
	SourceID      string   `json:"source_id" db:"source_id"`
	SourceType    SourceType `json:"source_type" db:"source_type"`
	TemplateID    *string  `json:"template_id,omitempty" db:"template_id"`
	IsMapped      bool     `json:"is_mapped" db:"is_mapped"`
	DisplayName   string   `json:"display_name" db:"display_name"`
	StartTime     time.Time `json:"start_time" db:"start_time"`
	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	SizeBytes     int64    `json:"size_bytes" db:"size_bytes"`

	Status         Status  `json:"status" db:"status"`
	Failed         bool    `json:"failed" db:"failed"`
	FailedAtStage  *Stage  `json:"failed_at_stage,omitempty" db:"failed_at_stage"`
	FailedReason   string  `json:"failed_reason,omitempty" db:"failed_reason"`
	FailedAt       *time.Time `json:"failed_at,omitempty" db:"failed_at"`
	RetryCount     int     `json:"retry_count" db:"retry_count"`

	BlankRecord bool `json:"blank_record" db:"blank_record"`

	Paths              FilePaths          `json:"paths" db:"-"`
	TranscriptionInfo  TranscriptionInfo  `json:"transcription_info" db:"-"`
	Topics             []Topic            `json:"topics" db:"-"`
	TopicsVersion      int                `json:"topics_version" db:"topics_version"`

	// EffectiveConfig is the snapshot captured on first successful stage;
	// nil until then. Immutable for the life of the run once set.
	EffectiveConfig JSONB `json:"effective_config,omitempty" db:"effective_config"`
	// PerRecordingOverride holds only the differences from the template.
	PerRecordingOverride JSONB `json:"per_recording_override,omitempty" db:"per_recording_override"`

	ExpireAt  *time.Time `json:"expire_at,omitempty" db:"expire_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsBlank applies the §3 blank-record rule: shorter than 20 minutes or
// smaller than 25 MiB.
func (r Recording) IsBlank() bool {
	const minDurationS = 20 * 60
	const minBytes = 25 * 1024 * 1024
	return r.DurationSeconds < minDurationS || r.SizeBytes < minBytes
}

// SourceMetadata is the raw provider payload for a Recording, 1:1.
type SourceMetadata struct {
	ID          string `json:"id" db:"id"`
	RecordingID string `json:"recording_id" db:"recording_id"`
	SourceType  SourceType `json:"source_type" db:"source_type"`
	SourceKey   string `json:"source_key" db:"source_key"`
	RawPayload  JSONB  `json:"raw_payload" db:"raw_payload"`
}
