package models

import "time"

// TargetStatus is the Output Target sub-FSM's state, independent of the
// Recording's main FSM.
type TargetStatus string

const (
	TargetNotUploaded TargetStatus = "not_uploaded"
	TargetUploading   TargetStatus = "uploading"
	TargetUploaded    TargetStatus = "uploaded"
	TargetFailed      TargetStatus = "failed"
)

// TargetMeta is the remote-side record of an uploaded asset.
type TargetMeta struct {
	RemoteID   string `json:"remote_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Privacy    string `json:"privacy,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	AlbumID    string `json:"album_id,omitempty"`
}

// OutputTarget is one row per (recording, target_platform).
type OutputTarget struct {
	ID             string       `json:"id" db:"id"`
	RecordingID    string       `json:"recording_id" db:"recording_id"`
	TargetPlatform Platform     `json:"target_platform" db:"target_platform"`
	PresetID       string       `json:"preset_id" db:"preset_id"`
	Status         TargetStatus `json:"status" db:"status"`
	Failed         bool         `json:"failed" db:"failed"`
	RetryCount     int          `json:"retry_count" db:"retry_count"`
	TargetMeta     TargetMeta   `json:"target_meta" db:"-"`
	UploadedAt     *time.Time   `json:"uploaded_at,omitempty" db:"uploaded_at"`
	LastUpdatedAt  *time.Time   `json:"last_updated_at,omitempty" db:"last_updated_at"`
}

// IsTerminal reports whether the target has reached UPLOADED or FAILED.
func (t OutputTarget) IsTerminal() bool {
	return t.Status == TargetUploaded || t.Status == TargetFailed
}
