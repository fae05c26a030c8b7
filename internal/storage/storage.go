// Package storage builds the deterministic, recording-centric filesystem
// layout described in spec §4.11. Every path is relative to a root that
// works identically for a local disk or an object-storage mount point,
// following the same filepath.Join composition the teacher uses for its
// DVR storage paths.
package storage

import (
	"fmt"
	"path/filepath"
)

// Builder resolves the paths for one storage root. Root is typically a
// mounted bucket path or a local directory; callers never interpolate it
// themselves.
type Builder struct {
	Root string
}

func New(root string) Builder { return Builder{Root: root} }

// RecordingDir is the directory owning every artifact for one recording.
func (b Builder) RecordingDir(tenantID, recordingID string) string {
	return filepath.Join(b.Root, "users", tenantID, "recordings", recordingID)
}

// SourcePath is the untouched downloaded file, named by its extension.
func (b Builder) SourcePath(tenantID, recordingID, ext string) string {
	return filepath.Join(b.RecordingDir(tenantID, recordingID), "source."+ext)
}

// VideoPath is the trimmed video output.
func (b Builder) VideoPath(tenantID, recordingID, ext string) string {
	return filepath.Join(b.RecordingDir(tenantID, recordingID), "video."+ext)
}

// AudioPath is the extracted mono 16kHz speech track.
func (b Builder) AudioPath(tenantID, recordingID string) string {
	return filepath.Join(b.RecordingDir(tenantID, recordingID), "audio.mp3")
}

// TranscriptionDir holds the master transcript, topic versions, and
// subtitle files.
func (b Builder) TranscriptionDir(tenantID, recordingID string) string {
	return filepath.Join(b.RecordingDir(tenantID, recordingID), "transcription")
}

// MasterTranscriptPath is the full speech-to-text result.
func (b Builder) MasterTranscriptPath(tenantID, recordingID string) string {
	return filepath.Join(b.TranscriptionDir(tenantID, recordingID), "master.json")
}

// TopicsPath is one versioned topic extraction result.
func (b Builder) TopicsPath(tenantID, recordingID string, version int) string {
	return filepath.Join(b.TranscriptionDir(tenantID, recordingID), fmt.Sprintf("topics_v%d.json", version))
}

// SubtitlePath is a generated subtitle file in the given format (srt/vtt).
func (b Builder) SubtitlePath(tenantID, recordingID, format string) string {
	return filepath.Join(b.TranscriptionDir(tenantID, recordingID), "subtitles."+format)
}

// AssetsDir holds per-recording custom assets (e.g. a manual thumbnail).
func (b Builder) AssetsDir(tenantID, recordingID string) string {
	return filepath.Join(b.RecordingDir(tenantID, recordingID), "assets")
}

// CustomThumbnailPath is the recording's manually-set thumbnail, if any.
func (b Builder) CustomThumbnailPath(tenantID, recordingID string) string {
	return filepath.Join(b.AssetsDir(tenantID, recordingID), "custom_thumbnail.png")
}

// TenantThumbnailsDir holds thumbnails the tenant owns directly.
func (b Builder) TenantThumbnailsDir(tenantID string) string {
	return filepath.Join(b.Root, "users", tenantID, "thumbnails")
}

// SharedThumbnailsDir holds read-only template thumbnails, used as a
// lookup fallback when a tenant hasn't set one of its own.
func (b Builder) SharedThumbnailsDir() string {
	return filepath.Join(b.Root, "shared", "thumbnails")
}

// TempDir is a transient per-job scratch directory, auto-swept after 24h.
func (b Builder) TempDir(tenantID, jobID string) string {
	return filepath.Join(b.Root, "temp", tenantID, jobID)
}
