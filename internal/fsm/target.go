package fsm

import (
	"time"

	"mediahub/internal/errs"
	"mediahub/pkg/models"
)

const maxTargetRetries = 2

// StartUpload transitions a fresh or re-added target into UPLOADING.
func StartUpload(t models.OutputTarget) (models.OutputTarget, error) {
	if t.Status != models.TargetNotUploaded {
		return t, errs.New(errs.Conflict, "target is not in not_uploaded state")
	}
	t.Status = models.TargetUploading
	t.Failed = false
	return t, nil
}

// CompleteUpload marks t UPLOADED and stores the remote metadata.
func CompleteUpload(t models.OutputTarget, meta models.TargetMeta, now time.Time) (models.OutputTarget, error) {
	if t.Status != models.TargetUploading {
		return t, errs.New(errs.Conflict, "target is not uploading")
	}
	t.Status = models.TargetUploaded
	t.Failed = false
	t.TargetMeta = meta
	t.UploadedAt = &now
	t.LastUpdatedAt = &now
	return t, nil
}

// FailUpload records a failed attempt. While retries remain, status stays
// UPLOADING with failed=true (so the runner knows to try again); once the
// per-target retry budget is exhausted, status becomes FAILED.
func FailUpload(t models.OutputTarget, now time.Time) (models.OutputTarget, error) {
	if t.Status != models.TargetUploading {
		return t, errs.New(errs.Conflict, "target is not uploading")
	}
	t.Failed = true
	t.RetryCount++
	t.LastUpdatedAt = &now
	if t.RetryCount > maxTargetRetries {
		t.Status = models.TargetFailed
	}
	return t, nil
}

// UpdateMetadata re-enters an UPLOADED target to refresh target_meta
// without changing status, per §4.6's metadata-update re-entry.
func UpdateMetadata(t models.OutputTarget, meta models.TargetMeta, now time.Time) (models.OutputTarget, error) {
	if t.Status != models.TargetUploaded {
		return t, errs.New(errs.Conflict, "target is not uploaded")
	}
	t.TargetMeta = meta
	t.LastUpdatedAt = &now
	return t, nil
}

// AddTarget reopens an already-UPLOADED recording for a newly created
// NOT_UPLOADED target: the recording moves back to UPLOADING and the
// executor runs uploads for non-terminal targets only.
func AddTarget(rec models.Recording) models.Recording {
	rec.Status = models.StatusUploading
	return rec
}

// CombinedStatus derives the recording's (status, failed, failed_at_stage)
// from its targets' terminal states, per §4.6. The second return value
// reports whether every target has reached a terminal state; when false,
// the recording must stay UPLOADING and the other return values are the
// zero value.
func CombinedStatus(targets []models.OutputTarget) (status models.Status, failed bool, failedAtStage *models.Stage, allTerminal bool) {
	if len(targets) == 0 {
		return "", false, nil, false
	}

	uploaded, failedCount := 0, 0
	for _, t := range targets {
		if !t.IsTerminal() {
			return "", false, nil, false
		}
		switch t.Status {
		case models.TargetUploaded:
			uploaded++
		case models.TargetFailed:
			failedCount++
		}
	}

	uploadStage := models.StageUpload
	switch {
	case failedCount == 0:
		return models.StatusUploaded, false, nil, true
	case uploaded > 0:
		return models.StatusUploaded, true, &uploadStage, true
	default:
		return models.StatusTranscribed, true, &uploadStage, true
	}
}

// ApplyCombinedStatus folds CombinedStatus's verdict into rec. Called by
// the executor after every target reaches a terminal state.
func ApplyCombinedStatus(rec models.Recording, targets []models.OutputTarget) models.Recording {
	status, failed, failedAtStage, allTerminal := CombinedStatus(targets)
	if !allTerminal {
		rec.Status = models.StatusUploading
		return rec
	}
	rec.Status = status
	rec.Failed = failed
	rec.FailedAtStage = failedAtStage
	return rec
}
