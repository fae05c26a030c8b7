// Package fsm implements the Recording FSM and the per-target Output
// Target Sub-FSM, per spec §4.5-4.6. There is deliberately no FAILED
// status for the main pipeline: failures roll status back to the last
// completed state and set a failed flag alongside the stage that threw.
package fsm

import (
	"time"

	"mediahub/internal/errs"
	"mediahub/pkg/models"
)

// step describes one legal forward move of the main pipeline: which
// status it leaves from, which stage performs it, the status reached on
// success, and the status/stage pair recorded on failure.
type step struct {
	from       models.Status
	stage      models.Stage
	onSuccess  models.Status
	failStatus models.Status
}

var steps = []step{
	{models.StatusInitialized, models.StageDownload, models.StatusDownloaded, models.StatusInitialized},
	{models.StatusDownloaded, models.StageTrim, models.StatusProcessed, models.StatusDownloaded},
	{models.StatusProcessed, models.StageTranscribe, models.StatusTranscribed, models.StatusProcessed},
}

// stepFor returns the step whose from-status matches status, if any.
// Transcribe/ExtractTopics/GenerateSubtitles share one FSM step (they run
// as one unit between PROCESSED and TRANSCRIBED); Upload is handled by the
// Output Target Sub-FSM below, not this table.
func stepFor(status models.Status) (step, bool) {
	for _, s := range steps {
		if s.from == status {
			return s, true
		}
	}
	return step{}, false
}

// NextStage reports which stage runs next for rec, given its current
// status (or its failed_at_stage, if resuming a failed run). A
// TRANSCRIBED recording yields StageUpload (upload is driven by the
// sub-FSM, not this table); any other status outside the table returns
// false.
func NextStage(rec models.Recording) (models.Stage, bool) {
	if rec.Failed && rec.FailedAtStage != nil {
		return *rec.FailedAtStage, true
	}
	if rec.Status == models.StatusTranscribed {
		return models.StageUpload, true
	}
	s, ok := stepFor(rec.Status)
	if !ok {
		return "", false
	}
	return s.stage, true
}

// AdvanceOnSuccess returns the recording's new status after stage
// completes successfully from its current status, clearing any failed
// flag left by a prior attempt at the same stage.
func AdvanceOnSuccess(rec models.Recording, stage models.Stage) (models.Recording, error) {
	s, ok := stepFor(rec.Status)
	if !ok || s.stage != stage {
		return rec, errs.New(errs.Internal, "stage "+string(stage)+" is not legal from status "+string(rec.Status))
	}
	rec.Status = s.onSuccess
	rec.Failed = false
	rec.FailedAtStage = nil
	rec.FailedReason = ""
	rec.FailedAt = nil
	return rec, nil
}

// RollbackOnFailure applies the rollback-plus-flag model: status rolls
// back to the last completed state, failed is set, failed_at_stage
// records which stage threw, and retry_count is left untouched (the
// retry trigger increments it, not the failure path).
func RollbackOnFailure(rec models.Recording, stage models.Stage, reason string, now time.Time) (models.Recording, error) {
	s, ok := stepFor(rec.Status)
	if !ok || s.stage != stage {
		return rec, errs.New(errs.Internal, "stage "+string(stage)+" is not legal from status "+string(rec.Status))
	}
	rec.Status = s.failStatus
	rec.Failed = true
	rec.FailedAtStage = &stage
	rec.FailedReason = reason
	rec.FailedAt = &now
	return rec, nil
}

// Cancel applies the same rollback as RollbackOnFailure but tags the
// reason as "cancelled" and never touches retry_count, per §4.7.
func Cancel(rec models.Recording, stage models.Stage, now time.Time) (models.Recording, error) {
	return RollbackOnFailure(rec, stage, "cancelled", now)
}

const maxRetries = 2

// CanRetry reports whether Retry is legal for rec right now: failed,
// under the retry budget, and failed_at_stage names a resumable point.
func CanRetry(rec models.Recording) bool {
	if !rec.Failed || rec.FailedAtStage == nil {
		return false
	}
	if rec.RetryCount >= maxRetries {
		return false
	}
	_, legalMain := stepFor(rec.Status)
	return legalMain || *rec.FailedAtStage == models.StageUpload
}

// Retry clears the failed flag, increments retry_count, and returns the
// recording ready for the executor to resume at failed_at_stage.
func Retry(rec models.Recording) (models.Recording, error) {
	if !CanRetry(rec) {
		return rec, errs.New(errs.Conflict, "recording is not eligible for retry")
	}
	rec.Failed = false
	rec.FailedReason = ""
	rec.FailedAt = nil
	rec.RetryCount++
	return rec, nil
}

// ResetRetryBudget is the explicit admin/user override after retry_count
// has hit its cap: it clears retry_count, failed and failed_at_stage, so
// the recording is not retryable until it fails again, and then has its
// full retry budget.
func ResetRetryBudget(rec models.Recording) models.Recording {
	rec.RetryCount = 0
	rec.Failed = false
	rec.FailedAtStage = nil
	rec.FailedReason = ""
	rec.FailedAt = nil
	return rec
}

// MarkSkipped transitions rec straight to SKIPPED: blank records and
// recordings bound to an admin-disabled template never enter the pipeline.
func MarkSkipped(rec models.Recording) models.Recording {
	rec.Status = models.StatusSkipped
	rec.Failed = false
	rec.FailedAtStage = nil
	return rec
}

// MarkExpired transitions rec to EXPIRED, the TTL-sweep terminal state.
func MarkExpired(rec models.Recording) models.Recording {
	rec.Status = models.StatusExpired
	return rec
}
