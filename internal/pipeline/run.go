package pipeline

import (
	"context"

	"mediahub/internal/errs"
	"mediahub/internal/fsm"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// Run executes rec's pipeline from its current state, acquiring the
// per-tenant concurrency slot and the per-recording advisory lock first.
// A second concurrent Run for the same recording fails fast with
// errs.Conflict ("AlreadyRunning").
func (e *Executor) Run(ctx context.Context, tc tenantctx.Context, recordingID string, progress ProgressFunc) error {
	unlock, ok, err := e.cfg.Locker.TryLock(ctx, recordingID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Conflict, "pipeline already running for this recording")
	}
	defer unlock()

	rec, err := e.cfg.Recordings.Get(ctx, tc, recordingID)
	if err != nil {
		return err
	}

	if rec.BlankRecord {
		rec = fsm.MarkSkipped(rec)
		return e.cfg.Recordings.Save(ctx, tc, rec)
	}

	handle, err := e.cfg.Quota.Reserve(ctx, tc)
	if err != nil {
		return err
	}

	if err := e.runStages(ctx, tc, &rec, progress); err != nil {
		if relErr := e.cfg.Quota.Release(ctx, handle); relErr != nil && e.cfg.Logger != nil {
			e.cfg.Logger.WithError(relErr).Warn("failed to release quota handle after stage error")
		}
		return err
	}

	if rec.Status == models.StatusUploaded || rec.Status == models.StatusTranscribed {
		return e.cfg.Quota.Commit(ctx, handle)
	}
	return e.cfg.Quota.Release(ctx, handle)
}

// runStages drives rec through successive stages starting at whatever
// NextStage reports, persisting rec and a ProcessingStage audit row after
// each step. It mutates *rec in place so callers can inspect the final
// status.
func (e *Executor) runStages(ctx context.Context, tc tenantctx.Context, rec *models.Recording, progress ProgressFunc) error {
	snapshot, err := e.cfg.Resolver.CaptureSnapshotIfAbsent(ctx, tc, *rec)
	if err != nil {
		return err
	}
	rec.EffectiveConfig = snapshot

	for {
		stage, ok := fsm.NextStage(*rec)
		if !ok {
			return nil
		}

		started := e.cfg.Clock()
		runErr := e.runOneStage(ctx, tc, rec, stage, progress)
		completed := e.cfg.Clock()

		if e.cfg.Audit != nil {
			_ = e.cfg.Audit.RecordStage(ctx, tc, rec.ID, stage, started, completed, currentProgress(*rec), runErr)
		}

		if runErr != nil {
			var next models.Recording
			var fsmErr error
			if errs.Is(runErr, errs.Cancelled) {
				next, fsmErr = fsm.Cancel(*rec, stage, completed)
			} else {
				next, fsmErr = fsm.RollbackOnFailure(*rec, stage, runErr.Error(), completed)
			}
			if fsmErr != nil {
				return fsmErr
			}
			*rec = next
			if saveErr := e.cfg.Recordings.Save(ctx, tc, *rec); saveErr != nil {
				return saveErr
			}
			return runErr
		}

		if stage == models.StageUpload {
			// Upload's completion status is derived from the target
			// sub-FSM, not AdvanceOnSuccess: runOneStage already wrote
			// rec.Status via fsm.ApplyCombinedStatus. Upload is always
			// the last stage, whether it lands all-uploaded, partial,
			// all-failed, or still in flight, so there is never a next
			// stage to loop back into.
			if saveErr := e.cfg.Recordings.Save(ctx, tc, *rec); saveErr != nil {
				return saveErr
			}
			return nil
		}

		advanced, err := fsm.AdvanceOnSuccess(*rec, stage)
		if err != nil {
			return err
		}
		*rec = advanced
		if saveErr := e.cfg.Recordings.Save(ctx, tc, *rec); saveErr != nil {
			return saveErr
		}
		if progress != nil {
			progress(currentProgress(*rec))
		}
	}
}

func (e *Executor) runOneStage(ctx context.Context, tc tenantctx.Context, rec *models.Recording, stage models.Stage, progress ProgressFunc) error {
	cfg := rec.EffectiveConfig

	switch stage {
	case models.StageDownload:
		return e.breakers.run(string(stage), func() error { return e.cfg.Download.Run(ctx, tc, *rec, cfg, progress) })
	case models.StageTrim:
		return e.breakers.run(string(stage), func() error { return e.cfg.Trim.Run(ctx, tc, *rec, cfg) })
	case models.StageTranscribe:
		return e.breakers.run(string(stage), func() error { return e.runTranscribeAndDerivatives(ctx, tc, rec, cfg) })
	case models.StageUpload:
		return e.runUploadFanout(ctx, tc, rec, cfg, progress)
	default:
		return errs.New(errs.Internal, "unknown stage "+string(stage))
	}
}

// runTranscribeAndDerivatives runs Transcribe, ExtractTopics, and
// GenerateSubtitles as one FSM step (PROCESSED -> TRANSCRIBED), bounded
// by the tenant-local transcription semaphore.
func (e *Executor) runTranscribeAndDerivatives(ctx context.Context, tc tenantctx.Context, rec *models.Recording, cfg models.JSONB) error {
	sem := e.transcriptionSlot(tc.TenantID)
	if err := sem.Acquire(ctx, 1); err != nil {
		return errs.Wrap(errs.Cancelled, "waiting for transcription slot", err)
	}
	defer sem.Release(1)

	if err := e.cfg.Transcribe.Run(ctx, tc, *rec, cfg); err != nil {
		return err
	}
	version, err := e.cfg.ExtractTopics.Run(ctx, tc, *rec, cfg)
	if err != nil {
		return err
	}
	rec.TopicsVersion = version
	return e.cfg.GenerateSubtitles.Run(ctx, tc, *rec, cfg)
}

func currentProgress(rec models.Recording) int {
	order := []models.Status{
		models.StatusInitialized, models.StatusDownloaded, models.StatusProcessed,
		models.StatusTranscribed, models.StatusUploaded,
	}
	for i, s := range order {
		if rec.Status == s {
			return i * 100 / (len(order) - 1)
		}
	}
	return 0
}
