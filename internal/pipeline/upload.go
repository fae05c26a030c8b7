package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"mediahub/internal/fsm"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// runUploadFanout drives every non-terminal Output Target for rec through
// the Upload runner, bounded by MaxConcurrentUploadsPerRecording, then
// folds the targets' terminal states into rec via fsm.ApplyCombinedStatus.
// A per-target upload failure is not an executor error: it is recorded on
// the target via fsm.FailUpload and only surfaces through CombinedStatus.
// The returned error carries only infrastructure failures (repo I/O, a
// broken FSM invariant), which the caller treats as a stage failure.
func (e *Executor) runUploadFanout(ctx context.Context, tc tenantctx.Context, rec *models.Recording, cfg models.JSONB, progress ProgressFunc) error {
	targets, err := e.cfg.Targets.ListByRecording(ctx, tc, rec.ID)
	if err != nil {
		return err
	}

	pending := make([]models.OutputTarget, 0, len(targets))
	for _, t := range targets {
		if !t.IsTerminal() {
			pending = append(pending, t)
		}
	}

	if len(pending) == 0 {
		*rec = fsm.ApplyCombinedStatus(*rec, targets)
		return nil
	}

	sem := semaphore.NewWeighted(e.cfg.MaxConcurrentUploadsPerRecording)
	var mu sync.Mutex
	var infraErr error
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if infraErr == nil {
			infraErr = err
		}
	}

	var wg sync.WaitGroup
	for _, t := range pending {
		t := t
		if t.Status == models.TargetNotUploaded {
			started, err := fsm.StartUpload(t)
			if err != nil {
				return err
			}
			t = started
			if err := e.cfg.Targets.Save(ctx, tc, t); err != nil {
				return err
			}
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			recordErr(err)
			continue
		}

		wg.Add(1)
		go func(target models.OutputTarget) {
			defer wg.Done()
			defer sem.Release(1)

			var result models.OutputTarget
			runErr := e.breakers.run("upload:"+string(target.TargetPlatform), func() error {
				var innerErr error
				result, innerErr = e.cfg.Upload.RunOne(ctx, tc, *rec, target, cfg, progress)
				return innerErr
			})

			now := e.cfg.Clock()
			var next models.OutputTarget
			var fsmErr error
			if runErr != nil {
				next, fsmErr = fsm.FailUpload(target, now)
			} else {
				next, fsmErr = fsm.CompleteUpload(target, result.TargetMeta, now)
			}
			if fsmErr != nil {
				recordErr(fsmErr)
				return
			}
			if err := e.cfg.Targets.Save(ctx, tc, next); err != nil {
				recordErr(err)
			}
		}(t)
	}
	wg.Wait()

	if infraErr != nil {
		return infraErr
	}

	final, err := e.cfg.Targets.ListByRecording(ctx, tc, rec.ID)
	if err != nil {
		return err
	}
	*rec = fsm.ApplyCombinedStatus(*rec, final)
	return nil
}
