// Package pipeline implements the Pipeline Executor (spec §4.7): it
// orchestrates the six stage runners for one recording, end-to-end or
// partial, gated by the Quota Service and a per-recording advisory lock.
package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"mediahub/internal/audit"
	"mediahub/internal/configresolver"
	"mediahub/internal/quota"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/logging"
	"mediahub/pkg/models"
)

// ProgressFunc reports 0-100 monotone progress within one run.
type ProgressFunc func(percent int)

// Download fetches the recording's source file to the path dictated by
// the Storage Path Builder.
type Download interface {
	Run(ctx context.Context, tc tenantctx.Context, rec models.Recording, cfg models.JSONB, progress ProgressFunc) error
}

// Trim produces the processed video and extracted audio.
type Trim interface {
	Run(ctx context.Context, tc tenantctx.Context, rec models.Recording, cfg models.JSONB) error
}

// Transcribe calls the external speech API and stores the master
// transcript artifact. Implementations own their own retry policy (up to
// 3 attempts, exponential backoff from 2s, per spec §4.7/§7).
type Transcribe interface {
	Run(ctx context.Context, tc tenantctx.Context, rec models.Recording, cfg models.JSONB) error
}

// ExtractTopics calls the external topic model and writes a versioned
// topics file.
type ExtractTopics interface {
	Run(ctx context.Context, tc tenantctx.Context, rec models.Recording, cfg models.JSONB) (version int, err error)
}

// GenerateSubtitles writes subtitle files next to the transcription.
type GenerateSubtitles interface {
	Run(ctx context.Context, tc tenantctx.Context, rec models.Recording, cfg models.JSONB) error
}

// Upload fans out over the recording's non-terminal Output Targets.
type Upload interface {
	// RunOne uploads to a single target and returns its new state. The
	// executor calls this once per non-terminal target, bounded by the
	// per-recording upload semaphore.
	RunOne(ctx context.Context, tc tenantctx.Context, rec models.Recording, target models.OutputTarget, cfg models.JSONB, progress ProgressFunc) (models.OutputTarget, error)
}

// RecordingRepo is the persistence boundary for Recording mutations the
// executor performs.
type RecordingRepo interface {
	Get(ctx context.Context, tc tenantctx.Context, id string) (models.Recording, error)
	Save(ctx context.Context, tc tenantctx.Context, rec models.Recording) error
}

// TargetRepo is the persistence boundary for OutputTarget mutations.
type TargetRepo interface {
	ListByRecording(ctx context.Context, tc tenantctx.Context, recordingID string) ([]models.OutputTarget, error)
	Save(ctx context.Context, tc tenantctx.Context, target models.OutputTarget) error
}

// Locker provides the short-lived advisory lock keyed on recording_id
// that makes at most one pipeline invocation per recording active at a
// time. Implementations back it with Redis SETNX or a Postgres advisory
// lock.
type Locker interface {
	// TryLock returns ok=false (no error) if the lock is already held.
	// unlock is non-nil whenever ok is true and must be called exactly
	// once when the run completes.
	TryLock(ctx context.Context, recordingID string) (unlock func(), ok bool, err error)
}

// Clock abstracts wall-clock time for deterministic tests.
type Clock func() time.Time

// Config bundles the executor's collaborators.
type Config struct {
	Quota      *quota.Service
	Resolver   *configresolver.Resolver
	Recordings RecordingRepo
	Targets    TargetRepo
	Locker     Locker
	Audit      *audit.Log
	Logger     logging.Logger

	Download          Download
	Trim              Trim
	Transcribe        Transcribe
	ExtractTopics     ExtractTopics
	GenerateSubtitles GenerateSubtitles
	Upload            Upload

	// MaxConcurrentTranscriptionsPerTenant bounds tenant-local
	// transcription concurrency, independent of the global quota slot.
	// Defaults to 2 per spec §5.
	MaxConcurrentTranscriptionsPerTenant int64
	// MaxConcurrentUploadsPerRecording bounds upload fanout per
	// recording. Defaults to 2 per spec §5.
	MaxConcurrentUploadsPerRecording int64

	Clock Clock
}

// Executor is the Pipeline Executor.
type Executor struct {
	cfg Config

	mu               sync.Mutex
	transcriptionSem map[string]*semaphore.Weighted // keyed by tenant id
	breakers         *stageBreakers
}

// New builds an Executor, applying spec-mandated concurrency defaults
// where Config leaves them at zero.
func New(cfg Config) *Executor {
	if cfg.MaxConcurrentTranscriptionsPerTenant <= 0 {
		cfg.MaxConcurrentTranscriptionsPerTenant = 2
	}
	if cfg.MaxConcurrentUploadsPerRecording <= 0 {
		cfg.MaxConcurrentUploadsPerRecording = 2
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Executor{
		cfg:              cfg,
		transcriptionSem: map[string]*semaphore.Weighted{},
		breakers:         newStageBreakers(cfg.Logger),
	}
}

func (e *Executor) transcriptionSlot(tenantID string) *semaphore.Weighted {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.transcriptionSem[tenantID]
	if !ok {
		s = semaphore.NewWeighted(e.cfg.MaxConcurrentTranscriptionsPerTenant)
		e.transcriptionSem[tenantID] = s
	}
	return s
}
