package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"mediahub/pkg/logging"
	"mediahub/pkg/models"
)

// defaultMaxConcurrentJobs bounds how many job buckets run at once across
// the whole scheduler, per spec §4.9's "bounded by a scheduler-wide
// concurrency limit".
const defaultMaxConcurrentJobs = 8

// Scheduler bucket-scans enabled Automation Jobs by wall-clock time and
// fires every due job concurrently on each tick.
type Scheduler struct {
	runner   *Runner
	jobs     JobRepo
	logger   logging.Logger
	interval time.Duration
	sem      *semaphore.Weighted

	ticker   *time.Ticker
	stopChan chan struct{}
	clock    func() time.Time
}

// Config bundles the Scheduler's collaborators.
type Config struct {
	Runner            *Runner
	Jobs              JobRepo
	Logger            logging.Logger
	TickInterval      time.Duration // default 1 minute
	MaxConcurrentJobs int64         // default 8
	Clock             func() time.Time
}

func New(cfg Config) *Scheduler {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Minute
	}
	maxJobs := cfg.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = defaultMaxConcurrentJobs
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		runner:   cfg.Runner,
		jobs:     cfg.Jobs,
		logger:   cfg.Logger,
		interval: interval,
		sem:      semaphore.NewWeighted(maxJobs),
		stopChan: make(chan struct{}),
		clock:    clock,
	}
}

// Start begins the ticker loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.ticker = time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.Tick(ctx)
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the ticker loop. Jobs already in flight are not cancelled.
func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopChan)
}

// Tick runs every job whose next_run is due as of now, one goroutine per
// job bounded by the scheduler's concurrency semaphore. Missed ticks are
// never replayed: a job whose process was down simply has its next_run
// computed from the current time, not backfilled.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock()
	due, err := s.jobs.ListEnabledDue(ctx, now)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("failed to list due automation jobs")
		}
		return
	}

	for _, job := range due {
		job := job
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func() {
			defer s.sem.Release(1)
			s.runJob(ctx, job, now)
		}()
	}
}

func (s *Scheduler) runJob(ctx context.Context, job models.AutomationJob, tickTime time.Time) {
	run := s.runner.RunWithRetry(ctx, job, false, nil)

	next, err := NextRun(job.Schedule, tickTime)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("failed to compute next_run for automation job")
		}
		return
	}

	job.LastRun = &tickTime
	job.NextRun = next
	job.LastStatus = run.Status
	if err := s.jobs.Save(ctx, job); err != nil && s.logger != nil {
		s.logger.WithError(err).Error("failed to persist automation job after run")
	}
}

// RunNow executes job immediately, outside the tick loop, honoring
// dryRun. Used by the manual-invocation API surface (spec §6).
func (s *Scheduler) RunNow(ctx context.Context, job models.AutomationJob, dryRun bool) models.AutomationRun {
	return s.runner.RunWithRetry(ctx, job, dryRun, nil)
}
