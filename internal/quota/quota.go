// Package quota implements the Quota Service: per-tenant concurrency,
// monthly recording, and storage limits enforced under concurrency, per
// spec §4.8. Every mutation runs as one atomic read-modify-write keyed on
// (tenant_id, period), matching the teacher's row-level locked
// transaction pattern in pkg/database.
package quota

import (
	"context"
	"time"

	"mediahub/internal/errs"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// Store is the atomic backing store the service drives. A single method
// per mutation, each expected to run inside one serializable transaction
// (Postgres: SELECT ... FOR UPDATE on the (tenant_id, period) row) so two
// concurrent Reserve calls for the same tenant never both succeed past
// the limit.
type Store interface {
	// ReserveProcess atomically loads the current usage row for
	// (tenantID, period), checks both limits, and if they pass increments
	// active_concurrent_processes by one, returning the post-increment
	// usage. If either check fails, returns errs.QuotaExceeded and leaves
	// the row untouched.
	ReserveProcess(ctx context.Context, tenantID, period string, limits models.Limits) (models.QuotaUsage, error)
	// CommitProcess atomically decrements active_concurrent_processes and
	// increments recordings_this_period by one.
	CommitProcess(ctx context.Context, tenantID, period string) (models.QuotaUsage, error)
	// ReleaseProcess atomically decrements active_concurrent_processes
	// without touching recordings_this_period.
	ReleaseProcess(ctx context.Context, tenantID, period string) (models.QuotaUsage, error)
	// AddStorage atomically adds delta to storage_bytes, rejecting the
	// change (no-op) if it would exceed quotaBytes when quotaBytes > 0.
	AddStorage(ctx context.Context, tenantID string, delta int64, quotaBytes int64) (models.QuotaUsage, error)
	// ResetMonthly zeroes recordings_this_period for every tenant's row in
	// fromPeriod, carrying storage_bytes forward into newPeriod.
	ResetMonthly(ctx context.Context, fromPeriod, newPeriod string) error
}

// Handle identifies one outstanding concurrency reservation; Commit and
// Release both consume it exactly once.
type Handle struct {
	TenantID string
	Period   string
	consumed bool
}

// Service is the Quota Service.
type Service struct {
	store Store
	clock func() time.Time
}

func New(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

// Period formats t as the YYYYMM bucket the store keys usage rows by.
func Period(t time.Time) string {
	return t.Format("200601")
}

// Reserve acquires a processing concurrency slot for tc's tenant, failing
// with errs.QuotaExceeded if the tenant is at its concurrent-process
// limit or has exhausted its monthly recording allowance.
func (s *Service) Reserve(ctx context.Context, tc tenantctx.Context) (*Handle, error) {
	period := Period(s.clock())
	_, err := s.store.ReserveProcess(ctx, tc.TenantID, period, tc.Limits)
	if err != nil {
		return nil, err
	}
	return &Handle{TenantID: tc.TenantID, Period: period}, nil
}

// Commit finalizes a fully-pipelined recording: releases the concurrency
// slot and counts the recording against the monthly limit. Consuming an
// already-consumed handle is a programmer error.
func (s *Service) Commit(ctx context.Context, h *Handle) error {
	if h == nil || h.consumed {
		return errs.New(errs.Internal, "quota handle already consumed")
	}
	h.consumed = true
	_, err := s.store.CommitProcess(ctx, h.TenantID, h.Period)
	return err
}

// Release gives back a concurrency slot without counting the recording,
// on failure or cancellation.
func (s *Service) Release(ctx context.Context, h *Handle) error {
	if h == nil || h.consumed {
		return errs.New(errs.Internal, "quota handle already consumed")
	}
	h.consumed = true
	_, err := s.store.ReleaseProcess(ctx, h.TenantID, h.Period)
	return err
}

// TrackStorageAdded records bytes written for tc's tenant, rejecting the
// write with errs.QuotaExceeded if it would exceed quota_disk_bytes.
// Every file-manager write calls this.
func (s *Service) TrackStorageAdded(ctx context.Context, tc tenantctx.Context, bytes int64) error {
	_, err := s.store.AddStorage(ctx, tc.TenantID, bytes, tc.Limits.QuotaDiskBytes)
	return err
}

// TrackStorageRemoved records bytes freed for tc's tenant. Every
// file-manager delete calls this.
func (s *Service) TrackStorageRemoved(ctx context.Context, tc tenantctx.Context, bytes int64) error {
	_, err := s.store.AddStorage(ctx, tc.TenantID, -bytes, 0)
	return err
}

// ResetMonthly is the month-boundary background job: zeroes every
// tenant's recordings_this_period and carries storage_bytes forward.
func (s *Service) ResetMonthly(ctx context.Context, now time.Time) error {
	fromPeriod := Period(now.AddDate(0, -1, 0))
	newPeriod := Period(now)
	return s.store.ResetMonthly(ctx, fromPeriod, newPeriod)
}
