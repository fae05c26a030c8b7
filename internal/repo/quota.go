package repo

import (
	"context"
	"database/sql"

	"mediahub/internal/errs"
	"mediahub/pkg/models"
)

// QuotaRepo implements quota.Store: every mutation runs inside one
// transaction that takes a row lock on the tenant's (tenant_id, period)
// usage row via SELECT ... FOR UPDATE, so two concurrent reservations
// for the same tenant serialize instead of both reading a stale count.
type QuotaRepo struct{ DB }

func NewQuotaRepo(db DB) *QuotaRepo { return &QuotaRepo{DB: db} }

func (r *QuotaRepo) lockedUsage(ctx context.Context, tx *sql.Tx, tenantID, period string) (models.QuotaUsage, error) {
	var usage models.QuotaUsage
	err := tx.QueryRowContext(ctx, `
		SELECT tenant_id, period, active_concurrent_processes, recordings_this_period, storage_bytes
		FROM quota_usage WHERE tenant_id = $1 AND period = $2 FOR UPDATE`,
		tenantID, period).Scan(&usage.TenantID, &usage.Period, &usage.ActiveConcurrentProcesses,
		&usage.RecordingsThisPeriod, &usage.StorageBytes)
	if err == sql.ErrNoRows {
		_, insErr := tx.ExecContext(ctx, `
			INSERT INTO quota_usage (tenant_id, period, active_concurrent_processes, recordings_this_period, storage_bytes)
			VALUES ($1, $2, 0, 0, COALESCE((SELECT storage_bytes FROM quota_usage WHERE tenant_id = $1 ORDER BY period DESC LIMIT 1), 0))
			ON CONFLICT (tenant_id, period) DO NOTHING`,
			tenantID, period)
		if insErr != nil {
			return models.QuotaUsage{}, insErr
		}
		return r.lockedUsage(ctx, tx, tenantID, period)
	}
	if err != nil {
		return models.QuotaUsage{}, err
	}
	return usage, nil
}

func (r *QuotaRepo) ReserveProcess(ctx context.Context, tenantID, period string, limits models.Limits) (models.QuotaUsage, error) {
	var result models.QuotaUsage
	err := withTx(ctx, r.Conn, func(tx *sql.Tx) error {
		usage, err := r.lockedUsage(ctx, tx, tenantID, period)
		if err != nil {
			return err
		}
		if usage.ActiveConcurrentProcesses >= limits.MaxConcurrentProcesses {
			return errs.New(errs.QuotaExceeded, "concurrency limit reached")
		}
		if limits.MaxRecordingsPerMonth > 0 && usage.RecordingsThisPeriod >= limits.MaxRecordingsPerMonth {
			return errs.New(errs.QuotaExceeded, "monthly recording limit reached")
		}
		usage.ActiveConcurrentProcesses++
		if err := r.writeUsage(ctx, tx, usage); err != nil {
			return err
		}
		result = usage
		return nil
	})
	if err != nil {
		return models.QuotaUsage{}, err
	}
	return result, nil
}

func (r *QuotaRepo) CommitProcess(ctx context.Context, tenantID, period string) (models.QuotaUsage, error) {
	var result models.QuotaUsage
	err := withTx(ctx, r.Conn, func(tx *sql.Tx) error {
		usage, err := r.lockedUsage(ctx, tx, tenantID, period)
		if err != nil {
			return err
		}
		if usage.ActiveConcurrentProcesses > 0 {
			usage.ActiveConcurrentProcesses--
		}
		usage.RecordingsThisPeriod++
		if err := r.writeUsage(ctx, tx, usage); err != nil {
			return err
		}
		result = usage
		return nil
	})
	return result, mapErr(err)
}

func (r *QuotaRepo) ReleaseProcess(ctx context.Context, tenantID, period string) (models.QuotaUsage, error) {
	var result models.QuotaUsage
	err := withTx(ctx, r.Conn, func(tx *sql.Tx) error {
		usage, err := r.lockedUsage(ctx, tx, tenantID, period)
		if err != nil {
			return err
		}
		if usage.ActiveConcurrentProcesses > 0 {
			usage.ActiveConcurrentProcesses--
		}
		if err := r.writeUsage(ctx, tx, usage); err != nil {
			return err
		}
		result = usage
		return nil
	})
	return result, mapErr(err)
}

func (r *QuotaRepo) AddStorage(ctx context.Context, tenantID string, delta int64, quotaBytes int64) (models.QuotaUsage, error) {
	var result models.QuotaUsage
	err := withTx(ctx, r.Conn, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(storage_bytes), 0) FROM quota_usage WHERE tenant_id = $1`, tenantID).Scan(&current)
		if err != nil {
			return err
		}
		next := current + delta
		if delta > 0 && quotaBytes > 0 && next > quotaBytes {
			return errs.New(errs.QuotaExceeded, "storage quota exceeded")
		}

		period := currentPeriod(ctx, tx, tenantID)
		usage, err := r.lockedUsage(ctx, tx, tenantID, period)
		if err != nil {
			return err
		}
		usage.StorageBytes += delta
		if usage.StorageBytes < 0 {
			usage.StorageBytes = 0
		}
		if err := r.writeUsage(ctx, tx, usage); err != nil {
			return err
		}
		result = usage
		return nil
	})
	return result, mapErr(err)
}

// currentPeriod returns the most recently touched period row for tenantID,
// or falls back to an empty string (lockedUsage will then create one)
// when this is the tenant's first quota mutation.
func currentPeriod(ctx context.Context, tx *sql.Tx, tenantID string) string {
	var period string
	_ = tx.QueryRowContext(ctx, `
		SELECT period FROM quota_usage WHERE tenant_id = $1 ORDER BY period DESC LIMIT 1`, tenantID).Scan(&period)
	return period
}

func (r *QuotaRepo) writeUsage(ctx context.Context, tx *sql.Tx, usage models.QuotaUsage) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE quota_usage SET active_concurrent_processes = $1, recordings_this_period = $2, storage_bytes = $3
		WHERE tenant_id = $4 AND period = $5`,
		usage.ActiveConcurrentProcesses, usage.RecordingsThisPeriod, usage.StorageBytes, usage.TenantID, usage.Period)
	return err
}

// ResetMonthly zeroes recordings_this_period for every tenant row still
// in fromPeriod and carries each tenant's storage_bytes forward into a
// fresh newPeriod row, run by the month-boundary background job.
func (r *QuotaRepo) ResetMonthly(ctx context.Context, fromPeriod, newPeriod string) error {
	return withTx(ctx, r.Conn, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT tenant_id, storage_bytes FROM quota_usage WHERE period = $1`, fromPeriod)
		if err != nil {
			return err
		}
		type carry struct {
			tenantID string
			storage  int64
		}
		var carries []carry
		for rows.Next() {
			var c carry
			if err := rows.Scan(&c.tenantID, &c.storage); err != nil {
				rows.Close()
				return err
			}
			carries = append(carries, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, c := range carries {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO quota_usage (tenant_id, period, active_concurrent_processes, recordings_this_period, storage_bytes)
				VALUES ($1, $2, 0, 0, $3)
				ON CONFLICT (tenant_id, period) DO UPDATE SET storage_bytes = EXCLUDED.storage_bytes`,
				c.tenantID, newPeriod, c.storage)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
