package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"mediahub/internal/errs"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// memStore is a mutex-guarded in-memory Store, standing in for the
// Postgres SELECT ... FOR UPDATE transaction the real implementation
// uses. The mutex gives the same atomicity guarantee the store interface
// requires, which is exactly what these tests exercise.
type memStore struct {
	mu   sync.Mutex
	rows map[string]models.QuotaUsage
}

func newMemStore() *memStore { return &memStore{rows: map[string]models.QuotaUsage{}} }

func (m *memStore) key(tenantID, period string) string { return tenantID + "/" + period }

func (m *memStore) ReserveProcess(_ context.Context, tenantID, period string, limits models.Limits) (models.QuotaUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(tenantID, period)
	row := m.rows[k]
	row.TenantID, row.Period = tenantID, period

	if limits.MaxConcurrentProcesses > 0 && row.ActiveConcurrentProcesses >= limits.MaxConcurrentProcesses {
		return row, errs.New(errs.QuotaExceeded, "concurrent process limit reached")
	}
	if limits.MaxRecordingsPerMonth > 0 && row.RecordingsThisPeriod >= limits.MaxRecordingsPerMonth {
		return row, errs.New(errs.QuotaExceeded, "monthly recording limit reached")
	}
	row.ActiveConcurrentProcesses++
	m.rows[k] = row
	return row, nil
}

func (m *memStore) CommitProcess(_ context.Context, tenantID, period string) (models.QuotaUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(tenantID, period)
	row := m.rows[k]
	row.ActiveConcurrentProcesses--
	row.RecordingsThisPeriod++
	m.rows[k] = row
	return row, nil
}

func (m *memStore) ReleaseProcess(_ context.Context, tenantID, period string) (models.QuotaUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(tenantID, period)
	row := m.rows[k]
	row.ActiveConcurrentProcesses--
	m.rows[k] = row
	return row, nil
}

func (m *memStore) AddStorage(_ context.Context, tenantID string, delta int64, quotaBytes int64) (models.QuotaUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(tenantID, "_storage")
	row := m.rows[k]
	row.TenantID = tenantID
	if delta > 0 && quotaBytes > 0 && row.StorageBytes+delta > quotaBytes {
		return row, errs.New(errs.QuotaExceeded, "disk quota exceeded")
	}
	row.StorageBytes += delta
	m.rows[k] = row
	return row, nil
}

func (m *memStore) ResetMonthly(_ context.Context, fromPeriod, newPeriod string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, row := range m.rows {
		if row.Period == fromPeriod {
			row.RecordingsThisPeriod = 0
			row.Period = newPeriod
			delete(m.rows, k)
			m.rows[m.key(row.TenantID, newPeriod)] = row
		}
	}
	return nil
}

func TestReserveRejectsOverConcurrencyLimit(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	tc := tenantctx.Context{TenantID: "t1", Limits: models.Limits{MaxConcurrentProcesses: 1}}

	h1, err := svc.Reserve(context.Background(), tc)
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	_, err = svc.Reserve(context.Background(), tc)
	if !errs.Is(err, errs.QuotaExceeded) {
		t.Fatalf("expected QuotaExceeded on second reserve, got %v", err)
	}

	if err := svc.Release(context.Background(), h1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := svc.Reserve(context.Background(), tc); err != nil {
		t.Fatalf("expected reserve to succeed after release, got %v", err)
	}
}

func TestReserveConcurrentRaceRespectsLimit(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	tc := tenantctx.Context{TenantID: "t1", Limits: models.Limits{MaxConcurrentProcesses: 3}}

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reserve(context.Background(), tc); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Fatalf("expected exactly 3 successful reservations under the limit, got %d", succeeded)
	}
}

func TestCommitCountsRecordingAndFreesSlot(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	tc := tenantctx.Context{TenantID: "t1", Limits: models.Limits{MaxConcurrentProcesses: 1, MaxRecordingsPerMonth: 5}}

	h, err := svc.Reserve(context.Background(), tc)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Commit(context.Background(), h); err != nil {
		t.Fatalf("commit: %v", err)
	}

	period := Period(time.Now())
	row := store.rows[store.key("t1", period)]
	if row.ActiveConcurrentProcesses != 0 || row.RecordingsThisPeriod != 1 {
		t.Fatalf("got %+v", row)
	}

	if err := svc.Commit(context.Background(), h); err == nil {
		t.Fatal("expected error committing an already-consumed handle")
	}
}

func TestTrackStorageRejectsOverQuota(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	tc := tenantctx.Context{TenantID: "t1", Limits: models.Limits{QuotaDiskBytes: 100}}

	if err := svc.TrackStorageAdded(context.Background(), tc, 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.TrackStorageAdded(context.Background(), tc, 60); !errs.Is(err, errs.QuotaExceeded) {
		t.Fatalf("expected QuotaExceeded, got %v", err)
	}
	if err := svc.TrackStorageRemoved(context.Background(), tc, 60); err != nil {
		t.Fatalf("unexpected error removing storage: %v", err)
	}
}

func TestResetMonthlyZeroesRecordingsKeepsStorage(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	now := time.Now()
	from := Period(now.AddDate(0, -1, 0))
	store.rows[store.key("t1", from)] = models.QuotaUsage{TenantID: "t1", Period: from, RecordingsThisPeriod: 9, StorageBytes: 1000}

	if err := svc.ResetMonthly(context.Background(), now); err != nil {
		t.Fatalf("ResetMonthly: %v", err)
	}

	newPeriod := Period(now)
	row := store.rows[store.key("t1", newPeriod)]
	if row.RecordingsThisPeriod != 0 {
		t.Fatalf("expected recordings reset, got %d", row.RecordingsThisPeriod)
	}
	if row.StorageBytes != 1000 {
		t.Fatalf("expected storage carried forward, got %d", row.StorageBytes)
	}
}
