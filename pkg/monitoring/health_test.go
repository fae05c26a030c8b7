package monitoring

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthChecker_Basic(t *testing.T) {
	hc := NewHealthChecker("svc", "v1")
	hc.AddCheck("ok", func() CheckResult { return CheckResult{Status: "healthy"} })
	status := hc.CheckHealth()
	if status.Status != "healthy" {
		t.Fatalf("expected healthy")
	}
}

func TestHTTPServiceHealthCheck(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) }))
	defer s.Close()
	res := HTTPServiceHealthCheck("svc", s.URL)()
	if res.Status != "healthy" {
		t.Fatalf("expected healthy")
	}
}

func TestDatabaseHealthCheck(t *testing.T) {
	// No check is built or run here: a zero sql.DB has no driver, and
	// this package registers none, so DatabaseHealthCheck is not exercised.
	db := &sql.DB{}
	_ = db
}

func TestVaultKeyHealthCheck(t *testing.T) {
	res := VaultKeyHealthCheck(func() error { return nil })()
	if res.Status != "healthy" {
		t.Fatalf("expected healthy")
	}

	res = VaultKeyHealthCheck(func() error { return context.DeadlineExceeded })()
	if res.Status != "unhealthy" {
		t.Fatalf("expected unhealthy")
	}
}
