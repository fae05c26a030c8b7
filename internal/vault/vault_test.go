package vault

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mediahub/internal/errs"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

type fakeRepo struct {
	creds map[string]models.Credential
	seq   int
}

func newFakeRepo() *fakeRepo { return &fakeRepo{creds: map[string]models.Credential{}} }

func (f *fakeRepo) Insert(_ context.Context, tc tenantctx.Context, cred models.Credential) (string, error) {
	f.seq++
	id := "cred-" + string(rune('0'+f.seq))
	cred.ID = id
	cred.TenantID = tc.TenantID
	f.creds[id] = cred
	return id, nil
}

func (f *fakeRepo) Get(_ context.Context, tc tenantctx.Context, platform models.Platform, accountKey string) (models.Credential, error) {
	for _, c := range f.creds {
		if c.TenantID == tc.TenantID && c.Platform == platform && c.AccountKey == accountKey {
			return c, nil
		}
	}
	return models.Credential{}, errs.New(errs.NotFound, "credential not found")
}

func (f *fakeRepo) GetByID(_ context.Context, tc tenantctx.Context, id string) (models.Credential, error) {
	c, ok := f.creds[id]
	if !ok || c.TenantID != tc.TenantID {
		return models.Credential{}, errs.New(errs.NotFound, "credential not found")
	}
	return c, nil
}

func (f *fakeRepo) List(_ context.Context, tc tenantctx.Context) ([]models.Credential, error) {
	var out []models.Credential
	for _, c := range f.creds {
		if c.TenantID == tc.TenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) Delete(_ context.Context, tc tenantctx.Context, id string) error {
	delete(f.creds, id)
	return nil
}

func (f *fakeRepo) UpdateCiphertext(_ context.Context, _ tenantctx.Context, id string, ciphertext string) error {
	c := f.creds[id]
	c.Ciphertext = ciphertext
	f.creds[id] = c
	return nil
}

func (f *fakeRepo) TouchLastUsed(_ context.Context, _ tenantctx.Context, _ string) error { return nil }

type fakeRefresher struct{ calls int }

func (fr *fakeRefresher) Refresh(_ context.Context, bundle models.OAuthBundle) (models.OAuthBundle, error) {
	fr.calls++
	bundle.AccessToken = "refreshed-token"
	bundle.ExpiresAt = time.Now().Add(time.Hour)
	return bundle, nil
}

func TestPutGetRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	v, err := New(repo, []byte("test-secret-material-32-bytes!!"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tc := tenantctx.Context{TenantID: "t1"}
	id, err := v.Put(context.Background(), tc, models.PlatformSpeechService, "default", `{"key":"sk-abc"}`, nil)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	got, err := v.Get(context.Background(), tc, models.PlatformSpeechService, "default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `{"key":"sk-abc"}` {
		t.Fatalf("round-trip mismatch: got %q", got)
	}
}

func TestGetRefreshesExpiredOAuthBundle(t *testing.T) {
	repo := newFakeRepo()
	refresher := &fakeRefresher{}
	v, err := New(repo, []byte("test-secret-material-32-bytes!!"), map[models.Platform]Refresher{
		models.PlatformHostingA: refresher,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tc := tenantctx.Context{TenantID: "t1"}
	expired := models.OAuthBundle{
		AccessToken:  "old-token",
		RefreshToken: "refresh-tok",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}
	raw, _ := json.Marshal(expired)
	if _, err := v.Put(context.Background(), tc, models.PlatformHostingA, "acct", string(raw), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := v.Get(context.Background(), tc, models.PlatformHostingA, "acct")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var bundle models.OAuthBundle
	if err := json.Unmarshal([]byte(got), &bundle); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bundle.AccessToken != "refreshed-token" {
		t.Fatalf("expected refreshed token, got %q", bundle.AccessToken)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", refresher.calls)
	}
}

func TestGetWithExpiredAndNoRefreshTokenFailsAuthExpired(t *testing.T) {
	repo := newFakeRepo()
	v, err := New(repo, []byte("test-secret-material-32-bytes!!"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tc := tenantctx.Context{TenantID: "t1"}
	expired := models.OAuthBundle{
		AccessToken: "old-token",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	raw, _ := json.Marshal(expired)
	if _, err := v.Put(context.Background(), tc, models.PlatformCloudDrive, "acct", string(raw), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err = v.Get(context.Background(), tc, models.PlatformCloudDrive, "acct")
	if !errs.Is(err, errs.AuthExpired) {
		t.Fatalf("expected AuthExpired, got %v", err)
	}
}

func TestCrossTenantGetFailsNotFound(t *testing.T) {
	repo := newFakeRepo()
	v, err := New(repo, []byte("test-secret-material-32-bytes!!"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tcA := tenantctx.Context{TenantID: "tenant-a"}
	tcB := tenantctx.Context{TenantID: "tenant-b"}
	if _, err := v.Put(context.Background(), tcA, models.PlatformSpeechService, "k", "secret", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err = v.Get(context.Background(), tcB, models.PlatformSpeechService, "k")
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound for cross-tenant access, got %v", err)
	}
}
