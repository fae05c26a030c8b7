// Package vault implements the Credential Vault: encrypted storage,
// decrypt-on-use, and per-platform OAuth refresh, per spec §4.2.
package vault

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"mediahub/internal/errs"
	"mediahub/internal/tenantctx"
	"mediahub/pkg/crypto"
	"mediahub/pkg/models"
)

// Repo is the persistence boundary the vault needs; implemented over
// Postgres in internal/repo.
type Repo interface {
	Insert(ctx context.Context, tc tenantctx.Context, cred models.Credential) (string, error)
	Get(ctx context.Context, tc tenantctx.Context, platform models.Platform, accountKey string) (models.Credential, error)
	GetByID(ctx context.Context, tc tenantctx.Context, id string) (models.Credential, error)
	List(ctx context.Context, tc tenantctx.Context) ([]models.Credential, error)
	Delete(ctx context.Context, tc tenantctx.Context, id string) error
	UpdateCiphertext(ctx context.Context, tc tenantctx.Context, id string, ciphertext string) error
	TouchLastUsed(ctx context.Context, tc tenantctx.Context, id string) error
}

// Refresher performs an OAuth token refresh for a platform. Concrete
// implementations live outside the core (spec §4.10 boundary); the vault
// only knows how to dispatch to the right one by platform.
type Refresher interface {
	Refresh(ctx context.Context, bundle models.OAuthBundle) (models.OAuthBundle, error)
}

// Vault is the Credential Vault.
type Vault struct {
	repo       Repo
	encryptor  *crypto.FieldEncryptor
	refreshers map[models.Platform]Refresher
	sf         singleflight.Group
}

// New derives the field-encryption key from masterSecret (process-wide,
// injected via external secret; never logged) and wires platform
// refreshers.
func New(repo Repo, masterSecret []byte, refreshers map[models.Platform]Refresher) (*Vault, error) {
	enc, err := crypto.DeriveFieldEncryptor(masterSecret, "credential-vault")
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "derive vault encryption key", err)
	}
	return &Vault{repo: repo, encryptor: enc, refreshers: refreshers}, nil
}

// Put encrypts plaintext and stores it, returning the new credential id.
func (v *Vault) Put(ctx context.Context, tc tenantctx.Context, platform models.Platform, accountKey string, plaintext string, metadata models.JSONB) (string, error) {
	ciphertext, err := v.encryptor.Encrypt(plaintext)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "encrypt credential", err)
	}
	cred := models.Credential{
		TenantID:   tc.TenantID,
		Platform:   platform,
		AccountKey: accountKey,
		Ciphertext: ciphertext,
		Metadata:   metadata,
	}
	return v.repo.Insert(ctx, tc, cred)
}

// Get decrypts and returns the plaintext for (platform, account_key),
// refreshing first if the stored credential is an expired OAuth bundle.
// Concurrent callers for the same key collapse onto one decrypt via
// singleflight.
func (v *Vault) Get(ctx context.Context, tc tenantctx.Context, platform models.Platform, accountKey string) (string, error) {
	key := tc.TenantID + "|" + string(platform) + "|" + accountKey
	res, err, _ := v.sf.Do(key, func() (interface{}, error) {
		return v.getLocked(ctx, tc, platform, accountKey)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (v *Vault) getLocked(ctx context.Context, tc tenantctx.Context, platform models.Platform, accountKey string) (string, error) {
	cred, err := v.repo.Get(ctx, tc, platform, accountKey)
	if err != nil {
		return "", err
	}

	plaintext, err := v.encryptor.Decrypt(cred.Ciphertext)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "decrypt credential", err)
	}

	if bundle, ok := asOAuthBundle(plaintext); ok && time.Now().After(bundle.ExpiresAt) {
		refreshed, err := v.refresh(ctx, tc, platform, cred.ID, bundle)
		if err != nil {
			return "", err
		}
		plaintext = refreshed
	}

	_ = v.repo.TouchLastUsed(ctx, tc, cred.ID) // best-effort

	return plaintext, nil
}

// Refresh forces a refresh of the credential at id (for OAuth platforms),
// persists the new ciphertext, and returns the fresh plaintext.
func (v *Vault) Refresh(ctx context.Context, tc tenantctx.Context, id string) (string, error) {
	cred, err := v.repo.GetByID(ctx, tc, id)
	if err != nil {
		return "", err
	}
	plaintext, err := v.encryptor.Decrypt(cred.Ciphertext)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "decrypt credential", err)
	}
	bundle, ok := asOAuthBundle(plaintext)
	if !ok {
		return "", errs.New(errs.Validation, "credential is not an OAuth bundle")
	}
	return v.refresh(ctx, tc, cred.Platform, cred.ID, bundle)
}

func (v *Vault) refresh(ctx context.Context, tc tenantctx.Context, platform models.Platform, credID string, bundle models.OAuthBundle) (string, error) {
	if bundle.RefreshToken == "" {
		return "", errs.New(errs.AuthExpired, "credential expired and has no refresh token")
	}
	refresher, ok := v.refreshers[platform]
	if !ok {
		return "", errs.New(errs.AuthExpired, "credential expired; no refresher configured for platform")
	}

	refreshed, err := refresher.Refresh(ctx, bundle)
	if err != nil {
		return "", errs.Wrap(errs.AuthExpired, "refresh failed", err)
	}

	raw, err := json.Marshal(refreshed)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "marshal refreshed bundle", err)
	}
	plaintext := string(raw)

	ciphertext, err := v.encryptor.Encrypt(plaintext)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "encrypt refreshed credential", err)
	}
	if err := v.repo.UpdateCiphertext(ctx, tc, credID, ciphertext); err != nil {
		return "", err
	}
	return plaintext, nil
}

// List returns non-secret metadata for every credential owned by the
// tenant.
func (v *Vault) List(ctx context.Context, tc tenantctx.Context) ([]models.Credential, error) {
	return v.repo.List(ctx, tc)
}

// Delete removes a credential. Pipeline stages in flight against it will
// fail on their next lookup (NotFound), not at delete time.
func (v *Vault) Delete(ctx context.Context, tc tenantctx.Context, id string) error {
	return v.repo.Delete(ctx, tc, id)
}

func asOAuthBundle(plaintext string) (models.OAuthBundle, bool) {
	var bundle models.OAuthBundle
	if err := json.Unmarshal([]byte(plaintext), &bundle); err != nil {
		return models.OAuthBundle{}, false
	}
	if bundle.AccessToken == "" || bundle.ExpiresAt.IsZero() {
		return models.OAuthBundle{}, false
	}
	return bundle, true
}
