package models

import "time"

// Platform enumerates the external systems a Credential can authenticate
// against.
type Platform string

const (
	PlatformSourceProvider Platform = "source_provider"
	PlatformHostingA       Platform = "hosting_a"
	PlatformHostingB       Platform = "hosting_b"
	PlatformCloudDrive     Platform = "cloud_drive"
	PlatformSpeechService  Platform = "speech_service"
	PlatformTopicService   Platform = "topic_service"
)

// Credential is the tuple (tenant_id, platform, account_key); the vault
// holds the opaque ciphertext, this struct carries the non-secret metadata
// that is safe to index and list.
type Credential struct {
	ID         string     `json:"id" db:"id"`
	TenantID   string     `json:"tenant_id" db:"tenant_id"`
	Platform   Platform   `json:"platform" db:"platform"`
	AccountKey string     `json:"account_key" db:"account_key"`
	Ciphertext string     `json:"-" db:"ciphertext"`
	Metadata   JSONB      `json:"metadata" db:"metadata"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// OAuthBundle is the credential shape for platforms that authenticate via
// OAuth (conferencing cloud, hosting A, cloud drive).
type OAuthBundle struct {
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ServerToServerBundle is the conferencing-cloud shape used for
// server-to-server auth instead of user OAuth.
type ServerToServerBundle struct {
	AccountID    string `json:"account_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// LongLivedToken is the hosting-B shape: a token with no refresh flow.
type LongLivedToken struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
}

// APIKey is the speech-service / topic-service shape.
type APIKey struct {
	Key string `json:"key"`
}
