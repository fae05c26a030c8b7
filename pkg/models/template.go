package models

import "time"

// TemplateStatus tracks whether a template is ready to bind recordings.
type TemplateStatus string

const (
	TemplateDraft  TemplateStatus = "draft"
	TemplateActive TemplateStatus = "active"
)

// Template bundles matching rules, processing/transcription overrides,
// metadata templates, and output configs.
type Template struct {
	ID           string         `json:"id" db:"id"`
	TenantID     string         `json:"tenant_id" db:"tenant_id"`
	Name         string         `json:"name" db:"name"`
	Status       TemplateStatus `json:"status" db:"status"`
	Priority     int            `json:"priority" db:"priority"`
	ProcessingConfig   JSONB    `json:"processing_config" db:"processing_config"`
	TranscriptionConfig JSONB   `json:"transcription_config" db:"transcription_config"`
	MetadataConfig     JSONB    `json:"metadata_config" db:"metadata_config"`
	OutputConfigs      []OutputConfig `json:"output_configs" db:"-"`
	Rules        []MatchingRule `json:"rules" db:"-"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// OutputConfig binds a Template to one Output Preset, with per-template
// metadata overrides layered on the preset's defaults.
type OutputConfig struct {
	ID             string `json:"id" db:"id"`
	TemplateID     string `json:"template_id" db:"template_id"`
	PresetID       string `json:"preset_id" db:"preset_id"`
	MetadataOverride JSONB `json:"metadata_override" db:"metadata_override"`
	Enabled        bool   `json:"enabled" db:"enabled"`
}

// MatchType selects how a MatchingRule's pattern is applied to a
// recording's display_name.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
)

// MatchingRule is a child of Template; the matcher evaluates a template's
// rules in Priority order (descending) and the first hit wins.
type MatchingRule struct {
	ID         string      `json:"id" db:"id"`
	TemplateID string      `json:"template_id" db:"template_id"`
	MatchType  MatchType   `json:"match_type" db:"match_type"`
	Pattern    string      `json:"pattern" db:"pattern"`
	SourceType *SourceType `json:"source_type,omitempty" db:"source_type"`
	SourceID   *string     `json:"source_id,omitempty" db:"source_id"`
	Priority   int         `json:"priority" db:"priority"`
}
