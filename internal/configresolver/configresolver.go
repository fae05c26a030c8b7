// Package configresolver produces the effective config for a recording by
// deep-merging three layers: tenant defaults, template config, and a
// per-recording override, per spec §4.3.
package configresolver

import (
	"context"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// TenantDefaultsRepo reads the single tenant-defaults document.
type TenantDefaultsRepo interface {
	Get(ctx context.Context, tc tenantctx.Context) (models.JSONB, error)
}

// TemplateRepo reads a template's override documents live, so edits take
// effect immediately for any bound recording whose override doesn't mask
// the changed key.
type TemplateRepo interface {
	GetConfigDocs(ctx context.Context, tc tenantctx.Context, templateID string) (processing, transcription, metadata models.JSONB, err error)
}

// RecordingRepo reads/writes the per-recording override and the captured
// snapshot.
type RecordingRepo interface {
	Get(ctx context.Context, tc tenantctx.Context, recordingID string) (models.Recording, error)
	SetOverride(ctx context.Context, tc tenantctx.Context, recordingID string, override models.JSONB) error
	SetSnapshot(ctx context.Context, tc tenantctx.Context, recordingID string, snapshot models.JSONB) error
}

// Resolver is the Config Resolver.
type Resolver struct {
	tenants   TenantDefaultsRepo
	templates TemplateRepo
	recordings RecordingRepo
}

func New(tenants TenantDefaultsRepo, templates TemplateRepo, recordings RecordingRepo) *Resolver {
	return &Resolver{tenants: tenants, templates: templates, recordings: recordings}
}

// Resolve computes the live effective config for a recording: tenant
// defaults, deep-merged with the bound template's config (if any),
// deep-merged with the recording's stored per-recording override.
func (r *Resolver) Resolve(ctx context.Context, tc tenantctx.Context, rec models.Recording) (models.JSONB, error) {
	base, err := r.tenants.Get(ctx, tc)
	if err != nil {
		return nil, err
	}
	merged := base.Clone()

	if rec.TemplateID != nil {
		processing, transcription, metadata, err := r.templates.GetConfigDocs(ctx, tc, *rec.TemplateID)
		if err != nil {
			return nil, err
		}
		templateDoc := models.JSONB{
			"processing":    map[string]interface{}(processing),
			"transcription": map[string]interface{}(transcription),
			"metadata":      map[string]interface{}(metadata),
		}
		merged = DeepMerge(merged, templateDoc)
	}

	if rec.PerRecordingOverride != nil {
		merged = DeepMerge(merged, rec.PerRecordingOverride)
	}

	return merged, nil
}

// CaptureSnapshotIfAbsent resolves the live config and persists it as the
// recording's immutable snapshot, the first time a recording advances past
// INITIALIZED. A no-op if a snapshot already exists.
func (r *Resolver) CaptureSnapshotIfAbsent(ctx context.Context, tc tenantctx.Context, rec models.Recording) (models.JSONB, error) {
	if rec.EffectiveConfig != nil {
		return rec.EffectiveConfig, nil
	}
	resolved, err := r.Resolve(ctx, tc, rec)
	if err != nil {
		return nil, err
	}
	if err := r.recordings.SetSnapshot(ctx, tc, rec.ID, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// ResetConfig clears the per-recording override, and the snapshot too if
// no stage has started yet (status still INITIALIZED).
func (r *Resolver) ResetConfig(ctx context.Context, tc tenantctx.Context, recordingID string) error {
	rec, err := r.recordings.Get(ctx, tc, recordingID)
	if err != nil {
		return err
	}
	if err := r.recordings.SetOverride(ctx, tc, recordingID, nil); err != nil {
		return err
	}
	if rec.Status == models.StatusInitialized {
		return r.recordings.SetSnapshot(ctx, tc, recordingID, nil)
	}
	return nil
}

// DeepMerge merges override onto base: maps merge key-by-key recursively,
// scalars/arrays are replaced wholesale, and an explicit null on override
// unsets the key rather than merging it. Unknown keys from either side are
// preserved.
func DeepMerge(base, override models.JSONB) models.JSONB {
	if base == nil && override == nil {
		return nil
	}
	out := base.Clone()
	if out == nil {
		out = models.JSONB{}
	}
	for k, v := range override {
		if v == nil {
			delete(out, k)
			continue
		}
		if overrideMap, ok := asMap(v); ok {
			if baseMap, ok := asMap(out[k]); ok {
				out[k] = map[string]interface{}(DeepMerge(models.JSONB(baseMap), models.JSONB(overrideMap)))
				continue
			}
		}
		out[k] = v
	}
	return out
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case models.JSONB:
		return map[string]interface{}(t), true
	default:
		return nil, false
	}
}

