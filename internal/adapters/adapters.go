// Package adapters defines the Source and Sink platform adapter
// interfaces (spec §4.10) and a registry that looks implementations up by
// Platform without reflection. Concrete adapters (conferencing cloud,
// hosting A/B, cloud drive) live outside this package; the core depends
// only on these interfaces.
package adapters

import (
	"context"
	"time"

	"mediahub/internal/errs"
	"mediahub/pkg/models"
)

// RecordingCandidate is one item a Source Adapter's List call surfaces,
// before it becomes a Recording row.
type RecordingCandidate struct {
	SourceKey       string
	DisplayName     string
	StartTime       time.Time
	DurationSeconds int
	SizeBytes       int64
	RawPayload      models.JSONB
}

// ProgressFunc reports bytes transferred against a known (or unknown, 0)
// total; adapters call it from within their I/O loop so the pipeline
// executor can derive stage progress.
type ProgressFunc func(transferred, total int64)

// Source is the adapter boundary for pulling recordings out of a
// configured ingestion endpoint.
type Source interface {
	// List returns candidates discovered in [from, to) for source.
	List(ctx context.Context, tenant models.Tenant, source models.Source, from, to time.Time) ([]RecordingCandidate, error)
	// Fetch downloads one candidate to localPath, reporting progress and
	// honoring ctx cancellation as a cooperative cancel point.
	Fetch(ctx context.Context, tenant models.Tenant, source models.Source, candidate RecordingCandidate, localPath string, progress ProgressFunc) error
}

// Capabilities enumerates optional features a Sink adapter supports, so
// the Upload stage can skip work the target platform can't use.
type Capabilities struct {
	Subtitles  bool
	Playlist   bool
	Thumbnail  bool
	PublishAt  bool
}

// UploadMetadata is the rendered (post template-substitution) metadata
// passed to a Sink's Upload call.
type UploadMetadata struct {
	Title       string
	Description string
	Tags        []string
	Category    string
	Privacy     string
	PlaylistID  string
	ThumbnailPath string
	PublishAt   *time.Time
	SubtitlePaths map[string]string // format -> path, e.g. "srt" -> path
}

// Sink is the adapter boundary for publishing an uploaded video and its
// metadata to one output platform.
type Sink interface {
	Capabilities() Capabilities
	Upload(ctx context.Context, tenant models.Tenant, target models.OutputTarget, videoPath string, meta UploadMetadata, progress ProgressFunc) (models.TargetMeta, error)
	UpdateMetadata(ctx context.Context, tenant models.Tenant, target models.OutputTarget, remoteID string, meta UploadMetadata) (models.TargetMeta, error)
}

// Registry resolves adapters by Platform. Lookups are a plain map index,
// never reflection over a type name.
type Registry struct {
	sources map[models.SourceType]Source
	sinks   map[models.Platform]Sink
}

func NewRegistry() *Registry {
	return &Registry{sources: map[models.SourceType]Source{}, sinks: map[models.Platform]Sink{}}
}

// RegisterSource binds a Source implementation to a source type. Intended
// to be called once at startup per supported source type.
func (r *Registry) RegisterSource(t models.SourceType, s Source) {
	r.sources[t] = s
}

// RegisterSink binds a Sink implementation to a target platform.
func (r *Registry) RegisterSink(p models.Platform, s Sink) {
	r.sinks[p] = s
}

// Source looks up the adapter for a source type.
func (r *Registry) Source(t models.SourceType) (Source, error) {
	s, ok := r.sources[t]
	if !ok {
		return nil, errs.New(errs.Internal, "no source adapter registered for "+string(t))
	}
	return s, nil
}

// Sink looks up the adapter for a target platform.
func (r *Registry) Sink(p models.Platform) (Sink, error) {
	s, ok := r.sinks[p]
	if !ok {
		return nil, errs.New(errs.Internal, "no sink adapter registered for "+string(p))
	}
	return s, nil
}
