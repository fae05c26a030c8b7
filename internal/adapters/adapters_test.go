package adapters

import (
	"context"
	"testing"
	"time"

	"mediahub/internal/errs"
	"mediahub/pkg/models"
)

type fakeSource struct{}

func (fakeSource) List(context.Context, models.Tenant, models.Source, time.Time, time.Time) ([]RecordingCandidate, error) {
	return []RecordingCandidate{{SourceKey: "abc"}}, nil
}

func (fakeSource) Fetch(context.Context, models.Tenant, models.Source, RecordingCandidate, string, ProgressFunc) error {
	return nil
}

type fakeSink struct{}

func (fakeSink) Capabilities() Capabilities { return Capabilities{Subtitles: true} }

func (fakeSink) Upload(context.Context, models.Tenant, models.OutputTarget, string, UploadMetadata, ProgressFunc) (models.TargetMeta, error) {
	return models.TargetMeta{RemoteID: "r1"}, nil
}

func (fakeSink) UpdateMetadata(context.Context, models.Tenant, models.OutputTarget, string, UploadMetadata) (models.TargetMeta, error) {
	return models.TargetMeta{RemoteID: "r1"}, nil
}

func TestRegistryResolvesRegisteredAdapters(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource(models.SourceTypeConferencing, fakeSource{})
	reg.RegisterSink(models.PlatformHostingA, fakeSink{})

	src, err := reg.Source(models.SourceTypeConferencing)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	candidates, err := src.List(context.Background(), models.Tenant{}, models.Source{}, time.Time{}, time.Time{})
	if err != nil || len(candidates) != 1 {
		t.Fatalf("got %v, %v", candidates, err)
	}

	sink, err := reg.Sink(models.PlatformHostingA)
	if err != nil {
		t.Fatalf("Sink: %v", err)
	}
	if !sink.Capabilities().Subtitles {
		t.Fatal("expected capability flag preserved")
	}
}

func TestRegistryRejectsUnregisteredPlatform(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Source(models.SourceTypeLocalFile); !errs.Is(err, errs.Internal) {
		t.Fatalf("expected Internal error for unregistered source, got %v", err)
	}
	if _, err := reg.Sink(models.PlatformHostingB); !errs.Is(err, errs.Internal) {
		t.Fatalf("expected Internal error for unregistered sink, got %v", err)
	}
}
