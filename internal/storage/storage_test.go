package storage

import (
	"strings"
	"testing"
)

func TestRecordingDirIsDeterministicAndPartitionedByTenant(t *testing.T) {
	b := New("/data/mediahub")
	d1 := b.RecordingDir("tenant-a", "rec-1")
	d2 := b.RecordingDir("tenant-a", "rec-1")
	if d1 != d2 {
		t.Fatal("expected the same inputs to produce the same path")
	}
	if d1 == b.RecordingDir("tenant-b", "rec-1") {
		t.Fatal("expected different tenants to never collide on the same recording directory")
	}
	if !strings.HasPrefix(d1, "/data/mediahub/users/tenant-a/recordings/rec-1") {
		t.Fatalf("got %q", d1)
	}
}

func TestArtifactPathsNestUnderRecordingDir(t *testing.T) {
	b := New("/data/mediahub")
	dir := b.RecordingDir("t1", "r1")

	for _, p := range []string{
		b.SourcePath("t1", "r1", "mp4"),
		b.VideoPath("t1", "r1", "mp4"),
		b.AudioPath("t1", "r1"),
		b.MasterTranscriptPath("t1", "r1"),
		b.TopicsPath("t1", "r1", 2),
		b.SubtitlePath("t1", "r1", "srt"),
		b.CustomThumbnailPath("t1", "r1"),
	} {
		if !strings.HasPrefix(p, dir) {
			t.Fatalf("expected %q to nest under %q", p, dir)
		}
	}
}

func TestTopicsPathVersionsIndependently(t *testing.T) {
	b := New("/data/mediahub")
	v1 := b.TopicsPath("t1", "r1", 1)
	v2 := b.TopicsPath("t1", "r1", 2)
	if v1 == v2 {
		t.Fatal("expected distinct versions to produce distinct paths")
	}
}

func TestSharedThumbnailsAreNotTenantScoped(t *testing.T) {
	b := New("/data/mediahub")
	if strings.Contains(b.SharedThumbnailsDir(), "users") {
		t.Fatal("shared thumbnails must not live under a tenant's users/ tree")
	}
}

func TestTempDirPartitionedByTenantAndJob(t *testing.T) {
	b := New("/data/mediahub")
	if b.TempDir("t1", "job-a") == b.TempDir("t1", "job-b") {
		t.Fatal("expected distinct jobs to get distinct temp directories")
	}
}
