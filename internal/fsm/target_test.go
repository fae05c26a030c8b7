package fsm

import (
	"testing"
	"time"

	"mediahub/pkg/models"
)

func TestTargetUploadLifecycle(t *testing.T) {
	target := models.OutputTarget{Status: models.TargetNotUploaded}

	uploading, err := StartUpload(target)
	if err != nil || uploading.Status != models.TargetUploading {
		t.Fatalf("StartUpload: %v, %+v", err, uploading)
	}

	now := time.Now()
	done, err := CompleteUpload(uploading, models.TargetMeta{RemoteID: "abc"}, now)
	if err != nil {
		t.Fatalf("CompleteUpload: %v", err)
	}
	if done.Status != models.TargetUploaded || done.TargetMeta.RemoteID != "abc" {
		t.Fatalf("got %+v", done)
	}
}

func TestTargetRetriesBeforeFailing(t *testing.T) {
	target := models.OutputTarget{Status: models.TargetUploading}
	now := time.Now()

	for i := 0; i < maxTargetRetries; i++ {
		next, err := FailUpload(target, now)
		if err != nil {
			t.Fatalf("FailUpload: %v", err)
		}
		if next.Status != models.TargetUploading {
			t.Fatalf("expected to stay uploading under retry budget, got %v at iteration %d", next.Status, i)
		}
		target = next
	}

	final, err := FailUpload(target, now)
	if err != nil {
		t.Fatalf("FailUpload: %v", err)
	}
	if final.Status != models.TargetFailed {
		t.Fatalf("expected FAILED after retry budget exhausted, got %v", final.Status)
	}
}

func TestUpdateMetadataDoesNotChangeStatus(t *testing.T) {
	now := time.Now()
	target := models.OutputTarget{Status: models.TargetUploaded, TargetMeta: models.TargetMeta{RemoteID: "old"}}
	next, err := UpdateMetadata(target, models.TargetMeta{RemoteID: "new"}, now)
	if err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	if next.Status != models.TargetUploaded {
		t.Fatalf("expected status unchanged, got %v", next.Status)
	}
	if next.TargetMeta.RemoteID != "new" {
		t.Fatalf("expected metadata updated, got %+v", next.TargetMeta)
	}
}

func TestCombinedStatusAllUploaded(t *testing.T) {
	targets := []models.OutputTarget{
		{Status: models.TargetUploaded}, {Status: models.TargetUploaded},
	}
	status, failed, failedAtStage, allTerminal := CombinedStatus(targets)
	if !allTerminal || status != models.StatusUploaded || failed || failedAtStage != nil {
		t.Fatalf("got %v %v %v %v", status, failed, failedAtStage, allTerminal)
	}
}

func TestCombinedStatusMixedIsPartialSuccess(t *testing.T) {
	targets := []models.OutputTarget{
		{Status: models.TargetUploaded}, {Status: models.TargetFailed},
	}
	status, failed, failedAtStage, allTerminal := CombinedStatus(targets)
	if !allTerminal || status != models.StatusUploaded || !failed {
		t.Fatalf("got %v %v %v %v", status, failed, failedAtStage, allTerminal)
	}
	if failedAtStage == nil || *failedAtStage != models.StageUpload {
		t.Fatalf("expected failed_at_stage=upload, got %v", failedAtStage)
	}
}

func TestCombinedStatusAllFailedIsRetryable(t *testing.T) {
	targets := []models.OutputTarget{
		{Status: models.TargetFailed}, {Status: models.TargetFailed},
	}
	status, failed, _, allTerminal := CombinedStatus(targets)
	if !allTerminal || status != models.StatusTranscribed || !failed {
		t.Fatalf("got %v %v %v", status, failed, allTerminal)
	}
}

func TestCombinedStatusNonTerminalStaysUploading(t *testing.T) {
	targets := []models.OutputTarget{
		{Status: models.TargetUploaded}, {Status: models.TargetUploading},
	}
	_, _, _, allTerminal := CombinedStatus(targets)
	if allTerminal {
		t.Fatal("expected allTerminal=false while a target is still uploading")
	}
}

func TestApplyCombinedStatusStaysUploadingWhilePending(t *testing.T) {
	rec := models.Recording{Status: models.StatusUploading}
	targets := []models.OutputTarget{{Status: models.TargetUploaded}, {Status: models.TargetUploading}}
	next := ApplyCombinedStatus(rec, targets)
	if next.Status != models.StatusUploading {
		t.Fatalf("expected UPLOADING, got %v", next.Status)
	}
}

func TestAddTargetReopensUploadedRecording(t *testing.T) {
	rec := models.Recording{Status: models.StatusUploaded}
	next := AddTarget(rec)
	if next.Status != models.StatusUploading {
		t.Fatalf("expected reopened recording to move to UPLOADING, got %v", next.Status)
	}
}
