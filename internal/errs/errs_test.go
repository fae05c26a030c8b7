package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(NotFound, "recording 42 not found")
	if !Is(err, NotFound) {
		t.Fatalf("expected Is(err, NotFound) true")
	}
	if Is(err, Conflict) {
		t.Fatalf("expected Is(err, Conflict) false")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(Transient, "download failed", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if KindOf(err) != Transient {
		t.Fatalf("expected Transient kind, got %s", KindOf(err))
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	plain := errors.New("unclassified")
	if KindOf(plain) != Internal {
		t.Fatalf("expected Internal for unclassified error")
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(StagePermanent, "trim failed", cause)
	msg := err.Error()
	if !strings.Contains(msg, "boom") {
		t.Fatalf("expected message to include the cause, got %q", msg)
	}
	if got := fmt.Sprintf("%v", err); got == "" {
		t.Fatal("expected v-verb formatting to produce a message")
	}
}
