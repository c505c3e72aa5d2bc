package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"scribe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTranscription, "whisper", "transcribe", "helper exited", base)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"whisper", "transcribe", "helper exited", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conversion", services.Wrap(services.ErrConversion, "normalize", "ffmpeg", "bad codec", nil), false},
		{"cleanup", fmt.Errorf("remove temp: %w", services.ErrCleanup), false},
		{"missing input", services.Wrap(services.ErrMissingInput, "workflow", "", "audio file not found", nil), true},
		{"transcription", services.Wrap(services.ErrTranscription, "whisper", "", "decode", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "workflow", "", "deadline", context.DeadlineExceeded), true},
		{"configuration", services.Wrap(services.ErrConfiguration, "whisper", "", "no module named faster_whisper", nil), true},
		{"unclassified", errors.New("surprise"), false},
	}
	for _, tc := range cases {
		if got := services.IsFatal(tc.err); got != tc.want {
			t.Errorf("%s: IsFatal=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestFailureMessage(t *testing.T) {
	err := services.Wrap(services.ErrMissingInput, "workflow", "", "audio file not found: /tmp/a.mp3", nil)
	got := services.FailureMessage(err)
	if !strings.HasPrefix(got, "Transcription failed: ") || !strings.Contains(got, "audio file not found") {
		t.Fatalf("unexpected failure message %q", got)
	}
	if again := services.FailureMessage(errors.New(got)); again != got {
		t.Fatalf("prefix should not repeat: %q", again)
	}
	if services.FailureMessage(nil) == "" {
		t.Fatal("expected non-empty message for nil error")
	}
}
