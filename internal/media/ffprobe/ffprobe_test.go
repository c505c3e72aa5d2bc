package ffprobe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleReport = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "mjpeg"},
    {"index": 1, "codec_type": "audio", "codec_name": "pcm_s16le", "sample_fmt": "s16",
     "sample_rate": "16000", "channels": 1, "channel_layout": "mono", "bits_per_sample": 16}
  ],
  "format": {"filename": "x.wav", "format_name": "wav", "duration": "12.500000", "size": "400044"}
}`

func TestParseAndAudioStream(t *testing.T) {
	result, err := Parse([]byte(sampleReport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	audio, err := result.Audio()
	if err != nil {
		t.Fatalf("Audio: %v", err)
	}
	if audio.Index != 1 || audio.SampleRateHz() != 16000 {
		t.Fatalf("unexpected audio stream %+v", audio)
	}
	if !audio.MatchesPCM(16000, 1) {
		t.Fatal("expected stream to match mono 16 kHz PCM")
	}
	if audio.MatchesPCM(44100, 1) || audio.MatchesPCM(16000, 2) {
		t.Fatal("MatchesPCM should reject other layouts")
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
}

func TestAudioMissing(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "video"}}, Format: Format{Duration: "bad"}}
	if _, err := result.Audio(); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected zero duration for unparsable value, got %v", result.DurationSeconds())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInspectRunsBinary(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.json")
	if err := os.WriteFile(report, []byte(sampleReport), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat " + report + "\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	result, err := Inspect(context.Background(), stub, filepath.Join(dir, "x.wav"))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if _, err := result.Audio(); err != nil {
		t.Fatalf("Audio: %v", err)
	}

	failing := filepath.Join(dir, "ffprobe-fail")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\necho 'Invalid data' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write failing stub: %v", err)
	}
	if _, err := Inspect(context.Background(), failing, "x.wav"); err == nil {
		t.Fatal("expected error from failing ffprobe")
	}
	if _, err := Inspect(context.Background(), stub, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
